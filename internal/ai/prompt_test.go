package ai

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alba-hq/conciergerie-platform/internal/model"
)

func testPromptContext() *PromptContext {
	desc := "Studio lumineux au coeur du Marais"
	checkIn := "Boîte à clés code 4521, à gauche de la porte"
	return &PromptContext{
		Conversation:  &model.Conversation{ID: "c1", OrganizationID: "o1"},
		GuestMessage:  "Bonjour, à quelle heure puis-je arriver ?",
		GuestLanguage: "fr",
		History: []model.Message{
			{Source: model.SourceGuest, Content: "Bonjour, j'ai réservé pour ce weekend"},
			{Source: model.SourceHost, Content: "Bienvenue ! N'hésitez pas si vous avez des questions."},
		},
		Property: PropertyContext{
			Name:                "Le Marais Studio",
			Description:         &desc,
			CheckInInstructions: &checkIn,
			Amenities:           []string{"wifi", "machine à laver"},
			Linked:              true,
		},
		OrgSettings: model.DefaultAISettings(),
		KnowledgeBase: []model.KnowledgeBaseEntry{
			{QuestionPattern: "heure arrivée", ApprovedResponse: "Le check-in est possible à partir de 15h."},
		},
	}
}

func TestBuildUserPromptIsDeterministic(t *testing.T) {
	pctx := testPromptContext()
	first := BuildUserPrompt(pctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildUserPrompt(pctx))
	}
}

func TestBuildUserPromptLanguageDirective(t *testing.T) {
	pctx := testPromptContext()

	pctx.GuestLanguage = "fr"
	assert.Contains(t, BuildUserPrompt(pctx), "Réponds en FRANÇAIS.")

	pctx.GuestLanguage = "en"
	assert.Contains(t, BuildUserPrompt(pctx), "Respond in ENGLISH.")
}

func TestBuildUserPromptToneDirective(t *testing.T) {
	pctx := testPromptContext()

	pctx.OrgSettings.Tone = model.ToneFriendly
	assert.Contains(t, BuildUserPrompt(pctx), "Amical et décontracté")

	pctx.OrgSettings.Tone = model.ToneCasual
	assert.Contains(t, BuildUserPrompt(pctx), "Décontracté et informel")

	pctx.OrgSettings.Tone = model.ToneProfessional
	assert.Contains(t, BuildUserPrompt(pctx), "Professionnel mais chaleureux")
}

func TestBuildUserPromptIncludesContext(t *testing.T) {
	prompt := BuildUserPrompt(testPromptContext())

	assert.Contains(t, prompt, "Le Marais Studio")
	assert.Contains(t, prompt, "Boîte à clés code 4521")
	assert.Contains(t, prompt, "wifi, machine à laver")
	assert.Contains(t, prompt, "Le check-in est possible à partir de 15h.")
	assert.Contains(t, prompt, "VOYAGEUR: Bonjour, j'ai réservé pour ce weekend")
	assert.Contains(t, prompt, "HÔTE: Bienvenue !")
	assert.Contains(t, prompt, "Bonjour, à quelle heure puis-je arriver ?")
}

func TestBuildUserPromptEmptySections(t *testing.T) {
	pctx := testPromptContext()
	pctx.History = nil
	pctx.KnowledgeBase = nil

	prompt := BuildUserPrompt(pctx)
	assert.Contains(t, prompt, "Aucun historique (première conversation)")
	assert.Contains(t, prompt, "Aucune réponse approuvée disponible.")
}

func TestBuildUserPromptCapsHistoryAndKnowledgeBase(t *testing.T) {
	pctx := testPromptContext()

	pctx.History = nil
	for i := 0; i < 15; i++ {
		pctx.History = append(pctx.History, model.Message{
			Source:  model.SourceGuest,
			Content: fmt.Sprintf("message numéro %d", i),
		})
	}

	pctx.KnowledgeBase = nil
	for i := 0; i < 8; i++ {
		pctx.KnowledgeBase = append(pctx.KnowledgeBase, model.KnowledgeBaseEntry{
			QuestionPattern:  fmt.Sprintf("question %d", i),
			ApprovedResponse: fmt.Sprintf("réponse %d", i),
		})
	}

	prompt := BuildUserPrompt(pctx)

	// Only the last 10 history messages survive.
	assert.NotContains(t, prompt, "message numéro 4")
	assert.Contains(t, prompt, "message numéro 5")
	assert.Contains(t, prompt, "message numéro 14")

	// Only the first 5 knowledge base entries survive.
	assert.Contains(t, prompt, "question 4")
	assert.NotContains(t, prompt, "question 5")

	assert.Equal(t, 10, strings.Count(prompt, "VOYAGEUR:"))
}
