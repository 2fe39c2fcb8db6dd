package ai

import (
	"fmt"
	"strings"

	"github.com/alba-hq/conciergerie-platform/internal/model"
)

// Caps applied when rendering context into the user prompt.
const (
	promptHistoryLimit       = 10
	promptKnowledgeBaseLimit = 5
)

// SystemPrompt is the static domain guidance sent with every generation turn.
const SystemPrompt = `Tu es un assistant professionnel pour un hôte Airbnb. Tu aides à répondre aux messages des voyageurs de manière chaleureuse mais professionnelle.

RÈGLES IMPORTANTES:
1. Réponds TOUJOURS dans la langue du voyageur (français ou anglais)
2. Sois chaleureux mais professionnel
3. Ne fais JAMAIS de promesses que tu ne peux pas tenir
4. Si tu n'es pas sûr d'une information, dis que tu vas vérifier
5. Utilise les informations du logement quand c'est pertinent
6. Base-toi sur les réponses précédemment approuvées quand c'est possible

FORMAT DE RÉPONSE (JSON):
{
  "response": "ta réponse au voyageur",
  "confidence": 0.85,
  "reasoning": "explication de ton niveau de confiance",
  "detected_intent": "type de question (check_in, amenities, location, booking, other)"
}

CALCUL DE LA CONFIANCE:
- 0.9-1.0: Question simple, réponse dans la base de connaissances
- 0.7-0.9: Question standard, réponse basée sur les infos du logement
- 0.5-0.7: Question complexe, nécessite peut-être vérification
- 0.0-0.5: Question hors périmètre ou information manquante`

// BuildUserPrompt renders a PromptContext into the user instruction. Pure and
// deterministic: identical context yields an identical prompt.
func BuildUserPrompt(pctx *PromptContext) string {
	languageInstruction := "Respond in ENGLISH."
	if pctx.GuestLanguage == "fr" {
		languageInstruction = "Réponds en FRANÇAIS."
	}

	return fmt.Sprintf(`%s

%s

## INFORMATIONS SUR LE LOGEMENT
%s

## BASE DE CONNAISSANCES (réponses approuvées)
%s

## HISTORIQUE DE LA CONVERSATION
%s

## MESSAGE ACTUEL DU VOYAGEUR
%s

---

Analyse le message du voyageur et génère une réponse appropriée.
Rappel: Réponds au format JSON avec response, confidence, reasoning, et detected_intent.`,
		languageInstruction,
		toneInstruction(pctx.OrgSettings.Tone),
		formatPropertyContext(pctx.Property),
		formatKnowledgeBase(pctx.KnowledgeBase),
		formatHistory(pctx.History),
		pctx.GuestMessage,
	)
}

func toneInstruction(tone model.Tone) string {
	switch tone {
	case model.ToneFriendly:
		return "Ton: Amical et décontracté, utilise des formulations chaleureuses."
	case model.ToneCasual:
		return "Ton: Décontracté et informel, comme un ami qui aide."
	default:
		return "Ton: Professionnel mais chaleureux, courtois et efficace."
	}
}

func formatPropertyContext(property PropertyContext) string {
	parts := []string{fmt.Sprintf("Nom: %s", property.Name)}

	if property.Description != nil && *property.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", *property.Description))
	}
	if property.CheckInInstructions != nil && *property.CheckInInstructions != "" {
		parts = append(parts, fmt.Sprintf("Instructions d'arrivée: %s", *property.CheckInInstructions))
	}
	if property.HouseRules != nil && *property.HouseRules != "" {
		parts = append(parts, fmt.Sprintf("Règlement: %s", *property.HouseRules))
	}
	if len(property.Amenities) > 0 {
		parts = append(parts, fmt.Sprintf("Équipements: %s", strings.Join(property.Amenities, ", ")))
	}

	return strings.Join(parts, "\n")
}

func formatHistory(history []model.Message) string {
	if len(history) == 0 {
		return "Aucun historique (première conversation)"
	}

	if len(history) > promptHistoryLimit {
		history = history[len(history)-promptHistoryLimit:]
	}

	lines := make([]string, 0, len(history))
	for _, msg := range history {
		role := "HÔTE"
		if msg.Source == model.SourceGuest {
			role = "VOYAGEUR"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return strings.Join(lines, "\n\n")
}

func formatKnowledgeBase(entries []model.KnowledgeBaseEntry) string {
	if len(entries) == 0 {
		return "Aucune réponse approuvée disponible."
	}

	if len(entries) > promptKnowledgeBaseLimit {
		entries = entries[:promptKnowledgeBaseLimit]
	}

	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		lines = append(lines, fmt.Sprintf("%d. Question type: %s\n   Réponse: %s",
			i+1, entry.QuestionPattern, entry.ApprovedResponse))
	}
	return strings.Join(lines, "\n\n")
}
