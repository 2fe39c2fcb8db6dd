package ai

import (
	"strings"
)

var frenchIndicators = []string{
	"bonjour", "merci", "salut", "bienvenue", "appartement",
	"logement", "arrivée", "départ", "clé", "clef", "comment",
	"quand", "où", "pourquoi", "est-ce que", "s'il vous plaît",
}

// DetectLanguage guesses whether a guest message is French or English.
// Two or more French indicator words tip the balance to French.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)
	count := 0
	for _, w := range frenchIndicators {
		if strings.Contains(lower, w) {
			count++
		}
	}
	if count >= 2 {
		return "fr"
	}
	return "en"
}
