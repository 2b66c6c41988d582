// Package spellfix repairs near-miss command phrases before routing.
package spellfix

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// cutoff is the minimum similarity (0-100) for a correction to fire.
const cutoff = 80

// vocabulary of known command phrases.
var vocabulary = []string{
	"remember",
	"what did i say about",
	"capture",
	"read text",
	"ocr",
	"describe",
	"describe image",
	"history",
	"help",
	"exit",
	"quit",
}

// Fix returns the canonical command phrase when the case-folded input scores
// at or above the cutoff against the vocabulary, and the input unchanged
// otherwise. Correction is gated to inputs with the same word count as the
// candidate phrase, so parameterized commands ("remember X as Y",
// "what did i say about X") pass through untouched while bare typos
// ("captrue", "read txt") are repaired.
func Fix(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}

	lowered := strings.ToLower(trimmed)
	words := len(strings.Fields(lowered))
	jaro := metrics.NewJaro()

	best := ""
	bestScore := 0.0
	for _, cmd := range vocabulary {
		if len(strings.Fields(cmd)) != words {
			continue
		}
		score := strutil.Similarity(lowered, cmd, jaro) * 100
		if score > bestScore {
			best, bestScore = cmd, score
		}
	}

	if bestScore < cutoff {
		return raw
	}
	return best
}
