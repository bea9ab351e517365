// Package answer turns a user query into answer text using the FAQ corpus,
// either by exact substring lookup or by a grounded generative model call.
package answer

import (
	"context"
	"strings"

	"github.com/qvu3/bb-chatbot/internal/faq"
)

// Fixed fallback answers. Every one of them contains an unresolved signal.
const (
	NotFoundMessage      = "Sorry, I couldn't find an answer to your question."
	NoResponseMessage    = "Sorry, I couldn't generate a response."
	GenerationErrMessage = "Sorry, I encountered an error while generating a response."
	NotConfiguredMessage = "Sorry, I encountered an error: the answer service is not configured."
)

// unresolvedSignals mark answers that should be escalated to a human.
var unresolvedSignals = []string{
	"cannot find an answer",
	"couldn't find an answer",
	"couldn't generate a response",
	"encountered an error",
	"visit the contact page",
}

// Answerer produces answer text for a query. Implementations never fail; faults
// are folded into one of the fallback messages.
type Answerer interface {
	Answer(ctx context.Context, query string, corpus faq.Corpus) string
}

// IsUnresolved reports whether answer text signals that no real answer was found.
func IsUnresolved(answer string) bool {
	lower := strings.ToLower(answer)
	for _, signal := range unresolvedSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}
