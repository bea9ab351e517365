package answer

import (
	"context"
	"strings"

	"github.com/qvu3/bb-chatbot/internal/faq"
)

// Exact answers with the first FAQ whose question contains the query,
// compared case-insensitively.
type Exact struct{}

// Answer implements Answerer.
func (Exact) Answer(_ context.Context, query string, corpus faq.Corpus) string {
	q := strings.ToLower(query)
	for _, entry := range corpus {
		if strings.Contains(strings.ToLower(entry.Question), q) {
			return entry.Answer
		}
	}
	return NotFoundMessage
}
