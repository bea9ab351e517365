package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/qvu3/bb-chatbot/internal/faq"
)

// Backend is a text-completion service. It returns the text segments of the
// reply in order.
type Backend interface {
	Generate(ctx context.Context, prompt string) ([]string, error)
}

// Generative answers by asking a model to respond only from the FAQ corpus.
type Generative struct {
	backend Backend
	timeout time.Duration
}

// NewGenerative creates a generative answerer. A nil backend means the
// credential was not configured and every answer is NotConfiguredMessage.
func NewGenerative(backend Backend, timeout time.Duration) *Generative {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Generative{backend: backend, timeout: timeout}
}

// Answer implements Answerer.
func (g *Generative) Answer(ctx context.Context, query string, corpus faq.Corpus) string {
	if g.backend == nil {
		slog.Warn("Generative answer requested without a configured backend")
		return NotConfiguredMessage
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	segments, err := g.backend.Generate(ctx, BuildPrompt(query, corpus))
	if err != nil {
		slog.Error("Answer generation failed", "error", err)
		return GenerationErrMessage
	}

	text := strings.TrimSpace(strings.Join(segments, ""))
	if text == "" {
		slog.Warn("Answer generation returned no content")
		return NoResponseMessage
	}
	return text
}

// BuildPrompt embeds every FAQ pair verbatim plus the query and restricts the
// model to that grounding set.
func BuildPrompt(query string, corpus faq.Corpus) string {
	var b strings.Builder
	b.WriteString("You are a helpful customer support assistant for Black Belt Prep.\n")
	b.WriteString("Answer the user's question using ONLY the FAQ entries below. ")
	b.WriteString("Do not use outside knowledge and do not invent details. ")
	b.WriteString("If the FAQ entries do not contain the answer, reply exactly: ")
	b.WriteString("\"I'm sorry, I cannot find an answer to your question. Please visit the contact page for further help.\"\n\n")
	b.WriteString("FAQ entries:\n")
	for i, entry := range corpus {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, entry.Question, entry.Answer)
	}
	b.WriteString("\nUser question: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}

// GeminiBackend generates text with the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini-backed generator.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiBackend{client: client, model: model}, nil
}

// Generate implements Backend.
func (b *GeminiBackend) Generate(ctx context.Context, prompt string) ([]string, error) {
	temperature := float32(0.2)
	resp, err := b.client.Models.GenerateContent(ctx, b.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{Temperature: &temperature},
	)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}

	var segments []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			segments = append(segments, part.Text)
		}
	}
	return segments, nil
}

// Name returns the backend name.
func (b *GeminiBackend) Name() string {
	return "gemini:" + b.model
}
