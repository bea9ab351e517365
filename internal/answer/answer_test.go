package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qvu3/bb-chatbot/internal/config"
	"github.com/qvu3/bb-chatbot/internal/faq"
)

func TestExactEmptyCorpus(t *testing.T) {
	for _, q := range []string{"hours", "refund", "anything at all"} {
		assert.Equal(t, NotFoundMessage, Exact{}.Answer(context.Background(), q, nil))
	}
}

func TestExactFirstMatchWins(t *testing.T) {
	corpus := faq.Corpus{
		{Question: "refund policy", Answer: "A1"},
		{Question: "refund window", Answer: "A2"},
	}
	assert.Equal(t, "A1", Exact{}.Answer(context.Background(), "refund", corpus))
	assert.Equal(t, "A2", Exact{}.Answer(context.Background(), "WINDOW", corpus))
	assert.Equal(t, NotFoundMessage, Exact{}.Answer(context.Background(), "shipping", corpus))
}

func TestFallbackMessagesAreUnresolved(t *testing.T) {
	for _, msg := range []string{NotFoundMessage, NoResponseMessage, GenerationErrMessage, NotConfiguredMessage} {
		assert.True(t, IsUnresolved(msg), msg)
	}
	assert.True(t, IsUnresolved("Please VISIT THE CONTACT PAGE."))
	assert.True(t, IsUnresolved("I'm sorry, I cannot find an answer to your question."))
	assert.False(t, IsUnresolved("Classes start every Monday."))
}

type fakeBackend struct {
	segments []string
	err      error
	prompt   string
}

func (f *fakeBackend) Generate(_ context.Context, prompt string) ([]string, error) {
	f.prompt = prompt
	return f.segments, f.err
}

func TestGenerativeConcatenatesSegments(t *testing.T) {
	backend := &fakeBackend{segments: []string{"Classes run ", "Monday to Friday."}}
	g := NewGenerative(backend, time.Second)

	got := g.Answer(context.Background(), "when are classes?", faq.Corpus{{Question: "schedule", Answer: "Mon-Fri"}})
	assert.Equal(t, "Classes run Monday to Friday.", got)
	assert.Contains(t, backend.prompt, "Q: schedule")
	assert.Contains(t, backend.prompt, "A: Mon-Fri")
	assert.Contains(t, backend.prompt, "User question: when are classes?")
}

func TestGenerativeFallbacks(t *testing.T) {
	ctx := context.Background()

	empty := NewGenerative(&fakeBackend{segments: []string{"  "}}, time.Second)
	assert.Equal(t, NoResponseMessage, empty.Answer(ctx, "q", nil))

	failing := NewGenerative(&fakeBackend{err: errors.New("quota exceeded")}, time.Second)
	assert.Equal(t, GenerationErrMessage, failing.Answer(ctx, "q", nil))

	unconfigured := NewGenerative(nil, time.Second)
	assert.Equal(t, NotConfiguredMessage, unconfigured.Answer(ctx, "q", nil))
}

func TestBuildPromptListsEveryEntryInOrder(t *testing.T) {
	prompt := BuildPrompt("q", faq.Corpus{{Question: "first", Answer: "1"}, {Question: "second", Answer: "2"}})
	assert.Less(t, strings.Index(prompt, "first"), strings.Index(prompt, "second"))
	assert.Contains(t, prompt, "cannot find an answer")
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	_, isExact := NewFromConfig(ctx, config.AnswerConfig{Strategy: config.StrategyExact}).(Exact)
	assert.True(t, isExact)

	a := NewFromConfig(ctx, config.AnswerConfig{Strategy: config.StrategyGenerative, GenerationTimeout: time.Second})
	assert.Equal(t, NotConfiguredMessage, a.Answer(ctx, "hours", nil))
}
