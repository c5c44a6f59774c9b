package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

type fakeChat struct {
	answer string
	err    error
	calls  int
	prompt string
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if len(req.Messages) > 0 {
		f.prompt = req.Messages[0].Content
	}
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.answer}},
		},
	}, nil
}

func newTestGPT(chat *fakeChat) *GPTClassifier {
	return NewGPTClassifier(chat, "gpt-4o-mini", 100, 0, StaticCategories(models.DefaultCategories()), nil, zap.NewNop())
}

func TestGPTClassifier_UsesModelAnswer(t *testing.T) {
	chat := &fakeChat{answer: `{"category": "meeting documents", "reason": "looks like minutes"}`}
	c := newTestGPT(chat)

	assert.Equal(t, models.MeetingDocuments, c.Classify(context.Background(), "scan_0042.pdf", ""))
	assert.Equal(t, 1, chat.calls)
}

func TestGPTClassifier_SkipsModelOnKeywordHit(t *testing.T) {
	chat := &fakeChat{answer: `{"category": "Meeting Documents"}`}
	c := newTestGPT(chat)

	assert.Equal(t, models.FinancialReports, c.Classify(context.Background(), "budget.pdf", ""))
	assert.Zero(t, chat.calls)
}

func TestGPTClassifier_FallsBack(t *testing.T) {
	tests := []struct {
		name string
		chat *fakeChat
	}{
		{"api error", &fakeChat{err: errors.New("connection refused")}},
		{"not json", &fakeChat{answer: "Meeting Documents"}},
		{"unknown category", &fakeChat{answer: `{"category": "Recipes"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestGPT(tt.chat)
			assert.Equal(t, models.GeneralDocuments, c.Classify(context.Background(), "scan_0042.pdf", ""))
			assert.Equal(t, 1, tt.chat.calls)
		})
	}
}

func TestGPTClassifier_OffersCurrentTaxonomy(t *testing.T) {
	taxonomy := append(models.DefaultCategories(), "Pool & Spa")
	source := func(context.Context) ([]string, error) { return taxonomy, nil }
	chat := &fakeChat{answer: `{"category": "pool & spa", "reason": "chlorine schedule"}`}
	c := NewGPTClassifier(chat, "gpt-4o-mini", 100, 0, source, nil, zap.NewNop())

	assert.Equal(t, "Pool & Spa", c.Classify(context.Background(), "scan_0042.pdf", ""))
	assert.Contains(t, chat.prompt, "- Pool & Spa")

	taxonomy = append(taxonomy, "Rooftop Garden")
	chat.answer = `{"category": "Rooftop Garden"}`
	assert.Equal(t, "Rooftop Garden", c.Classify(context.Background(), "scan_0043.pdf", ""),
		"categories added later are offered on the next call")
}

func TestGPTClassifier_CategorySourceFailure(t *testing.T) {
	source := func(context.Context) ([]string, error) { return nil, errors.New("store offline") }
	chat := &fakeChat{answer: `{"category": "Meeting Documents"}`}
	c := NewGPTClassifier(chat, "gpt-4o-mini", 100, 0, source, nil, zap.NewNop())

	assert.Equal(t, models.MeetingDocuments, c.Classify(context.Background(), "scan_0042.pdf", ""))
	assert.Contains(t, chat.prompt, "- "+models.FinancialReports)
}
