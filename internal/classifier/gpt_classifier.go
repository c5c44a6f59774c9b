package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

// ChatCompleter is the part of the OpenAI client the GPT classifier uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type GPTResponse struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// CategorySource returns the categories the model may choose from.
type CategorySource func(ctx context.Context) ([]string, error)

// StaticCategories serves a fixed category list.
func StaticCategories(categories []string) CategorySource {
	categories = append([]string(nil), categories...)
	return func(context.Context) ([]string, error) {
		return categories, nil
	}
}

// GPTClassifier asks a chat model to choose a category and falls back to
// the keyword rules whenever the answer is unusable.
type GPTClassifier struct {
	client      ChatCompleter
	model       string
	maxTokens   int
	temperature float64
	categories  CategorySource
	fallback    Classifier
	logger      *zap.Logger
}

func NewGPTClassifier(client ChatCompleter, model string, maxTokens int, temperature float64, categories CategorySource, fallback Classifier, logger *zap.Logger) *GPTClassifier {
	if fallback == nil {
		fallback = NewKeywordClassifier()
	}
	if categories == nil {
		categories = StaticCategories(models.DefaultCategories())
	}
	return &GPTClassifier{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		categories:  categories,
		fallback:    fallback,
		logger:      logger,
	}
}

func (c *GPTClassifier) Classify(ctx context.Context, filename, content string) string {
	// Keyword hits are deterministic and free; only ask the model about the rest.
	fallback := c.fallback.Classify(ctx, filename, content)
	if fallback != models.GeneralDocuments {
		return fallback
	}

	categories, err := c.categories(ctx)
	if err != nil || len(categories) == 0 {
		c.logger.Warn("Category list unavailable, offering defaults", zap.Error(err))
		categories = models.DefaultCategories()
	}

	prompt := fmt.Sprintf(`You file documents for a condominium association.
Pick exactly one category for the document below from this list:
%s

Return the response as a JSON object with this structure:
{
    "category": "one_of_the_categories",
    "reason": "short_reason"
}

Filename: %s
Content: %s`, "- "+strings.Join(categories, "\n- "), filename, truncate(content, 2000))

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Error("Failed to get GPT response", zap.Error(err), zap.String("filename", filename))
		return fallback
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("GPT returned no choices", zap.String("filename", filename))
		return fallback
	}

	var gptResponse GPTResponse
	response := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(response), &gptResponse); err != nil {
		c.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", response))
		return fallback
	}

	for _, category := range categories {
		if strings.EqualFold(category, strings.TrimSpace(gptResponse.Category)) {
			c.logger.Debug("GPT classified file",
				zap.String("filename", filename),
				zap.String("category", category),
				zap.String("reason", gptResponse.Reason))
			return category
		}
	}

	c.logger.Warn("GPT answered with unknown category",
		zap.String("filename", filename),
		zap.String("category", gptResponse.Category))
	return fallback
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
