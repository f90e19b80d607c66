// Package assist relays screenwriting prompts to a chat-completion language
// model and returns the first choice verbatim.
package assist

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const systemPrompt = "You are a helpful AI assistant for screenwriting and storytelling."

// DefaultModel is used when the configuration names no model.
const DefaultModel = openai.ChatModelGPT4

var (
	errMissingCompletions = errors.New("assist: completion client is required")

	// ErrEmptyPrompt indicates the caller supplied no prompt text.
	ErrEmptyPrompt = errors.New("assist: prompt is required")
	// ErrNoChoices indicates the provider returned an empty choice list.
	ErrNoChoices = errors.New("assist: provider returned no choices")
)

// CompletionCreator matches the openai-go chat completion service surface.
type CompletionCreator interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ServiceConfig collects the dependencies for constructing a Service.
type ServiceConfig struct {
	Completions CompletionCreator
	Model       string
	Logger      *zap.Logger
}

// Service generates assistant text for caller-composed prompts.
type Service struct {
	completions CompletionCreator
	model       openai.ChatModel
	logger      *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Completions == nil {
		return nil, errMissingCompletions
	}

	model := openai.ChatModel(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		completions: cfg.Completions,
		model:       model,
		logger:      logger,
	}, nil
}

// Generate sends the prompt with the fixed screenwriting system prompt and
// returns the first choice content, trimmed.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	completion, err := s.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(800),
	})
	if err != nil {
		s.logger.Error("completion request failed", zap.Error(err))
		return "", err
	}
	if len(completion.Choices) == 0 {
		s.logger.Error("completion returned no choices", zap.String("model", string(s.model)))
		return "", ErrNoChoices
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
