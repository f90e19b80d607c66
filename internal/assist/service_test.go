package assist

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type fakeCompletions struct {
	lastParams openai.ChatCompletionNewParams
	completion *openai.ChatCompletion
	err        error
}

func (f *fakeCompletions) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.lastParams = body
	if f.err != nil {
		return nil, f.err
	}
	return f.completion, nil
}

func completionWithContent(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestNewServiceRequiresCompletions(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	if err == nil {
		t.Fatalf("expected error for missing completion client")
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	service, err := NewService(ServiceConfig{Completions: &fakeCompletions{}})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	if _, err := service.Generate(context.Background(), "  "); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestGenerateReturnsTrimmedFirstChoice(t *testing.T) {
	fake := &fakeCompletions{completion: completionWithContent("  A tense opening scene.  ")}
	service, err := NewService(ServiceConfig{Completions: fake, Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	text, err := service.Generate(context.Background(), "Write an opening scene")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "A tense opening scene." {
		t.Fatalf("unexpected completion text: %q", text)
	}

	if fake.lastParams.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", fake.lastParams.Model)
	}
	if len(fake.lastParams.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(fake.lastParams.Messages))
	}
}

func TestGenerateDefaultsModel(t *testing.T) {
	fake := &fakeCompletions{completion: completionWithContent("ok")}
	service, err := NewService(ServiceConfig{Completions: fake})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	if _, err := service.Generate(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.lastParams.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", fake.lastParams.Model)
	}
}

func TestGenerateNoChoices(t *testing.T) {
	fake := &fakeCompletions{completion: &openai.ChatCompletion{}}
	service, err := NewService(ServiceConfig{Completions: fake})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	if _, err := service.Generate(context.Background(), "hello"); !errors.Is(err, ErrNoChoices) {
		t.Fatalf("expected ErrNoChoices, got %v", err)
	}
}

func TestGeneratePropagatesProviderError(t *testing.T) {
	providerErr := errors.New("rate limited")
	fake := &fakeCompletions{err: providerErr}
	service, err := NewService(ServiceConfig{Completions: fake})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	if _, err := service.Generate(context.Background(), "hello"); !errors.Is(err, providerErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
