package invoke

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// HTTPRuntime talks to a local OpenAI-compatible chat endpoint, as exposed
// by ollama and llama.cpp servers. The variant id doubles as the model name.
type HTTPRuntime struct {
	client openai.Client
}

// NewHTTPRuntime creates a runtime against baseURL (for example
// http://localhost:11434/v1). Local servers ignore the API key but the
// client requires one, so a placeholder is used when none is given.
func NewHTTPRuntime(baseURL, apiKey string) (*HTTPRuntime, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("http runtime: base URL is required")
	}
	if apiKey == "" {
		apiKey = "local"
	}
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &HTTPRuntime{client: client}, nil
}

// Name returns the runtime identifier.
func (r *HTTPRuntime) Name() string { return "http" }

// Invoke sends the prompt as a single chat turn and returns the reply text.
func (r *HTTPRuntime) Invoke(ctx context.Context, variantID, prompt string) (*Reply, error) {
	start := time.Now()
	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(variantID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	wall := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, &VariantError{VariantID: variantID, Timeout: true, Err: ctx.Err()}
	}
	if err != nil {
		return nil, &VariantError{VariantID: variantID, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &VariantError{VariantID: variantID, Err: fmt.Errorf("runtime returned no choices")}
	}
	return &Reply{Text: resp.Choices[0].Message.Content, WallTime: wall}, nil
}
