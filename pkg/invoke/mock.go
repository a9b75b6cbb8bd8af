package invoke

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockRuntime returns deterministic replies for local runs and tests.
type MockRuntime struct {
	mu        sync.Mutex
	responses map[string]string // variant id -> canned reply
	failures  map[string]error  // variant id -> forced error
	delays    map[string]time.Duration
	calls     []string
	prompts   []string
}

// NewMockRuntime creates an empty mock runtime.
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		responses: make(map[string]string),
		failures:  make(map[string]error),
		delays:    make(map[string]time.Duration),
	}
}

// Respond sets the canned reply for a variant.
func (r *MockRuntime) Respond(variantID, text string) *MockRuntime {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[variantID] = text
	return r
}

// Fail makes a variant return the given error.
func (r *MockRuntime) Fail(variantID string, err error) *MockRuntime {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[variantID] = err
	return r
}

// Delay makes a variant sleep before replying, honoring cancellation.
func (r *MockRuntime) Delay(variantID string, d time.Duration) *MockRuntime {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays[variantID] = d
	return r
}

// Calls returns the variant ids invoked so far, in call order.
func (r *MockRuntime) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Prompts returns the prompt text of each call, in call order.
func (r *MockRuntime) Prompts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prompts...)
}

// Name returns the runtime identifier.
func (r *MockRuntime) Name() string { return "mock" }

// Invoke returns the canned reply for the variant, or a generated echo.
func (r *MockRuntime) Invoke(ctx context.Context, variantID, prompt string) (*Reply, error) {
	r.mu.Lock()
	r.calls = append(r.calls, variantID)
	r.prompts = append(r.prompts, prompt)
	delay := r.delays[variantID]
	failure := r.failures[variantID]
	response, hasResponse := r.responses[variantID]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, &VariantError{VariantID: variantID, Timeout: true, Err: ctx.Err()}
			}
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	if !hasResponse {
		response = fmt.Sprintf("[%s] %s", variantID, prompt)
	}
	return &Reply{Text: response, WallTime: time.Millisecond}, nil
}
