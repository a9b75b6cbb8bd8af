// Package invoke turns routing decisions into calls against the local model
// runtime. It is the only component that holds subprocess or connection
// handles; everything above it works with Contributions.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Reply is the raw output of one runtime call. The router never parses the
// text beyond length and emptiness checks.
type Reply struct {
	Text     string
	WallTime time.Duration
}

// Runtime is the abstract capability the external model runtime exposes:
// run a prompt on a named variant, blocking until the reply or the context
// deadline. Test doubles implement the same interface.
type Runtime interface {
	Invoke(ctx context.Context, variantID, prompt string) (*Reply, error)
	Name() string
}

// ErrAllVariantsFailed means the primary and its whole fallback chain were
// exhausted without one usable reply.
var ErrAllVariantsFailed = errors.New("all variants failed")

// ErrCancelled means the caller cancelled the decision. Partial
// contributions gathered before cancellation are still returned.
var ErrCancelled = errors.New("cancelled")

// VariantError wraps a single failed runtime call.
type VariantError struct {
	VariantID string
	Timeout   bool
	Err       error
}

func (e *VariantError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("variant %s timed out", e.VariantID)
	}
	return fmt.Sprintf("variant %s: %v", e.VariantID, e.Err)
}

func (e *VariantError) Unwrap() error { return e.Err }

// Status classifies the outcome of one variant call.
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// Contribution is the outcome of one variant call. Failed calls produce
// contributions too, so diagnostics survive fallback handling.
type Contribution struct {
	VariantID  string
	Text       string
	Confidence float64
	ProducedAt time.Time
	WallTime   time.Duration
	Status     Status

	// Diag preserves the runtime's error message for later inspection; it
	// is never shown raw to the user.
	Diag string
}

// OK reports whether the contribution carries a usable reply.
func (c Contribution) OK() bool { return c.Status == StatusOK }

// CountOK returns the number of usable contributions.
func CountOK(contributions []Contribution) int {
	n := 0
	for _, c := range contributions {
		if c.OK() {
			n++
		}
	}
	return n
}
