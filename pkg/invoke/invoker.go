package invoke

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lamplight-ai/djinn/pkg/router"
)

const (
	// DefaultVariantTimeout bounds one runtime call.
	DefaultVariantTimeout = 60 * time.Second

	// DefaultDecisionTimeout bounds a whole decision; the tighter of the
	// two deadlines applies to every call.
	DefaultDecisionTimeout = 120 * time.Second

	// DefaultMaxFallbacks is how many fallback-chain entries are tried
	// after the primary fails.
	DefaultMaxFallbacks = 2

	// fallbackConfidenceStep lowers confidence for each fallback hop.
	fallbackConfidenceStep = 0.1
)

// Invoker executes routing decisions against a Runtime.
type Invoker struct {
	runtime         Runtime
	variantTimeout  time.Duration
	decisionTimeout time.Duration
	maxFallbacks    int
	logger          zerolog.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithVariantTimeout sets the per-variant deadline.
func WithVariantTimeout(d time.Duration) Option {
	return func(inv *Invoker) { inv.variantTimeout = d }
}

// WithDecisionTimeout sets the whole-decision deadline.
func WithDecisionTimeout(d time.Duration) Option {
	return func(inv *Invoker) { inv.decisionTimeout = d }
}

// WithMaxFallbacks sets how many fallback entries may be tried.
func WithMaxFallbacks(n int) Option {
	return func(inv *Invoker) { inv.maxFallbacks = n }
}

// WithLogger sets the invoker's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(inv *Invoker) { inv.logger = logger }
}

// NewInvoker creates an invoker with default deadlines.
func NewInvoker(runtime Runtime, opts ...Option) *Invoker {
	inv := &Invoker{
		runtime:         runtime,
		variantTimeout:  DefaultVariantTimeout,
		decisionTimeout: DefaultDecisionTimeout,
		maxFallbacks:    DefaultMaxFallbacks,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Execute runs the decision's variants per its mode and returns every
// contribution gathered, including failed ones. On cancellation the partial
// contributions are returned alongside ErrCancelled; they are never
// silently dropped.
func (inv *Invoker) Execute(ctx context.Context, d *router.Decision, prompt string) ([]Contribution, error) {
	if len(d.ChosenVariants) == 0 {
		return nil, fmt.Errorf("decision %s has no chosen variants", d.UtteranceID)
	}

	dctx, cancel := context.WithTimeout(ctx, inv.decisionTimeout)
	defer cancel()

	switch d.Mode {
	case router.ModeSingle:
		return inv.executeSingle(ctx, dctx, d, prompt)
	case router.ModeCouncilParallel, router.ModeCouncilConsensus:
		return inv.executeParallel(ctx, dctx, d.ChosenVariants, prompt, d.Confidence)
	case router.ModeCouncilSequential:
		return inv.executeSequential(ctx, dctx, d, prompt)
	case router.ModeCouncilHierarchical:
		return inv.executeHierarchical(ctx, dctx, d, prompt)
	default:
		return nil, fmt.Errorf("unknown invocation mode %q", d.Mode)
	}
}

// executeSingle tries the primary variant, then walks the fallback chain.
func (inv *Invoker) executeSingle(parent, dctx context.Context, d *router.Decision, prompt string) ([]Contribution, error) {
	candidates := []string{d.Primary()}
	for i, id := range d.FallbackChain {
		if i == inv.maxFallbacks {
			break
		}
		candidates = append(candidates, id)
	}

	var contributions []Contribution
	confidence := d.Confidence
	for i, variantID := range candidates {
		if dctx.Err() != nil {
			break
		}
		c := inv.callOne(dctx, variantID, prompt, confidence)
		contributions = append(contributions, c)
		if c.OK() {
			return contributions, nil
		}
		if parent.Err() != nil {
			return contributions, ErrCancelled
		}
		inv.logger.Warn().
			Str("variant", variantID).
			Str("status", string(c.Status)).
			Int("attempt", i+1).
			Msg("variant failed, trying fallback")
		confidence = maxFloat(0.3, confidence-fallbackConfidenceStep)
	}
	if parent.Err() != nil {
		return contributions, ErrCancelled
	}
	return contributions, ErrAllVariantsFailed
}

// executeParallel fans out to all variants concurrently. A variant that
// misses its deadline contributes a timeout but does not cancel siblings.
func (inv *Invoker) executeParallel(parent, dctx context.Context, variantIDs []string, prompt string, confidence float64) ([]Contribution, error) {
	contributions := make([]Contribution, len(variantIDs))
	var wg sync.WaitGroup
	for i, variantID := range variantIDs {
		wg.Add(1)
		go func(i int, variantID string) {
			defer wg.Done()
			contributions[i] = inv.callOne(dctx, variantID, prompt, confidence)
		}(i, variantID)
	}
	wg.Wait()

	if parent.Err() != nil {
		return contributions, ErrCancelled
	}
	if CountOK(contributions) == 0 {
		return contributions, ErrAllVariantsFailed
	}
	return contributions, nil
}

// executeSequential calls variants in declared order; each sees the prior
// accumulated text as part of its input.
func (inv *Invoker) executeSequential(parent, dctx context.Context, d *router.Decision, prompt string) ([]Contribution, error) {
	var contributions []Contribution
	var accumulated strings.Builder
	for _, variantID := range d.ChosenVariants {
		if dctx.Err() != nil {
			break
		}
		input := prompt
		if accumulated.Len() > 0 {
			input = fmt.Sprintf("%s\n\nOutput of earlier layers:\n%s", prompt, accumulated.String())
		}
		c := inv.callOne(dctx, variantID, input, d.Confidence)
		contributions = append(contributions, c)
		if parent.Err() != nil {
			return contributions, ErrCancelled
		}
		if c.OK() {
			accumulated.WriteString(c.Text)
			accumulated.WriteString("\n")
		}
	}
	if parent.Err() != nil {
		return contributions, ErrCancelled
	}
	if CountOK(contributions) == 0 {
		return contributions, ErrAllVariantsFailed
	}
	return contributions, nil
}

// executeHierarchical calls the leader first; supporters run only after the
// leader succeeds.
func (inv *Invoker) executeHierarchical(parent, dctx context.Context, d *router.Decision, prompt string) ([]Contribution, error) {
	leaderID := d.Leader
	if leaderID == "" {
		leaderID = d.Primary()
	}

	leader := inv.callOne(dctx, leaderID, prompt, d.Confidence)
	if parent.Err() != nil {
		return []Contribution{leader}, ErrCancelled
	}
	if !leader.OK() {
		return []Contribution{leader}, ErrAllVariantsFailed
	}

	var supporters []string
	for _, id := range d.ChosenVariants {
		if id != leaderID {
			supporters = append(supporters, id)
		}
	}
	if len(supporters) == 0 {
		return []Contribution{leader}, nil
	}

	rest, err := inv.executeParallel(parent, dctx, supporters, prompt, d.Confidence)
	contributions := append([]Contribution{leader}, rest...)
	if errors.Is(err, ErrCancelled) {
		return contributions, err
	}
	// Supporters failing wholesale is fine; the leader already answered.
	return contributions, nil
}

// callOne performs a single runtime call under the per-variant deadline.
func (inv *Invoker) callOne(dctx context.Context, variantID, prompt string, confidence float64) Contribution {
	cctx, cancel := context.WithTimeout(dctx, inv.variantTimeout)
	defer cancel()

	start := time.Now()
	reply, err := inv.runtime.Invoke(cctx, variantID, prompt)
	wall := time.Since(start)

	c := Contribution{
		VariantID:  variantID,
		Confidence: confidence,
		ProducedAt: time.Now().UTC(),
		WallTime:   wall,
	}
	switch {
	case err != nil:
		c.Status = StatusError
		c.Confidence = 0
		c.Diag = err.Error()
		var verr *VariantError
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &verr) && verr.Timeout) {
			c.Status = StatusTimeout
		}
	case reply == nil || strings.TrimSpace(reply.Text) == "":
		c.Status = StatusError
		c.Confidence = 0
		c.Diag = "empty reply"
	default:
		c.Status = StatusOK
		c.Text = reply.Text
		if reply.WallTime > 0 {
			c.WallTime = reply.WallTime
		}
	}
	return c
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
