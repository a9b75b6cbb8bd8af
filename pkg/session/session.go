// Package session orchestrates one request end to end: validate, classify,
// route, invoke, fuse, then record the outcome. Requests within a session
// are serialized; only the invoker fans out internally.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lamplight-ai/djinn/pkg/analytics"
	"github.com/lamplight-ai/djinn/pkg/catalog"
	"github.com/lamplight-ai/djinn/pkg/classify"
	"github.com/lamplight-ai/djinn/pkg/fuse"
	"github.com/lamplight-ai/djinn/pkg/history"
	"github.com/lamplight-ai/djinn/pkg/invoke"
	"github.com/lamplight-ai/djinn/pkg/prefs"
	"github.com/lamplight-ai/djinn/pkg/probe"
	"github.com/lamplight-ai/djinn/pkg/router"
)

// ErrEmptyUtterance rejects blank input before classification.
var ErrEmptyUtterance = errors.New("empty utterance")

// Request is one user ask.
type Request struct {
	Text             string
	UserID           string
	ForcedTier       router.ForcedTier
	CouncilRequested bool

	// ChosenVariant is an explicit user override of the routed variant.
	// Remember additionally makes it the learned preference.
	ChosenVariant string
	Remember      bool
}

// Plan is everything decided before any variant is invoked.
type Plan struct {
	Utterance      router.Utterance
	Classification classify.Classification
	Complexity     classify.Complexity
	Probe          probe.Snapshot
	Decision       *router.Decision
}

// Reply is the full outcome of one request.
type Reply struct {
	Plan          *Plan
	Contributions []invoke.Contribution
	Fusion        fuse.Result
}

// Options wires a session's collaborators. Archive and Tracker may be nil
// for dry runs; everything else is required.
type Options struct {
	Catalog *catalog.Catalog
	Tables  *classify.Tables
	Prober  probe.Prober
	Prefs   *prefs.Store
	Invoker *invoke.Invoker
	Archive *history.Archive
	Tracker *analytics.Tracker
	Logger  zerolog.Logger

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Session runs requests one at a time.
type Session struct {
	catalog *catalog.Catalog
	tables  *classify.Tables
	prober  probe.Prober
	prefs   *prefs.Store
	invoker *invoke.Invoker
	archive *history.Archive
	tracker *analytics.Tracker
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string
}

// New creates a session.
func New(opts Options) *Session {
	s := &Session{
		catalog: opts.Catalog,
		tables:  opts.Tables,
		prober:  opts.Prober,
		prefs:   opts.Prefs,
		invoker: opts.Invoker,
		archive: opts.Archive,
		tracker: opts.Tracker,
		logger:  opts.Logger,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if s.tables == nil {
		s.tables = classify.DefaultTables()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Plan classifies and routes without invoking any variant.
func (s *Session) Plan(ctx context.Context, req Request) (*Plan, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyUtterance
	}

	tier := req.ForcedTier
	if tier == "" {
		tier = router.TierAuto
	}
	plan := &Plan{
		Utterance: router.Utterance{
			ID:         s.newID(),
			Text:       text,
			UserID:     req.UserID,
			Timestamp:  s.now().UTC(),
			ForcedTier: tier,
		},
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		plan.Classification = classify.Classify(text, s.tables)
		return nil
	})
	g.Go(func() error {
		plan.Complexity = classify.EstimateComplexity(text, s.tables)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap, err := s.prober.Snapshot(ctx)
	if err != nil {
		// A dead probe must not block routing; without a reading the heavy
		// tier stays closed.
		s.logger.Warn().Err(err).Msg("probe failed, routing local only")
		snap = probe.Snapshot{}
	}
	plan.Probe = snap

	in := router.Inputs{
		Utterance:        plan.Utterance,
		Classification:   plan.Classification,
		Complexity:       plan.Complexity,
		Probe:            snap,
		CouncilRequested: req.CouncilRequested,
	}
	if pref, ok := s.prefs.Get(req.UserID, plan.Complexity.Family); ok {
		in.Preference = &pref
	}

	decision, err := router.Route(in, s.catalog)
	if err != nil {
		return nil, err
	}
	plan.Decision = decision

	s.logger.Debug().
		Str("utterance_id", plan.Utterance.ID).
		Str("intent", string(plan.Classification.Intent)).
		Str("family", string(plan.Complexity.Family)).
		Str("mode", string(decision.Mode)).
		Strs("variants", decision.ChosenVariants).
		Msg("routed")
	return plan, nil
}

// Ask plans, invokes, fuses, and records the outcome. On cancellation the
// partial contributions come back with the error and nothing is recorded.
func (s *Session) Ask(ctx context.Context, req Request) (*Reply, error) {
	plan, err := s.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	reply := &Reply{Plan: plan}

	contributions, err := s.invoker.Execute(ctx, plan.Decision, plan.Utterance.Text)
	reply.Contributions = contributions
	if err != nil {
		// Cancelled or exhausted: the decision is discarded, no history.
		return reply, err
	}

	reply.Fusion = fuse.Fuse(plan.Decision.Mode, contributions)
	s.observe(req, plan)
	return reply, nil
}

// observe applies the accept/override outcome to the preference store, the
// history archive, and the analytics rings.
func (s *Session) observe(req Request, plan *Plan) {
	suggested := plan.Decision.Primary()
	chosen := req.ChosenVariant
	if chosen == "" {
		chosen = suggested
	}

	// Only an explicit choice touches the preference store; accepting a
	// suggestion by default is not a signal.
	if req.ChosenVariant != "" {
		if err := s.prefs.RecordOverride(req.UserID, plan.Complexity.Family, chosen, req.Remember); err != nil {
			// The request still completes; the store rolled back, so the
			// next signal retries the write.
			s.logger.Warn().Err(err).Msg("preference persist failed")
		}
	}

	entry := history.Entry{
		UtteranceID:      plan.Utterance.ID,
		Timestamp:        plan.Utterance.Timestamp,
		UserID:           req.UserID,
		Intent:           string(plan.Classification.Intent),
		TaskFamily:       string(plan.Complexity.Family),
		SuggestedVariant: suggested,
		ChosenVariant:    chosen,
		WasOverride:      chosen != suggested,
	}
	if s.archive != nil {
		if err := s.archive.Append(entry); err != nil {
			s.logger.Warn().Err(err).Msg("history append failed")
		}
	}
	if s.tracker != nil {
		s.tracker.Record(entry)
	}
}
