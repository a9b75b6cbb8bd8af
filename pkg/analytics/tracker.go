// Package analytics tracks routing outcomes per user and derives read-only
// summary metrics. It never influences routing directly; the preference
// store carries the adaptive signal.
package analytics

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lamplight-ai/djinn/pkg/history"
)

const (
	// DefaultRingSize bounds the per-user history ring; oldest entries are
	// evicted first.
	DefaultRingSize = 200

	// DefaultMaxUsers bounds how many users stay resident. A shared archive
	// can mention many users; only the most recently active ones are kept.
	DefaultMaxUsers = 64
)

// OverridePair is a (suggested, chosen) disagreement with its frequency.
type OverridePair struct {
	Suggested string
	Chosen    string
	Count     int
}

// Summary is a point-in-time snapshot of one user's metrics.
type Summary struct {
	UserID  string
	Entries int

	// RouterAccuracy is the percentage of entries the user accepted.
	RouterAccuracy float64

	// MostOverridden is nil when the user never overrode a suggestion.
	MostOverridden *OverridePair

	UsageByVariant map[string]int

	// PreferenceByFamily maps each seen task family to its most frequently
	// chosen variant.
	PreferenceByFamily map[string]string
}

// Tracker holds bounded history rings keyed by user id.
type Tracker struct {
	mu       sync.RWMutex
	rings    *lru.Cache[string, *userRing]
	ringSize int
}

type userRing struct {
	entries []history.Entry
	next    int
	full    bool
}

func (r *userRing) add(e history.Entry) {
	if len(r.entries) < cap(r.entries) {
		r.entries = append(r.entries, e)
		return
	}
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	r.full = true
}

// ordered returns entries oldest first.
func (r *userRing) ordered() []history.Entry {
	if !r.full {
		return append([]history.Entry(nil), r.entries...)
	}
	out := make([]history.Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}

// NewTracker creates a tracker with the given ring size and user cap; zero
// values select the defaults.
func NewTracker(ringSize, maxUsers int) (*Tracker, error) {
	if ringSize <= 0 {
		ringSize = DefaultRingSize
	}
	if maxUsers <= 0 {
		maxUsers = DefaultMaxUsers
	}
	rings, err := lru.New[string, *userRing](maxUsers)
	if err != nil {
		return nil, err
	}
	return &Tracker{rings: rings, ringSize: ringSize}, nil
}

// Record adds one outcome to the user's ring, evicting the oldest entry
// when the ring is full.
func (t *Tracker) Record(e history.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ring, ok := t.rings.Get(e.UserID)
	if !ok {
		ring = &userRing{entries: make([]history.Entry, 0, t.ringSize)}
		t.rings.Add(e.UserID, ring)
	}
	ring.add(e)
}

// Replay rebuilds the rings from the on-disk archive.
func (t *Tracker) Replay(archive *history.Archive) error {
	return archive.Replay(t.Record)
}

// SummaryFor derives the user's metrics from a snapshot of their ring.
func (t *Tracker) SummaryFor(userID string) Summary {
	t.mu.RLock()
	ring, ok := t.rings.Get(userID)
	var entries []history.Entry
	if ok {
		entries = ring.ordered()
	}
	t.mu.RUnlock()

	s := Summary{
		UserID:             userID,
		Entries:            len(entries),
		UsageByVariant:     make(map[string]int),
		PreferenceByFamily: make(map[string]string),
	}
	if len(entries) == 0 {
		return s
	}

	accepted := 0
	overrides := make(map[OverridePair]int)
	familyCounts := make(map[string]map[string]int)
	for _, e := range entries {
		if !e.WasOverride {
			accepted++
		} else if e.SuggestedVariant != e.ChosenVariant {
			overrides[OverridePair{Suggested: e.SuggestedVariant, Chosen: e.ChosenVariant}]++
		}
		s.UsageByVariant[e.ChosenVariant]++
		if familyCounts[e.TaskFamily] == nil {
			familyCounts[e.TaskFamily] = make(map[string]int)
		}
		familyCounts[e.TaskFamily][e.ChosenVariant]++
	}

	s.RouterAccuracy = 100 * float64(accepted) / float64(len(entries))
	s.MostOverridden = topOverride(overrides)
	for family, counts := range familyCounts {
		s.PreferenceByFamily[family] = topVariant(counts)
	}
	return s
}

// Users returns the resident user ids, most recently active last.
func (t *Tracker) Users() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rings.Keys()
}

// topOverride picks the most frequent pair, ties broken lexicographically
// so summaries are deterministic.
func topOverride(overrides map[OverridePair]int) *OverridePair {
	if len(overrides) == 0 {
		return nil
	}
	pairs := make([]OverridePair, 0, len(overrides))
	for p, n := range overrides {
		p.Count = n
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].Suggested != pairs[j].Suggested {
			return pairs[i].Suggested < pairs[j].Suggested
		}
		return pairs[i].Chosen < pairs[j].Chosen
	})
	top := pairs[0]
	return &top
}

func topVariant(counts map[string]int) string {
	best, bestCount := "", -1
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if counts[id] > bestCount {
			best, bestCount = id, counts[id]
		}
	}
	return best
}
