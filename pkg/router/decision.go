package router

import (
	"time"

	"github.com/lamplight-ai/djinn/pkg/classify"
)

// Mode describes how the chosen variants are invoked.
type Mode string

const (
	ModeSingle              Mode = "single"
	ModeCouncilParallel     Mode = "council_parallel"
	ModeCouncilHierarchical Mode = "council_hierarchical"
	ModeCouncilConsensus    Mode = "council_consensus"
	ModeCouncilSequential   Mode = "council_sequential"
)

// IsCouncil reports whether the mode invokes more than one variant.
func (m Mode) IsCouncil() bool { return m != ModeSingle }

// ForcedTier is a caller-supplied tier override.
type ForcedTier string

const (
	TierAuto        ForcedTier = "auto"
	TierForcedLocal ForcedTier = "local"
	TierForcedHeavy ForcedTier = "heavy"
)

// Bucket is the coarse complexity class attached to command intents.
type Bucket string

const (
	BucketSimple   Bucket = "simple"
	BucketModerate Bucket = "moderate"
	BucketComplex  Bucket = "complex"
)

// Utterance is one user request.
type Utterance struct {
	ID         string
	Text       string
	UserID     string
	Timestamp  time.Time
	ForcedTier ForcedTier
}

// Decision is the router's output for one utterance. There is exactly one
// decision type; every surface renders it rather than re-deriving routing.
type Decision struct {
	UtteranceID    string
	ChosenVariants []string
	Mode           Mode
	Leader         string
	Reasoning      []string
	Intent         classify.Intent
	Specialist     classify.Specialist
	TaskFamily     classify.TaskFamily
	Complexity     float64
	Bucket         Bucket
	Confidence     float64
	FallbackChain  []string
}

// Primary returns the first chosen variant.
func (d *Decision) Primary() string {
	if len(d.ChosenVariants) == 0 {
		return ""
	}
	return d.ChosenVariants[0]
}
