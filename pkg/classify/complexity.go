package classify

import "math"

const (
	baseCap        = 0.8
	baseWordScale  = 50.0
	codingBoost    = 0.1
	challengeBoost = 0.3
)

// Complexity is the result of complexity estimation.
type Complexity struct {
	// Score is the full-precision complexity in [0, 1]; routing uses this.
	Score float64

	// Display is Score rounded half-up to the nearest 0.05 for rendering.
	Display float64

	Family TaskFamily

	// Signals counts vocabulary hits per task family. The router uses the
	// number of distinct firing families when deciding council escalation.
	Signals map[TaskFamily]int

	Words          int
	ChallengeMatch bool
}

// EstimateComplexity computes a bounded complexity score and detects the
// task family. Like Classify it depends only on (text, tables).
func EstimateComplexity(text string, tables *Tables) Complexity {
	normalized := normalize(text)
	words := wordCount(normalized)

	score := math.Min(baseCap, float64(words)/baseWordScale)

	signals := map[TaskFamily]int{
		FamilyCoding:     countTokens(normalized, tables.Coding),
		FamilyReasoning:  countTokens(normalized, tables.Reasoning),
		FamilyWisdom:     countTokens(normalized, tables.Wisdom),
		FamilyEnterprise: countTokens(normalized, tables.Enterprise),
		FamilyMultimodal: countTokens(normalized, tables.Multimodal),
	}
	score += codingBoost * float64(signals[FamilyCoding])

	challenge := false
	if words >= challengeMinWords {
		if _, ok := detectChallenge(normalized, tables); ok {
			challenge = true
			score += challengeBoost
		}
	}

	if score > 1.0 {
		score = 1.0
	}

	return Complexity{
		Score:          score,
		Display:        roundToNearest(score, 0.05),
		Family:         detectFamily(normalized, signals, tables),
		Signals:        signals,
		Words:          words,
		ChallengeMatch: challenge,
	}
}

// detectFamily applies the fixed family precedence: coding, reasoning,
// wisdom, enterprise, multimodal, then dialogue openers, then general.
func detectFamily(normalized string, signals map[TaskFamily]int, tables *Tables) TaskFamily {
	ordered := []TaskFamily{
		FamilyCoding, FamilyReasoning, FamilyWisdom,
		FamilyEnterprise, FamilyMultimodal,
	}
	for _, family := range ordered {
		if signals[family] > 0 {
			return family
		}
	}
	if wordCount(normalized) <= openerMaxWords {
		for _, opener := range tables.Openers {
			if containsToken(normalized, opener) {
				return FamilyDialogue
			}
		}
	}
	return FamilyGeneral
}

// DistinctSignals returns how many task families have at least one hit.
func (c Complexity) DistinctSignals() int {
	n := 0
	for _, hits := range c.Signals {
		if hits > 0 {
			n++
		}
	}
	return n
}

func countTokens(normalized string, vocabulary []string) int {
	n := 0
	for _, token := range vocabulary {
		if containsToken(normalized, token) {
			n++
		}
	}
	return n
}

// roundToNearest rounds half-up to the nearest multiple of step.
func roundToNearest(v, step float64) float64 {
	return math.Floor(v/step+0.5) * step
}
