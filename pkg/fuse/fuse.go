// Package fuse merges council contributions into a single response. It never
// invents content: every line of a fused result comes from some contribution,
// with only labels added.
package fuse

import (
	"fmt"
	"strings"

	"github.com/lamplight-ai/djinn/pkg/invoke"
	"github.com/lamplight-ai/djinn/pkg/router"
)

const (
	maxFusedConfidence = 0.95

	// collaborationBonus rewards multiple independent ok replies.
	collaborationBonus = 0.1

	// supporterBonus is added to the leader's confidence per ok supporter.
	supporterBonus = 0.05

	// Agreement thresholds for consensus fusion.
	strongAgreement = 0.7
	weakAgreement   = 0.4

	// sequentialDecay weights later layers more in the fused confidence.
	sequentialDecay = 0.8
)

// Result is the fused council response.
type Result struct {
	Text                 string
	ContributingVariants []string
	Mode                 router.Mode
	Confidence           float64
}

// Fuse merges contributions per the decision mode. It requires at least one
// ok contribution; the invoker guarantees that by raising otherwise. Given
// that, Fuse always produces a result and never errors.
func Fuse(mode router.Mode, contributions []invoke.Contribution) Result {
	ok := okOnly(contributions)
	switch mode {
	case router.ModeCouncilParallel:
		return fuseParallel(ok)
	case router.ModeCouncilHierarchical:
		return fuseHierarchical(ok)
	case router.ModeCouncilConsensus:
		return fuseConsensus(ok)
	case router.ModeCouncilSequential:
		return fuseSequential(ok)
	default:
		return fuseSingle(ok)
	}
}

// fuseSingle passes the first usable reply through unchanged.
func fuseSingle(ok []invoke.Contribution) Result {
	c := ok[0]
	return Result{
		Text:                 c.Text,
		ContributingVariants: []string{c.VariantID},
		Mode:                 router.ModeSingle,
		Confidence:           c.Confidence,
	}
}

// fuseParallel concatenates every reply under a per-variant label.
func fuseParallel(ok []invoke.Contribution) Result {
	var b strings.Builder
	for i, c := range ok {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", c.VariantID, strings.TrimSpace(c.Text))
	}
	return Result{
		Text:                 b.String(),
		ContributingVariants: variantIDs(ok),
		Mode:                 router.ModeCouncilParallel,
		Confidence:           capConfidence(meanConfidence(ok) + collaborationBonus),
	}
}

// fuseHierarchical leads with the leader's reply; the invoker places the
// leader first. Supporters are appended when present.
func fuseHierarchical(ok []invoke.Contribution) Result {
	leader := ok[0]
	supporters := ok[1:]

	var b strings.Builder
	b.WriteString(strings.TrimSpace(leader.Text))
	if len(supporters) > 0 {
		b.WriteString("\n\nAdditional insights:")
		for _, c := range supporters {
			fmt.Fprintf(&b, "\n\n[%s]\n%s", c.VariantID, strings.TrimSpace(c.Text))
		}
	}
	return Result{
		Text:                 b.String(),
		ContributingVariants: variantIDs(ok),
		Mode:                 router.ModeCouncilHierarchical,
		Confidence:           capConfidence(leader.Confidence + supporterBonus*float64(len(supporters))),
	}
}

// fuseConsensus measures crude token agreement across replies and presents
// them as settled, split, or divergent.
func fuseConsensus(ok []invoke.Contribution) Result {
	agreement := agreementScore(ok)
	result := Result{
		ContributingVariants: variantIDs(ok),
		Mode:                 router.ModeCouncilConsensus,
	}

	switch {
	case agreement >= strongAgreement:
		result.Text = strings.TrimSpace(ok[0].Text)
		result.Confidence = 0.9
	case agreement >= weakAgreement:
		result.Text = bulleted(ok)
		result.Confidence = 0.7
	default:
		result.Text = "Divergent views:\n\n" + bulleted(ok)
		result.Confidence = 0.6
	}
	return result
}

// fuseSequential keeps the last layer's text and summarizes the path that
// produced it.
func fuseSequential(ok []invoke.Contribution) Result {
	var b strings.Builder
	if len(ok) > 1 {
		for i, c := range ok[:len(ok)-1] {
			fmt.Fprintf(&b, "(layer %d by %s)\n", i+1, c.VariantID)
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.TrimSpace(ok[len(ok)-1].Text))
	return Result{
		Text:                 b.String(),
		ContributingVariants: variantIDs(ok),
		Mode:                 router.ModeCouncilSequential,
		Confidence:           capConfidence(decayedMeanConfidence(ok)),
	}
}

func okOnly(contributions []invoke.Contribution) []invoke.Contribution {
	var ok []invoke.Contribution
	for _, c := range contributions {
		if c.OK() {
			ok = append(ok, c)
		}
	}
	return ok
}

func variantIDs(contributions []invoke.Contribution) []string {
	ids := make([]string, len(contributions))
	for i, c := range contributions {
		ids[i] = c.VariantID
	}
	return ids
}

// bulleted lists the distinct replies; variants that said the same thing
// share one bullet, credited to the first of them.
func bulleted(contributions []invoke.Contribution) string {
	var b strings.Builder
	seen := make(map[string]bool, len(contributions))
	for _, c := range contributions {
		text := strings.TrimSpace(c.Text)
		if seen[text] {
			continue
		}
		seen[text] = true
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- [%s] %s", c.VariantID, text)
	}
	return b.String()
}

func meanConfidence(contributions []invoke.Contribution) float64 {
	sum := 0.0
	for _, c := range contributions {
		sum += c.Confidence
	}
	return sum / float64(len(contributions))
}

// decayedMeanConfidence is a weighted mean where each step back from the
// final layer loses a factor of sequentialDecay.
func decayedMeanConfidence(contributions []invoke.Contribution) float64 {
	n := len(contributions)
	weight := 1.0
	sum, total := 0.0, 0.0
	for i := n - 1; i >= 0; i-- {
		sum += contributions[i].Confidence * weight
		total += weight
		weight *= sequentialDecay
	}
	return sum / total
}

// agreementScore is the size of the token set shared by all replies divided
// by the size of their union.
func agreementScore(contributions []invoke.Contribution) float64 {
	if len(contributions) < 2 {
		return 1.0
	}
	shared := tokenSet(contributions[0].Text)
	union := make(map[string]bool, len(shared))
	for t := range shared {
		union[t] = true
	}
	for _, c := range contributions[1:] {
		set := tokenSet(c.Text)
		for t := range set {
			union[t] = true
		}
		for t := range shared {
			if !set[t] {
				delete(shared, t)
			}
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(len(shared)) / float64(len(union))
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}

func capConfidence(v float64) float64 {
	if v > maxFusedConfidence {
		return maxFusedConfidence
	}
	return v
}
