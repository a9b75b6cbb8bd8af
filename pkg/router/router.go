// Package router selects which model variants answer an utterance. The
// selection is a pure function of the utterance, its classification, a
// probe snapshot, the catalog, and any learned preference, so identical
// inputs always produce identical decisions.
package router

import (
	"errors"
	"fmt"

	"github.com/lamplight-ai/djinn/pkg/catalog"
	"github.com/lamplight-ai/djinn/pkg/classify"
	"github.com/lamplight-ai/djinn/pkg/prefs"
	"github.com/lamplight-ai/djinn/pkg/probe"
)

// ErrNoEligibleVariant means the catalog cannot cover a required role. It is
// a configuration error, not a runtime fault.
var ErrNoEligibleVariant = errors.New("no eligible variant")

const (
	simpleCeiling   = 0.3
	moderateCeiling = 0.6

	councilComplexityFloor = 0.8
	councilMinSignals      = 2
	councilMaxSize         = 4

	preferenceConfidence = 0.9
	fallbackPenalty      = 0.15
)

// Inputs gathers everything a routing decision depends on.
type Inputs struct {
	Utterance        Utterance
	Classification   classify.Classification
	Complexity       classify.Complexity
	Probe            probe.Snapshot
	Preference       *prefs.Record
	CouncilRequested bool
}

// Route applies the selection algorithm and returns the decision.
func Route(in Inputs, cat *catalog.Catalog) (*Decision, error) {
	d := &Decision{
		UtteranceID: in.Utterance.ID,
		Intent:      in.Classification.Intent,
		Specialist:  in.Classification.Specialist,
		TaskFamily:  in.Complexity.Family,
		Complexity:  in.Complexity.Score,
		Bucket:      bucketFor(in.Complexity.Score),
	}

	// Rule 1: forced tier override skips everything else.
	if tier, forced := forcedTier(in.Utterance.ForcedTier); forced {
		return routeForcedTier(d, in, cat, tier)
	}

	// Rule 2: learned preference, if it fits the current tier budget.
	if pref := in.Preference; pref != nil {
		if v, ok := cat.Get(pref.VariantID); ok && tierAllowed(v.Tier, in.Probe) {
			d.Reasoning = append(d.Reasoning, "applied learned preference")
			d.Confidence = preferenceConfidence
			return single(d, v, in.Probe, cat), nil
		}
	}

	// Explicit council requests bypass the single-variant fast paths.
	if in.CouncilRequested {
		d.Reasoning = append(d.Reasoning, "council requested by caller")
		return council(d, in, cat)
	}

	// Rule 3: intent fast paths.
	switch in.Classification.Intent {
	case classify.IntentDialogue:
		v, err := bestInTier(cat, catalog.RoleDialogue, catalog.TierLocal)
		if err != nil {
			return nil, err
		}
		d.Reasoning = append(d.Reasoning, "dialogue intent routed to dialogue role")
		d.Confidence = in.Classification.Confidence
		return single(d, v, in.Probe, cat), nil

	case classify.IntentMeta:
		v, err := bestInTier(cat, catalog.RoleWisdom, catalog.TierLocal)
		if err != nil {
			return nil, err
		}
		d.Reasoning = append(d.Reasoning, "meta intent routed to wisdom role")
		d.Confidence = in.Classification.Confidence
		return single(d, v, in.Probe, cat), nil

	case classify.IntentDjinnChallenge:
		return routeChallenge(d, in, cat)
	}

	// Rule 4: complexity-tiered command routing.
	return routeCommand(d, in, cat)
}

func routeForcedTier(d *Decision, in Inputs, cat *catalog.Catalog, tier catalog.Tier) (*Decision, error) {
	role := roleForFamily(in.Complexity.Family)
	v, err := bestInTier(cat, role, tier)
	if err != nil {
		// The forced tier may not cover the role; degrade to the other
		// tier rather than failing the request.
		other := catalog.TierLocal
		if tier == catalog.TierLocal {
			other = catalog.TierHeavy
		}
		v, err = bestInTier(cat, role, other)
		if err != nil {
			return nil, err
		}
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("forced tier %s has no %s variant, using %s tier", tier, role, other))
	} else {
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("forced tier %s", tier))
	}
	d.Confidence = in.Classification.Confidence
	return single(d, v, in.Probe, cat), nil
}

func routeChallenge(d *Decision, in Inputs, cat *catalog.Catalog) (*Decision, error) {
	role := roleForSpecialist(in.Classification.Specialist)
	heavy, err := bestInTier(cat, role, catalog.TierHeavy)
	if err == nil && in.Probe.HeavyTierAllowed {
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("djinn challenge: selected heavy specialist %s", heavy.ID))
		d.Confidence = in.Classification.Confidence
		return single(d, heavy, in.Probe, cat), nil
	}

	// Heavy tier unavailable: substitute from the specialist's fallbacks.
	var substitute catalog.Variant
	found := false
	if err == nil {
		for _, fb := range cat.FallbackFor(heavy) {
			if fb.Tier == catalog.TierLocal {
				substitute = fb
				found = true
				break
			}
		}
	}
	if !found {
		substitute, err = bestInTier(cat, role, catalog.TierLocal)
		if err != nil {
			return nil, err
		}
	}
	d.Reasoning = append(d.Reasoning, fmt.Sprintf("heavy tier unavailable, using local fallback %s", substitute.ID))
	d.Confidence = maxFloat(0.1, in.Classification.Confidence-fallbackPenalty)
	return single(d, substitute, in.Probe, cat), nil
}

func routeCommand(d *Decision, in Inputs, cat *catalog.Catalog) (*Decision, error) {
	// Rule 5: automatic council escalation for broad, hard commands.
	if in.Complexity.Score > councilComplexityFloor && in.Complexity.DistinctSignals() >= councilMinSignals {
		d.Reasoning = append(d.Reasoning,
			fmt.Sprintf("escalated to council: complexity %.2f with %d family signals", in.Complexity.Score, in.Complexity.DistinctSignals()))
		return council(d, in, cat)
	}

	score := in.Complexity.Score
	switch {
	case score <= simpleCeiling:
		v, err := bestInTier(cat, catalog.RoleCoordinatorFast, catalog.TierLocal)
		if err != nil {
			return nil, err
		}
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("complexity %.2f in simple bucket", score))
		d.Confidence = in.Classification.Confidence
		return single(d, v, in.Probe, cat), nil

	case score <= moderateCeiling:
		v, err := bestInTier(cat, catalog.RoleCoordinatorBalanced, catalog.TierLocal)
		if err != nil {
			return nil, err
		}
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("complexity %.2f in moderate bucket", score))
		d.Confidence = in.Classification.Confidence
		return single(d, v, in.Probe, cat), nil

	default:
		if in.Probe.HeavyTierAllowed {
			v, err := bestInTier(cat, catalog.RoleCoordinatorDeep, catalog.TierHeavy)
			if err != nil {
				v, err = bestInTier(cat, catalog.RoleCoordinatorDeep, catalog.TierLocal)
				if err != nil {
					return nil, err
				}
			}
			d.Reasoning = append(d.Reasoning, fmt.Sprintf("complexity %.2f in complex bucket", score))
			d.Confidence = in.Classification.Confidence
			return single(d, v, in.Probe, cat), nil
		}
		v, err := bestInTier(cat, catalog.RoleCoordinatorBalanced, catalog.TierLocal)
		if err != nil {
			return nil, err
		}
		d.Reasoning = append(d.Reasoning,
			fmt.Sprintf("complexity %.2f in complex bucket", score),
			"heavy tier unavailable, degraded to balanced")
		d.Confidence = in.Classification.Confidence
		return single(d, v, in.Probe, cat), nil
	}
}

// council assembles a multi-variant decision: the family specialist, the
// balanced coordinator, and the reasoning specialist, deduplicated.
func council(d *Decision, in Inputs, cat *catalog.Catalog) (*Decision, error) {
	specialist, err := pickForRole(cat, roleForFamily(in.Complexity.Family), in.Probe)
	if err != nil {
		return nil, err
	}

	members := []catalog.Variant{specialist}
	for _, role := range []catalog.Role{catalog.RoleCoordinatorBalanced, catalog.RoleReasoning} {
		v, err := pickForRole(cat, role, in.Probe)
		if err != nil {
			continue
		}
		if !containsVariant(members, v.ID) {
			members = append(members, v)
		}
		if len(members) == councilMaxSize {
			break
		}
	}

	switch {
	case in.Complexity.Family == classify.FamilyWisdom:
		d.Mode = ModeCouncilConsensus
	case hasSpecialistRole(in.Complexity.Family):
		d.Mode = ModeCouncilHierarchical
		d.Leader = specialist.ID
	default:
		d.Mode = ModeCouncilParallel
	}

	for _, m := range members {
		d.ChosenVariants = append(d.ChosenVariants, m.ID)
	}
	d.Confidence = maxFloat(in.Classification.Confidence, 0.6)
	d.FallbackChain = fallbackIDs(cat, specialist, in.Probe)
	d.Reasoning = append(d.Reasoning, fmt.Sprintf("council of %d in %s mode", len(members), d.Mode))
	return d, nil
}

// single finalizes a one-variant decision, attaching its fallback chain.
func single(d *Decision, v catalog.Variant, snap probe.Snapshot, cat *catalog.Catalog) *Decision {
	d.Mode = ModeSingle
	d.ChosenVariants = []string{v.ID}
	d.Leader = v.ID
	d.FallbackChain = fallbackIDs(cat, v, snap)
	return d
}

// fallbackIDs lists substitutes usable under the current tier budget.
func fallbackIDs(cat *catalog.Catalog, v catalog.Variant, snap probe.Snapshot) []string {
	var ids []string
	for _, fb := range cat.FallbackFor(v) {
		if tierAllowed(fb.Tier, snap) {
			ids = append(ids, fb.ID)
		}
	}
	return ids
}

// bestInTier returns the most eligible variant of a role within a tier.
// FindForRole already orders by RAM, latency class, then id, so the first
// match wins all tie-breaks.
func bestInTier(cat *catalog.Catalog, role catalog.Role, tier catalog.Tier) (catalog.Variant, error) {
	for _, v := range cat.FindForRole(role) {
		if v.Tier == tier {
			return v, nil
		}
	}
	return catalog.Variant{}, fmt.Errorf("%w: role %s in tier %s", ErrNoEligibleVariant, role, tier)
}

// pickForRole prefers the heavy variant when the budget permits, falling
// back to the local one.
func pickForRole(cat *catalog.Catalog, role catalog.Role, snap probe.Snapshot) (catalog.Variant, error) {
	if snap.HeavyTierAllowed {
		if v, err := bestInTier(cat, role, catalog.TierHeavy); err == nil {
			return v, nil
		}
	}
	return bestInTier(cat, role, catalog.TierLocal)
}

func forcedTier(t ForcedTier) (catalog.Tier, bool) {
	switch t {
	case TierForcedLocal:
		return catalog.TierLocal, true
	case TierForcedHeavy:
		return catalog.TierHeavy, true
	default:
		return "", false
	}
}

func tierAllowed(tier catalog.Tier, snap probe.Snapshot) bool {
	return tier == catalog.TierLocal || snap.HeavyTierAllowed
}

func roleForFamily(family classify.TaskFamily) catalog.Role {
	switch family {
	case classify.FamilyCoding:
		return catalog.RoleCoding
	case classify.FamilyReasoning:
		return catalog.RoleReasoning
	case classify.FamilyDialogue:
		return catalog.RoleDialogue
	case classify.FamilyWisdom:
		return catalog.RoleWisdom
	case classify.FamilyMultimodal:
		return catalog.RoleMultimodal
	case classify.FamilyEnterprise:
		return catalog.RoleEnterprise
	default:
		return catalog.RoleCoordinatorBalanced
	}
}

func roleForSpecialist(s classify.Specialist) catalog.Role {
	switch s {
	case classify.SpecialistCoding:
		return catalog.RoleCoding
	case classify.SpecialistReasoning:
		return catalog.RoleReasoning
	case classify.SpecialistEnterprise:
		return catalog.RoleEnterprise
	case classify.SpecialistMultimodal:
		return catalog.RoleMultimodal
	case classify.SpecialistWisdom:
		return catalog.RoleWisdom
	default:
		return catalog.RoleCoordinatorDeep
	}
}

func hasSpecialistRole(family classify.TaskFamily) bool {
	switch family {
	case classify.FamilyCoding, classify.FamilyReasoning, classify.FamilyWisdom,
		classify.FamilyMultimodal, classify.FamilyEnterprise:
		return true
	default:
		return false
	}
}

func bucketFor(score float64) Bucket {
	switch {
	case score <= simpleCeiling:
		return BucketSimple
	case score <= moderateCeiling:
		return BucketModerate
	default:
		return BucketComplex
	}
}

func containsVariant(variants []catalog.Variant, id string) bool {
	for _, v := range variants {
		if v.ID == id {
			return true
		}
	}
	return false
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
