package catalog

// Default returns the built-in catalog used when no catalog file is
// configured. Local variants cover every role so routing always has a
// usable answer; heavy variants are the large specialists unlocked when
// the system probe permits the heavy tier.
func Default() *Catalog {
	c, err := New([]Variant{
		// Local tier.
		{ID: "wick-3b", Tier: TierLocal, Role: RoleDialogue, RAMGB: 3, LatencyClass: 1},
		{ID: "lamp-7b", Tier: TierLocal, Role: RoleCoordinatorFast, RAMGB: 5, LatencyClass: 1},
		{ID: "lamp-13b", Tier: TierLocal, Role: RoleCoordinatorBalanced, RAMGB: 9, LatencyClass: 2},
		{ID: "ember-20b", Tier: TierLocal, Role: RoleCoordinatorDeep, RAMGB: 14, LatencyClass: 3},
		{ID: "smith-7b", Tier: TierLocal, Role: RoleCoding, RAMGB: 6, LatencyClass: 2},
		{ID: "scribe-7b", Tier: TierLocal, Role: RoleReasoning, RAMGB: 6, LatencyClass: 2},
		{ID: "sage-7b", Tier: TierLocal, Role: RoleWisdom, RAMGB: 6, LatencyClass: 2},
		{ID: "iris-8b", Tier: TierLocal, Role: RoleMultimodal, RAMGB: 7, LatencyClass: 2},
		{ID: "atlas-8b", Tier: TierLocal, Role: RoleEnterprise, RAMGB: 7, LatencyClass: 2},

		// Heavy tier specialists.
		{ID: "djinn-deep-70b", Tier: TierHeavy, Role: RoleCoordinatorDeep, RAMGB: 40, LatencyClass: 4},
		{ID: "djinn-coder-70b", Tier: TierHeavy, Role: RoleCoding, RAMGB: 42, LatencyClass: 4},
		{ID: "djinn-logic-70b", Tier: TierHeavy, Role: RoleReasoning, RAMGB: 42, LatencyClass: 4},
		{ID: "djinn-sage-72b", Tier: TierHeavy, Role: RoleWisdom, RAMGB: 44, LatencyClass: 4},
		{ID: "djinn-vision-90b", Tier: TierHeavy, Role: RoleMultimodal, RAMGB: 55, LatencyClass: 5},
		{ID: "djinn-atlas-110b", Tier: TierHeavy, Role: RoleEnterprise, RAMGB: 64, LatencyClass: 5},
	})
	if err != nil {
		// The built-in catalog is validated by tests; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return c
}
