package probe

import "testing"

func TestEvaluate(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		name        string
		totalGB     float64
		ramUsedPct  float64
		cpuLoadPct  float64
		wantStress  bool
		wantHeavy   bool
	}{
		{name: "idle big box", totalGB: 128, ramUsedPct: 30, cpuLoadPct: 10, wantStress: false, wantHeavy: true},
		{name: "ram stress blocks heavy", totalGB: 128, ramUsedPct: 90, cpuLoadPct: 10, wantStress: true, wantHeavy: false},
		{name: "cpu stress blocks heavy", totalGB: 128, ramUsedPct: 30, cpuLoadPct: 95, wantStress: true, wantHeavy: false},
		{name: "small box never heavy", totalGB: 32, ramUsedPct: 20, cpuLoadPct: 5, wantStress: false, wantHeavy: false},
		{name: "exact heavy threshold allowed", totalGB: 64, ramUsedPct: 20, cpuLoadPct: 5, wantStress: false, wantHeavy: true},
		{name: "exact stress threshold is not stress", totalGB: 128, ramUsedPct: 85, cpuLoadPct: 90, wantStress: false, wantHeavy: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Evaluate(tt.totalGB, tt.totalGB/2, tt.ramUsedPct, tt.cpuLoadPct, thresholds)
			if snap.UnderStress != tt.wantStress {
				t.Fatalf("under_stress = %v, want %v", snap.UnderStress, tt.wantStress)
			}
			if snap.HeavyTierAllowed != tt.wantHeavy {
				t.Fatalf("heavy_tier_allowed = %v, want %v", snap.HeavyTierAllowed, tt.wantHeavy)
			}
		})
	}
}
