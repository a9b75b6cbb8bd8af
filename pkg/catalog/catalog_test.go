package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCoversEveryRoleLocally(t *testing.T) {
	c := Default()
	for _, role := range Roles {
		variants := c.FindForRole(role)
		if len(variants) == 0 {
			t.Fatalf("role %s has no variants", role)
		}
		haveLocal := false
		for _, v := range variants {
			if v.Tier == TierLocal {
				haveLocal = true
			}
		}
		if !haveLocal {
			t.Fatalf("role %s has no local variant", role)
		}
	}
}

func TestFindForRoleOrdering(t *testing.T) {
	c := Default()
	variants := c.FindForRole(RoleCoding)
	for i := 1; i < len(variants); i++ {
		if variants[i].RAMGB < variants[i-1].RAMGB {
			t.Fatalf("FindForRole not sorted by RAM: %+v", variants)
		}
	}
	if variants[0].Tier != TierLocal {
		t.Fatalf("smallest coding variant should be local, got %+v", variants[0])
	}
}

func TestFallbackForNeverExceedsPrimaryRAM(t *testing.T) {
	c := Default()
	for _, v := range c.Variants() {
		for _, fb := range c.FallbackFor(v) {
			if fb.RAMGB > v.RAMGB {
				t.Fatalf("fallback %s (%.1f GB) exceeds primary %s (%.1f GB)", fb.ID, fb.RAMGB, v.ID, v.RAMGB)
			}
			if fb.Role != v.Role {
				t.Fatalf("fallback %s has role %s, primary %s has role %s", fb.ID, fb.Role, v.ID, v.Role)
			}
			if fb.ID == v.ID {
				t.Fatalf("variant %s listed as its own fallback", v.ID)
			}
		}
	}
}

func TestHeavySpecialistHasLocalFallback(t *testing.T) {
	c := Default()
	for _, v := range c.Variants() {
		if v.Tier != TierHeavy {
			continue
		}
		chain := c.FallbackFor(v)
		if len(chain) == 0 {
			t.Fatalf("heavy variant %s has no fallback", v.ID)
		}
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]Variant{
		{ID: "a", Tier: TierLocal, Role: RoleDialogue, RAMGB: 1, LatencyClass: 1},
		{ID: "a", Tier: TierLocal, Role: RoleDialogue, RAMGB: 2, LatencyClass: 1},
	})
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestNewRejectsUncoveredRole(t *testing.T) {
	_, err := New([]Variant{
		{ID: "a", Tier: TierLocal, Role: RoleDialogue, RAMGB: 1, LatencyClass: 1},
	})
	if err == nil {
		t.Fatal("expected coverage error")
	}
}

func TestNewRejectsUndersizedHeavyVariant(t *testing.T) {
	variants := Default().Variants()
	for i := range variants {
		if variants[i].ID == "djinn-coder-70b" {
			variants[i].RAMGB = 4 // smaller than the local coding variant
		}
	}
	_, err := New(variants)
	if err == nil {
		t.Fatal("expected heavy-tier size error")
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `variants:
  - id: chat-s
    tier: local
    role: dialogue
    ram_gb: 2
    latency_class: 1
  - id: fast-s
    tier: local
    role: coordinator_fast
    ram_gb: 3
    latency_class: 1
  - id: bal-s
    tier: local
    role: coordinator_balanced
    ram_gb: 5
    latency_class: 2
  - id: deep-s
    tier: local
    role: coordinator_deep
    ram_gb: 8
    latency_class: 3
  - id: code-s
    tier: local
    role: coding
    ram_gb: 4
    latency_class: 2
  - id: logic-s
    tier: local
    role: reasoning
    ram_gb: 4
    latency_class: 2
  - id: sage-s
    tier: local
    role: wisdom
    ram_gb: 4
    latency_class: 2
  - id: iris-s
    tier: local
    role: multimodal
    ram_gb: 5
    latency_class: 2
  - id: atlas-s
    tier: local
    role: enterprise
    ram_gb: 5
    latency_class: 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(c.Variants()) != 9 {
		t.Fatalf("expected 9 variants, got %d", len(c.Variants()))
	}
	v, ok := c.Get("code-s")
	if !ok || v.Role != RoleCoding {
		t.Fatalf("unexpected variant: %+v ok=%v", v, ok)
	}
}
