// Package catalog holds the immutable inventory of model variants the
// router can choose from. The catalog is loaded once at startup and never
// mutated afterwards.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Tier is the coarse resource class of a variant.
type Tier string

const (
	TierLocal Tier = "local"
	TierHeavy Tier = "heavy"
)

// Role is the declared purpose of a variant.
type Role string

const (
	RoleDialogue            Role = "dialogue"
	RoleCoordinatorFast     Role = "coordinator_fast"
	RoleCoordinatorBalanced Role = "coordinator_balanced"
	RoleCoordinatorDeep     Role = "coordinator_deep"
	RoleCoding              Role = "coding"
	RoleReasoning           Role = "reasoning"
	RoleWisdom              Role = "wisdom"
	RoleMultimodal          Role = "multimodal"
	RoleEnterprise          Role = "enterprise"
)

// Roles lists every role the catalog must cover at the local tier.
var Roles = []Role{
	RoleDialogue,
	RoleCoordinatorFast,
	RoleCoordinatorBalanced,
	RoleCoordinatorDeep,
	RoleCoding,
	RoleReasoning,
	RoleWisdom,
	RoleMultimodal,
	RoleEnterprise,
}

// Variant describes one selectable model endpoint exposed by the runtime.
type Variant struct {
	ID           string  `yaml:"id"`
	Tier         Tier    `yaml:"tier"`
	Role         Role    `yaml:"role"`
	RAMGB        float64 `yaml:"ram_gb"`
	LatencyClass int     `yaml:"latency_class"`
}

// Catalog is an immutable set of variants indexed by id.
type Catalog struct {
	variants []Variant
	byID     map[string]Variant
}

// New builds a catalog from a variant list and validates it.
func New(variants []Variant) (*Catalog, error) {
	c := &Catalog{
		variants: append([]Variant(nil), variants...),
		byID:     make(map[string]Variant, len(variants)),
	}
	for _, v := range c.variants {
		if v.ID == "" {
			return nil, fmt.Errorf("catalog: variant with empty id")
		}
		if _, dup := c.byID[v.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate variant id %q", v.ID)
		}
		if v.Tier != TierLocal && v.Tier != TierHeavy {
			return nil, fmt.Errorf("catalog: variant %q has unknown tier %q", v.ID, v.Tier)
		}
		if v.RAMGB <= 0 {
			return nil, fmt.Errorf("catalog: variant %q has non-positive ram_gb", v.ID)
		}
		if v.LatencyClass <= 0 {
			return nil, fmt.Errorf("catalog: variant %q has non-positive latency_class", v.ID)
		}
		c.byID[v.ID] = v
	}
	if err := c.validateCoverage(); err != nil {
		return nil, err
	}
	return c, nil
}

// validateCoverage enforces the two structural invariants: every role has at
// least one local variant, and heavy variants of a role are strictly larger
// than every local variant of the same role.
func (c *Catalog) validateCoverage() error {
	for _, role := range Roles {
		maxLocal := 0.0
		haveLocal := false
		for _, v := range c.variants {
			if v.Role != role || v.Tier != TierLocal {
				continue
			}
			haveLocal = true
			if v.RAMGB > maxLocal {
				maxLocal = v.RAMGB
			}
		}
		if !haveLocal {
			return fmt.Errorf("catalog: role %q has no local-tier variant", role)
		}
		for _, v := range c.variants {
			if v.Role == role && v.Tier == TierHeavy && v.RAMGB <= maxLocal {
				return fmt.Errorf("catalog: heavy variant %q (%.1f GB) not larger than local peers of role %q", v.ID, v.RAMGB, role)
			}
		}
	}
	return nil
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Variants []Variant `yaml:"variants"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(file.Variants)
}

// Variants returns all variants, ordered by id.
func (c *Catalog) Variants() []Variant {
	out := append([]Variant(nil), c.variants...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the variant with the given id.
func (c *Catalog) Get(id string) (Variant, bool) {
	v, ok := c.byID[id]
	return v, ok
}

// FindForRole returns variants of a role ordered by ascending declared RAM.
// Ties are broken by latency class, then id, so the order is deterministic.
func (c *Catalog) FindForRole(role Role) []Variant {
	var out []Variant
	for _, v := range c.variants {
		if v.Role == role {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RAMGB != out[j].RAMGB {
			return out[i].RAMGB < out[j].RAMGB
		}
		if out[i].LatencyClass != out[j].LatencyClass {
			return out[i].LatencyClass < out[j].LatencyClass
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FallbackFor returns weakly equivalent substitutes for a variant: peers of
// the same role with equal or lower declared RAM, strongest first.
func (c *Catalog) FallbackFor(v Variant) []Variant {
	var out []Variant
	for _, candidate := range c.variants {
		if candidate.ID == v.ID || candidate.Role != v.Role {
			continue
		}
		if candidate.RAMGB <= v.RAMGB {
			out = append(out, candidate)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RAMGB != out[j].RAMGB {
			return out[i].RAMGB > out[j].RAMGB
		}
		if out[i].LatencyClass != out[j].LatencyClass {
			return out[i].LatencyClass < out[j].LatencyClass
		}
		return out[i].ID < out[j].ID
	})
	return out
}
