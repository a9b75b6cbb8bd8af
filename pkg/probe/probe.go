// Package probe reports current system capacity: available RAM, CPU load,
// and whether the heavy model tier is permitted right now.
package probe

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Default thresholds. Stress kicks in when RAM or CPU usage crosses its
// threshold; the heavy tier additionally requires enough total RAM.
const (
	DefaultRAMStressPct   = 85.0
	DefaultCPUStressPct   = 90.0
	DefaultHeavyTierRAMGB = 64.0

	// snapshotTTL bounds staleness. One stale read within a second is
	// acceptable to the router, so snapshots are cached rather than locked
	// per request.
	snapshotTTL = time.Second
)

// Snapshot is a point-in-time capacity reading.
type Snapshot struct {
	TotalRAMGB       float64
	AvailableRAMGB   float64
	RAMUsedPct       float64
	CPULoadPct       float64
	UnderStress      bool
	HeavyTierAllowed bool
	TakenAt          time.Time
}

// Prober supplies capacity snapshots. The router depends on this interface
// so tests can pin capacity without touching the host.
type Prober interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Thresholds configures stress and heavy-tier limits.
type Thresholds struct {
	RAMStressPct   float64
	CPUStressPct   float64
	HeavyTierRAMGB float64
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RAMStressPct:   DefaultRAMStressPct,
		CPUStressPct:   DefaultCPUStressPct,
		HeavyTierRAMGB: DefaultHeavyTierRAMGB,
	}
}

// SystemProbe reads host capacity via gopsutil, caching snapshots briefly.
type SystemProbe struct {
	thresholds Thresholds
	logger     zerolog.Logger

	mu     sync.Mutex
	cached Snapshot
}

// NewSystemProbe creates a probe with the given thresholds.
func NewSystemProbe(thresholds Thresholds, logger zerolog.Logger) *SystemProbe {
	return &SystemProbe{thresholds: thresholds, logger: logger}
}

// Snapshot returns a capacity reading, reusing a cached one if it is fresh.
func (p *SystemProbe) Snapshot(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.cached.TakenAt.IsZero() && time.Since(p.cached.TakenAt) < snapshotTTL {
		return p.cached, nil
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	cpuLoad := 0.0
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		cpuLoad = percents[0]
	}

	snap := Evaluate(
		float64(vm.Total)/(1<<30),
		float64(vm.Available)/(1<<30),
		vm.UsedPercent,
		cpuLoad,
		p.thresholds,
	)
	snap.TakenAt = time.Now()

	p.logger.Debug().
		Float64("total_ram_gb", snap.TotalRAMGB).
		Float64("available_ram_gb", snap.AvailableRAMGB).
		Float64("cpu_load_pct", snap.CPULoadPct).
		Bool("under_stress", snap.UnderStress).
		Bool("heavy_tier_allowed", snap.HeavyTierAllowed).
		Msg("probe snapshot")

	p.cached = snap
	return snap, nil
}

// Evaluate derives the stress and heavy-tier verdicts from raw readings.
// Split out so the policy is testable without a live host.
func Evaluate(totalGB, availableGB, ramUsedPct, cpuLoadPct float64, thresholds Thresholds) Snapshot {
	underStress := ramUsedPct > thresholds.RAMStressPct || cpuLoadPct > thresholds.CPUStressPct
	return Snapshot{
		TotalRAMGB:       totalGB,
		AvailableRAMGB:   availableGB,
		RAMUsedPct:       ramUsedPct,
		CPULoadPct:       cpuLoadPct,
		UnderStress:      underStress,
		HeavyTierAllowed: totalGB >= thresholds.HeavyTierRAMGB && !underStress,
	}
}

// Static is a Prober that always returns a fixed snapshot. Used in tests
// and for --tier overrides in dry runs.
type Static struct {
	Snap Snapshot
}

// Snapshot returns the fixed snapshot.
func (s Static) Snapshot(context.Context) (Snapshot, error) {
	return s.Snap, nil
}
