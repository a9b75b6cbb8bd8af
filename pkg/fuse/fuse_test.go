package fuse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamplight-ai/djinn/pkg/invoke"
	"github.com/lamplight-ai/djinn/pkg/router"
)

func ok(variantID, text string, confidence float64) invoke.Contribution {
	return invoke.Contribution{
		VariantID:  variantID,
		Text:       text,
		Confidence: confidence,
		Status:     invoke.StatusOK,
	}
}

func failed(variantID string) invoke.Contribution {
	return invoke.Contribution{VariantID: variantID, Status: invoke.StatusError, Diag: "down"}
}

func TestFuseSinglePassthrough(t *testing.T) {
	got := Fuse(router.ModeSingle, []invoke.Contribution{ok("lamp-7b", "the answer", 0.8)})

	assert.Equal(t, "the answer", got.Text)
	assert.Equal(t, []string{"lamp-7b"}, got.ContributingVariants)
	assert.Equal(t, router.ModeSingle, got.Mode)
	assert.Equal(t, 0.8, got.Confidence)
}

func TestFuseSingleSkipsFailedAttempts(t *testing.T) {
	got := Fuse(router.ModeSingle, []invoke.Contribution{
		failed("ember-20b"),
		ok("lamp-13b", "fallback reply", 0.7),
	})

	assert.Equal(t, "fallback reply", got.Text)
	assert.Equal(t, []string{"lamp-13b"}, got.ContributingVariants)
}

func TestFuseParallelLabelsEachVariant(t *testing.T) {
	got := Fuse(router.ModeCouncilParallel, []invoke.Contribution{
		ok("djinn-coder-70b", "use a worker pool", 0.8),
		ok("scribe-7b", "bound the queue first", 0.6),
	})

	assert.Contains(t, got.Text, "[djinn-coder-70b]\nuse a worker pool")
	assert.Contains(t, got.Text, "[scribe-7b]\nbound the queue first")
	assert.InDelta(t, 0.8, got.Confidence, 1e-9) // mean 0.7 + 0.1 bonus
}

func TestFuseParallelConfidenceCap(t *testing.T) {
	got := Fuse(router.ModeCouncilParallel, []invoke.Contribution{
		ok("a-model", "x", 0.9),
		ok("b-model", "y", 0.95),
	})

	assert.Equal(t, 0.95, got.Confidence)
}

func TestFuseHierarchicalLeaderFirst(t *testing.T) {
	got := Fuse(router.ModeCouncilHierarchical, []invoke.Contribution{
		ok("djinn-coder-70b", "leader plan", 0.8),
		ok("lamp-13b", "supporting note", 0.6),
		failed("scribe-7b"),
	})

	require.True(t, strings.HasPrefix(got.Text, "leader plan"))
	assert.Contains(t, got.Text, "Additional insights:")
	assert.Contains(t, got.Text, "[lamp-13b]\nsupporting note")
	assert.NotContains(t, got.Text, "scribe-7b")
	assert.InDelta(t, 0.85, got.Confidence, 1e-9) // leader 0.8 + one ok supporter
}

func TestFuseHierarchicalLeaderAlone(t *testing.T) {
	got := Fuse(router.ModeCouncilHierarchical, []invoke.Contribution{
		ok("djinn-coder-70b", "leader plan", 0.8),
	})

	assert.Equal(t, "leader plan", got.Text)
	assert.NotContains(t, got.Text, "Additional insights")
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
}

func TestFuseConsensusAgreement(t *testing.T) {
	tests := []struct {
		name           string
		texts          []string
		wantConfidence float64
		wantContains   string
	}{
		{
			name:           "strong agreement presents first reply",
			texts:          []string{"the cache is stale", "the cache is stale"},
			wantConfidence: 0.9,
			wantContains:   "the cache is stale",
		},
		{
			name:           "partial agreement presents a bulleted list",
			texts:          []string{"the cache is stale", "the cache is warm"},
			wantConfidence: 0.7,
			wantContains:   "- [a-model] the cache is stale",
		},
		{
			name:           "disagreement presents divergent views",
			texts:          []string{"alpha beta", "gamma delta"},
			wantConfidence: 0.6,
			wantContains:   "Divergent views:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contributions := []invoke.Contribution{
				ok("a-model", tt.texts[0], 0.8),
				ok("b-model", tt.texts[1], 0.8),
			}
			got := Fuse(router.ModeCouncilConsensus, contributions)

			assert.Equal(t, tt.wantConfidence, got.Confidence)
			assert.Contains(t, got.Text, tt.wantContains)
		})
	}
}

func TestFuseConsensusDedupesIdenticalReplies(t *testing.T) {
	got := Fuse(router.ModeCouncilConsensus, []invoke.Contribution{
		ok("a-model", "the cache is stale", 0.8),
		ok("b-model", "the cache is stale", 0.8),
		ok("c-model", "the cache is warm", 0.8),
	})

	assert.Equal(t, 0.7, got.Confidence)
	assert.Equal(t, 1, strings.Count(got.Text, "the cache is stale"))
	assert.Contains(t, got.Text, "- [a-model] the cache is stale")
	assert.NotContains(t, got.Text, "b-model")
	assert.Contains(t, got.Text, "- [c-model] the cache is warm")
}

func TestFuseSequentialKeepsLastLayer(t *testing.T) {
	got := Fuse(router.ModeCouncilSequential, []invoke.Contribution{
		ok("lamp-7b", "rough draft", 0.6),
		ok("ember-20b", "polished final", 0.9),
	})

	assert.Contains(t, got.Text, "(layer 1 by lamp-7b)")
	assert.True(t, strings.HasSuffix(got.Text, "polished final"))
	assert.NotContains(t, got.Text, "rough draft")
	// weighted mean, final layer at weight 1, earlier at 0.8
	assert.InDelta(t, (0.9+0.6*0.8)/1.8, got.Confidence, 1e-9)
}

func TestFuseSequentialSingleLayer(t *testing.T) {
	got := Fuse(router.ModeCouncilSequential, []invoke.Contribution{
		ok("lamp-7b", "only layer", 0.6),
	})

	assert.Equal(t, "only layer", got.Text)
	assert.InDelta(t, 0.6, got.Confidence, 1e-9)
}

// Every content line of a fused result must come from some contribution;
// fusion may add labels but never text of its own.
func TestFusionContentProvenance(t *testing.T) {
	contributions := []invoke.Contribution{
		ok("a-model", "first body of text", 0.8),
		ok("b-model", "second body of text", 0.7),
	}
	corpus := contributions[0].Text + "\n" + contributions[1].Text

	for _, mode := range []router.Mode{
		router.ModeSingle,
		router.ModeCouncilParallel,
		router.ModeCouncilHierarchical,
		router.ModeCouncilConsensus,
		router.ModeCouncilSequential,
	} {
		got := Fuse(mode, contributions)
		for _, line := range strings.Split(got.Text, "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimPrefix(line, "- ")
			if line == "" || isLabel(line) {
				continue
			}
			// strip a leading variant label from bulleted forms
			if idx := strings.Index(line, "] "); strings.HasPrefix(line, "[") && idx >= 0 {
				line = line[idx+2:]
			}
			assert.Contains(t, corpus, line, "mode %s invented content %q", mode, line)
		}
	}
}

func isLabel(line string) bool {
	if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
		return true
	}
	if strings.HasPrefix(line, "(layer ") {
		return true
	}
	return line == "Additional insights:" || line == "Divergent views:"
}
