package classify

import (
	"math"
	"strings"
	"testing"
)

// neutralWords builds an n-word utterance that hits no vocabulary.
func neutralWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "zorble"
	}
	return strings.Join(words, " ")
}

func TestComplexityBaseScore(t *testing.T) {
	tables := DefaultTables()

	tests := []struct {
		name  string
		text  string
		want  float64
		within float64
	}{
		{name: "one word", text: "zorble", want: 0.02, within: 1e-9},
		{name: "fifteen words", text: neutralWords(15), want: 0.30, within: 1e-9},
		{name: "thirty words", text: neutralWords(30), want: 0.60, within: 1e-9},
		{name: "base caps at 0.8", text: neutralWords(90), want: 0.80, within: 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateComplexity(tt.text, tables)
			if math.Abs(got.Score-tt.want) > tt.within {
				t.Fatalf("score = %v, want %v", got.Score, tt.want)
			}
		})
	}
}

func TestComplexityCodingBoost(t *testing.T) {
	tables := DefaultTables()
	got := EstimateComplexity("please fix the null-pointer bug in the parser", tables)
	// 8 words -> base 0.16; fix, bug, parser -> +0.3.
	if math.Abs(got.Score-0.46) > 1e-9 {
		t.Fatalf("score = %v, want 0.46", got.Score)
	}
	if got.Family != FamilyCoding {
		t.Fatalf("family = %s, want coding", got.Family)
	}
	if got.ChallengeMatch {
		t.Fatal("short command should not count as a challenge")
	}
}

func TestComplexityChallengeBoostAndCap(t *testing.T) {
	tables := DefaultTables()
	text := "design a scalable multimodal enterprise architecture handling massive context across distributed microservices with formal consistency guarantees"
	got := EstimateComplexity(text, tables)
	if !got.ChallengeMatch {
		t.Fatal("expected challenge match")
	}
	if got.Score < 0.8 {
		t.Fatalf("score = %v, want >= 0.8", got.Score)
	}
	if got.Score > 1.0 {
		t.Fatalf("score = %v exceeds cap", got.Score)
	}
	if got.DistinctSignals() < 2 {
		t.Fatalf("expected multiple family signals, got %v", got.Signals)
	}
}

func TestComplexityDisplayRounding(t *testing.T) {
	tables := DefaultTables()
	got := EstimateComplexity(neutralWords(11), tables) // 0.22
	if math.Abs(got.Score-0.22) > 1e-9 {
		t.Fatalf("score = %v, want 0.22", got.Score)
	}
	if math.Abs(got.Display-0.20) > 1e-9 {
		t.Fatalf("display = %v, want 0.20", got.Display)
	}
	up := EstimateComplexity(neutralWords(12), tables) // 0.24 rounds up
	if math.Abs(up.Display-0.25) > 1e-9 {
		t.Fatalf("display = %v, want 0.25", up.Display)
	}
}

func TestComplexityFamilies(t *testing.T) {
	tables := DefaultTables()
	tests := []struct {
		text string
		want TaskFamily
	}{
		{"prove this theorem from the premise", FamilyReasoning},
		{"what's the ethical thing to do here", FamilyWisdom},
		{"does this comply with enterprise governance", FamilyEnterprise},
		{"describe this image for me", FamilyMultimodal},
		{"hi", FamilyDialogue},
		{"tell me something interesting", FamilyGeneral},
		{"fix the failing test", FamilyCoding},
	}
	for _, tt := range tests {
		got := EstimateComplexity(tt.text, tables)
		if got.Family != tt.want {
			t.Fatalf("family(%q) = %s, want %s (signals %v)", tt.text, got.Family, tt.want, got.Signals)
		}
	}
}

func TestComplexityPure(t *testing.T) {
	tables := DefaultTables()
	text := "refactor the scheduler and prove the locking is sound"
	first := EstimateComplexity(text, tables)
	for i := 0; i < 10; i++ {
		again := EstimateComplexity(text, tables)
		if again.Score != first.Score || again.Family != first.Family {
			t.Fatalf("estimate not pure: %+v vs %+v", again, first)
		}
	}
}
