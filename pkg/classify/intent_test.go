package classify

import (
	"math"
	"testing"
)

func TestClassifyOrdering(t *testing.T) {
	tables := DefaultTables()

	tests := []struct {
		name           string
		text           string
		wantIntent     Intent
		wantSpecialist Specialist
		minConfidence  float64
		maxConfidence  float64
	}{
		{
			name:          "greeting",
			text:          "hi",
			wantIntent:    IntentDialogue,
			minConfidence: 0.95,
			maxConfidence: 0.95,
		},
		{
			name:          "thanks with padding",
			text:          "ok thanks",
			wantIntent:    IntentDialogue,
			minConfidence: 0.95,
			maxConfidence: 0.95,
		},
		{
			name:          "greeting word in long sentence is not an opener",
			text:          "hello I would like you to fix the broken build script today",
			wantIntent:    IntentCommand,
			minConfidence: 0.4,
		},
		{
			name:           "enterprise challenge",
			text:           "design a scalable multimodal enterprise architecture handling massive context across distributed microservices with formal consistency guarantees",
			wantIntent:     IntentDjinnChallenge,
			wantSpecialist: SpecialistEnterprise,
			minConfidence:  0.95,
			maxConfidence:  0.95,
		},
		{
			name:          "challenge vocabulary on short utterance stays command",
			text:          "refactor the distributed microservices",
			wantIntent:    IntentCommand,
			minConfidence: 0.4,
		},
		{
			name:          "meta",
			text:          "what's the ethical thing to do here",
			wantIntent:    IntentMeta,
			minConfidence: 0.7,
			maxConfidence: 0.7,
		},
		{
			name:          "command",
			text:          "please fix the null-pointer bug in the parser",
			wantIntent:    IntentCommand,
			minConfidence: 0.4,
			maxConfidence: 0.95,
		},
		{
			name:          "single unknown word falls through to dialogue",
			text:          "zebra",
			wantIntent:    IntentDialogue,
			minConfidence: 0.5,
			maxConfidence: 0.5,
		},
		{
			name:          "freeform chat",
			text:          "I was wondering about your day and nothing else really",
			wantIntent:    IntentDialogue,
			minConfidence: 0.5,
			maxConfidence: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text, tables)
			if got.Intent != tt.wantIntent {
				t.Fatalf("intent = %s, want %s (evidence %v)", got.Intent, tt.wantIntent, got.Evidence)
			}
			if tt.wantSpecialist != "" && got.Specialist != tt.wantSpecialist {
				t.Fatalf("specialist = %s, want %s", got.Specialist, tt.wantSpecialist)
			}
			if got.Confidence < tt.minConfidence {
				t.Fatalf("confidence %.2f below %.2f", got.Confidence, tt.minConfidence)
			}
			if tt.maxConfidence > 0 && got.Confidence > tt.maxConfidence {
				t.Fatalf("confidence %.2f above %.2f", got.Confidence, tt.maxConfidence)
			}
		})
	}
}

func TestClassifySpecialistTieBreak(t *testing.T) {
	tables := DefaultTables()
	// One coding token and one multimodal token: tied scores resolve by the
	// declared priority order, so coding wins.
	text := "rework the entire codebase and add a multimodal ingestion layer " +
		"so every service can consume documents images and structured records"
	got := Classify(text, tables)
	if got.Intent != IntentDjinnChallenge {
		t.Fatalf("intent = %s, want djinn_challenge (evidence %v)", got.Intent, got.Evidence)
	}
	if got.Specialist != SpecialistCoding {
		t.Fatalf("specialist = %s, want coding", got.Specialist)
	}
}

func TestClassifyCaseAndWhitespaceInsensitive(t *testing.T) {
	tables := DefaultTables()
	a := Classify("  FIX   the Bug  ", tables)
	b := Classify("fix the bug", tables)
	if a.Intent != b.Intent || math.Abs(a.Confidence-b.Confidence) > 1e-9 {
		t.Fatalf("normalization mismatch: %+v vs %+v", a, b)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	tables := DefaultTables()
	text := "analyze the server logs and fix whatever crashed the deploy"
	first := Classify(text, tables)
	for i := 0; i < 10; i++ {
		again := Classify(text, tables)
		if again.Intent != first.Intent || again.Confidence != first.Confidence {
			t.Fatalf("classification not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestContainsTokenBoundaries(t *testing.T) {
	if containsToken("prefixing the value", "fix") {
		t.Fatal("matched inside a word")
	}
	if !containsToken("please fix this", "fix") {
		t.Fatal("missed whole word")
	}
	if !containsToken("a null-pointer parser issue", "parser") {
		t.Fatal("hyphen should be a boundary")
	}
	if !containsToken("enterprise architecture review", "enterprise architecture") {
		t.Fatal("missed phrase")
	}
}
