// Package classify turns raw utterance text into an intent and a complexity
// estimate. Both are pure functions of (text, tables): no history, no system
// state, so identical inputs always classify identically.
package classify

import (
	"fmt"
	"strings"
)

// Intent is the closed set of utterance intents.
type Intent string

const (
	IntentDialogue       Intent = "dialogue"
	IntentCommand        Intent = "command"
	IntentMeta           Intent = "meta"
	IntentDjinnChallenge Intent = "djinn_challenge"
)

const (
	openerMaxWords     = 3
	challengeMinWords  = 15
	challengeMinTokens = 2
)

// Classification is the result of intent detection.
type Classification struct {
	Intent     Intent
	Specialist Specialist // set only for djinn_challenge
	Confidence float64
	Evidence   []string
}

// Classify maps an utterance to an intent. Rules are evaluated in a fixed
// order and the first match wins; reordering them changes which bucket a
// borderline utterance lands in, so the order is part of the contract.
func Classify(text string, tables *Tables) Classification {
	normalized := normalize(text)
	words := wordCount(normalized)

	// Rule 1: short social openers.
	if words <= openerMaxWords {
		for _, opener := range tables.Openers {
			if containsToken(normalized, opener) {
				return Classification{
					Intent:     IntentDialogue,
					Confidence: 0.95,
					Evidence:   []string{fmt.Sprintf("opener %q", opener)},
				}
			}
		}
	}

	// Rule 2: djinn-challenge vocabulary on long utterances.
	if words >= challengeMinWords {
		if hit, ok := detectChallenge(normalized, tables); ok {
			return Classification{
				Intent:     IntentDjinnChallenge,
				Specialist: hit.specialist,
				Confidence: minFloat(0.95, 0.5+0.1*float64(hit.total)),
				Evidence:   hit.evidence,
			}
		}
	}

	// Rule 3: meta-intelligence vocabulary.
	for _, token := range tables.Meta {
		if containsToken(normalized, token) {
			return Classification{
				Intent:     IntentMeta,
				Confidence: 0.7,
				Evidence:   []string{fmt.Sprintf("meta token %q", token)},
			}
		}
	}

	// Rule 4: command vocabulary, confidence scaled by token density.
	var commandEvidence []string
	for _, token := range tables.Command {
		if containsToken(normalized, token) {
			commandEvidence = append(commandEvidence, token)
		}
	}
	if len(commandEvidence) > 0 {
		confidence := float64(len(commandEvidence)) / float64(maxInt(words, 1))
		confidence = clamp(confidence, 0.4, 0.95)
		return Classification{
			Intent:     IntentCommand,
			Confidence: confidence,
			Evidence:   commandEvidence,
		}
	}

	// Rule 5: everything else is dialogue.
	return Classification{Intent: IntentDialogue, Confidence: 0.5}
}

// challengeHit summarizes a rule-2 match.
type challengeHit struct {
	specialist Specialist
	total      int
	evidence   []string
}

// detectChallenge scores the challenge sub-vocabularies against normalized
// text. It reports a match only when at least two challenge tokens fire; the
// caller enforces the word-count floor. Ties between sub-vocabularies are
// broken by the fixed specialist priority order.
func detectChallenge(normalized string, tables *Tables) (challengeHit, bool) {
	scores := make(map[Specialist]int, len(tables.Challenge))
	var evidence []string
	total := 0
	for _, specialist := range specialistPriority {
		for _, token := range tables.Challenge[specialist] {
			if containsToken(normalized, token) {
				scores[specialist]++
				total++
				evidence = append(evidence, fmt.Sprintf("%s token %q", specialist, token))
			}
		}
	}
	if total < challengeMinTokens {
		return challengeHit{}, false
	}

	best := specialistPriority[0]
	bestScore := -1
	for _, specialist := range specialistPriority {
		if scores[specialist] > bestScore {
			best = specialist
			bestScore = scores[specialist]
		}
	}
	return challengeHit{specialist: best, total: total, evidence: evidence}, true
}

// normalize lowercases and collapses whitespace.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func wordCount(normalized string) int {
	if normalized == "" {
		return 0
	}
	return len(strings.Fields(normalized))
}

// containsToken reports whether text contains token as a whole word or
// phrase. Boundaries are non-alphanumeric so "fixing" does not match "fix".
func containsToken(text, token string) bool {
	for start := 0; start <= len(text)-len(token); {
		idx := strings.Index(text[start:], token)
		if idx == -1 {
			return false
		}
		idx += start
		end := idx + len(token)
		beforeOK := idx == 0 || !isWordChar(text[idx-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
	return false
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
