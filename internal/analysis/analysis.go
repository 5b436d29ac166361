// Package analysis inspects a goal string and produces a structured
// analysis: detected skill keywords, a bounded complexity score, and
// the resource scopes the goal mentions. Analysis is deterministic and
// pure; it never fails and performs no I/O.
package analysis

import (
	"sort"
	"strings"
)

// MinComplexity is the score assigned to goals with no detected
// keywords. All scores lie in [MinComplexity, 1].
const MinComplexity = 0.1

// perKeywordWeight is how much each distinct detected skill adds to
// the complexity score. Tunable, not contractual.
const perKeywordWeight = 0.12

// maxLengthTerm caps the contribution of goal length to the score.
const maxLengthTerm = 0.3

// Analysis is the result of analyzing one goal. Created once per
// incoming goal and never mutated.
type Analysis struct {
	// Goal is the raw goal text that was analyzed.
	Goal string
	// Keywords holds the detected skill keywords, sorted.
	Keywords []string
	// Complexity is the heuristic complexity score in [MinComplexity, 1].
	Complexity float64
	// Scopes lists path-like resource scopes mentioned in the goal,
	// in order of first appearance.
	Scopes []string
	// Sequential is true when the goal uses explicit ordering language
	// ("then", "after", "based on").
	Sequential bool
}

// HasKeyword returns true if the analysis detected the given skill.
func (a Analysis) HasKeyword(kw string) bool {
	for _, k := range a.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

// skillTriggers maps a skill keyword to the words in a goal that imply
// it. Matching is case-insensitive on whole words.
var skillTriggers = map[string][]string{
	"review":        {"review", "reviewing", "audit", "inspect", "critique"},
	"testing":       {"test", "tests", "testing", "coverage"},
	"research":      {"research", "investigate", "explore", "search", "find"},
	"documentation": {"document", "documentation", "docs", "readme"},
	"security":      {"security", "vulnerability", "vulnerabilities", "exploit"},
	"refactoring":   {"refactor", "refactoring", "cleanup", "restructure"},
	"implementation": {
		"implement", "implementation", "build", "create", "generate",
		"write", "fix", "add",
	},
	"performance": {"performance", "optimize", "optimization", "profile"},
	"debugging":   {"debug", "debugging", "diagnose", "bug"},
}

// sequentialCues are the goal phrases that imply an ordering dependency
// between the workers.
var sequentialCues = []string{"then", "after", "based on", "followed by", "once"}

// Analyze inspects a goal and returns its analysis. The absence of
// detected keywords yields an empty keyword set and the minimum
// complexity score, never an error.
func Analyze(goal string) Analysis {
	lower := strings.ToLower(goal)
	words := tokenize(lower)

	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}

	var keywords []string
	for skill, triggers := range skillTriggers {
		for _, trig := range triggers {
			if _, ok := wordSet[trig]; ok {
				keywords = append(keywords, skill)
				break
			}
		}
	}
	sort.Strings(keywords)

	return Analysis{
		Goal:       goal,
		Keywords:   keywords,
		Complexity: complexity(len(keywords), len(words)),
		Scopes:     extractScopes(goal),
		Sequential: hasSequentialCue(lower, wordSet),
	}
}

// complexity computes the score: the minimum when nothing was
// detected, otherwise minimum + a term per keyword + a capped length
// term, clamped to 1. Monotonic in both inputs.
func complexity(keywords, words int) float64 {
	if keywords == 0 {
		return MinComplexity
	}
	lengthTerm := float64(words) / 100
	if lengthTerm > maxLengthTerm {
		lengthTerm = maxLengthTerm
	}
	score := MinComplexity + perKeywordWeight*float64(keywords) + lengthTerm
	if score > 1 {
		score = 1
	}
	return score
}

// extractScopes pulls path-like tokens out of the goal: anything
// containing a path separator or a file extension. Order of first
// appearance is preserved; duplicates are dropped.
func extractScopes(goal string) []string {
	var scopes []string
	seen := make(map[string]struct{})
	for _, raw := range strings.Fields(goal) {
		tok := strings.Trim(raw, ".,;:!?\"'`()[]{}")
		if tok == "" || !looksLikePath(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		scopes = append(scopes, tok)
	}
	return scopes
}

// looksLikePath reports whether a token names a file or module path.
func looksLikePath(tok string) bool {
	if strings.ContainsAny(tok, "/\\") {
		return true
	}
	dot := strings.LastIndexByte(tok, '.')
	if dot <= 0 || dot == len(tok)-1 {
		return false
	}
	ext := tok[dot+1:]
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(ext) <= 5
}

// hasSequentialCue checks for explicit ordering language. Multi-word
// cues are matched as substrings of the lowered goal, single words
// against the token set.
func hasSequentialCue(lower string, wordSet map[string]struct{}) bool {
	for _, cue := range sequentialCues {
		if strings.Contains(cue, " ") {
			if strings.Contains(lower, cue) {
				return true
			}
			continue
		}
		if _, ok := wordSet[cue]; ok {
			return true
		}
	}
	return false
}

// tokenize splits lowered goal text into words, stripping punctuation
// that is not part of a path.
func tokenize(lower string) []string {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r == '/' || r == '.' || r == '_' || r == '-':
			return false
		default:
			return true
		}
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "./-_")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
