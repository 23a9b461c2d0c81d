package handlers

import (
	"strconv"
	"strings"

	"github.com/hojinjeong/escaperace/catalog"
)

// Verdict is the result of evaluating a submitted answer.
type Verdict int

const (
	VerdictIncorrect Verdict = iota
	VerdictCorrect
	VerdictHigher    // updown: target is higher than the guess
	VerdictLower     // updown: target is lower than the guess
	VerdictBadFormat // updown: submission did not parse as a number
)

// NormalizeAnswer lowercases and trims a submission for comparison.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Evaluate checks a submission against a stage's canonical answer.
//
// Text-like types (input, pattern, path, tap) compare normalized
// strings: the client encodes structured input canonically, so a grid
// becomes a 0/1 string, a maze a direction string, and a completed tap
// sequence the TAP_<n> sentinel. Updown stages parse the submission and
// hint at the direction of the target instead of a flat "incorrect".
//
// Choice stages are not answerable here; callers route them to the
// voting endpoints before evaluating.
func Evaluate(stage catalog.Stage, submission string) Verdict {
	switch stage.Type {
	case catalog.TypeUpDown:
		n, err := strconv.ParseInt(strings.TrimSpace(submission), 10, 64)
		if err != nil {
			return VerdictBadFormat
		}
		target := stage.UpDown.Target
		switch {
		case n < target:
			return VerdictHigher
		case n > target:
			return VerdictLower
		}
		return VerdictCorrect
	default:
		if NormalizeAnswer(submission) == NormalizeAnswer(stage.Answer) {
			return VerdictCorrect
		}
		return VerdictIncorrect
	}
}
