package handlers

import "github.com/hojinjeong/escaperace/catalog"

// Round outcome constants, persisted on the vote_round row.
const (
	OutcomeWinner       = "winner"        // a single option won; its voters advance
	OutcomeDraw         = "draw"          // tie or degenerate round; everyone advances
	OutcomeEliminateAll = "eliminate_all" // unanimous vote; everyone stays
)

// RoundOutcome is the resolved result of a voting round. WinningOption
// is set for OutcomeWinner (the advancing side) and OutcomeEliminateAll
// (the unanimous choice, kept as an audit record); empty for draws.
type RoundOutcome struct {
	Outcome       string
	WinningOption string
}

// ResolveRound resolves a frozen tally deterministically. counts may be
// missing options nobody voted for; they are reconciled to zero against
// the configured option list before resolution.
//
// Rules, in order:
//
//  1. Nobody voted at all: draw (defensive, the round shouldn't exist).
//  2. Every vote landed on one option: that side is the majority and is
//     eliminated; nobody advances.
//  3. Otherwise the target count is the minimum across all options
//     (or the maximum in majority mode). Multiple options at the target
//     is a draw. A single option at the target wins, unless it has zero
//     votes, which is also a draw.
func ResolveRound(counts map[string]int, options []string, mode string) RoundOutcome {
	full := make(map[string]int, len(options))
	total := 0
	for _, id := range options {
		full[id] = counts[id]
		total += counts[id]
	}

	if total == 0 {
		return RoundOutcome{Outcome: OutcomeDraw}
	}

	var voted []string
	for _, id := range options {
		if full[id] > 0 {
			voted = append(voted, id)
		}
	}
	if len(voted) == 1 {
		return RoundOutcome{Outcome: OutcomeEliminateAll, WinningOption: voted[0]}
	}

	target := full[options[0]]
	for _, id := range options[1:] {
		if mode == catalog.ModeMajority {
			if full[id] > target {
				target = full[id]
			}
		} else {
			if full[id] < target {
				target = full[id]
			}
		}
	}

	var matches []string
	for _, id := range options {
		if full[id] == target {
			matches = append(matches, id)
		}
	}
	if len(matches) != 1 {
		return RoundOutcome{Outcome: OutcomeDraw}
	}

	winner := matches[0]
	if full[winner] == 0 {
		return RoundOutcome{Outcome: OutcomeDraw}
	}

	return RoundOutcome{Outcome: OutcomeWinner, WinningOption: winner}
}
