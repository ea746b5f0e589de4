// Package scoring computes series totals under low-point scoring with
// race-count-dependent discards.
package scoring

import (
	"sort"

	"github.com/regattahq/raceboard/internal/race"
)

// Result is the outcome of a net-points computation.
type Result struct {
	TotalPoints    float64
	NetPoints      float64
	DiscardedRaces []int
}

// DiscardsFor returns how many scores are excluded for a series of n
// races: one from 5 races sailed, two from 10.
func DiscardsFor(n int) int {
	switch {
	case n >= 10:
		return 2
	case n >= 5:
		return 1
	default:
		return 0
	}
}

// NetPoints applies the discard rule to a score sequence. The worst
// (highest-value) N scores are discarded; ties break toward the
// earlier index (stable sort). Below 5 races, net equals total and
// nothing is discarded. The function is pure: the input is not
// modified and repeated calls yield identical results.
func NetPoints(scores []race.RaceScore) Result {
	result := Result{}
	for _, s := range scores {
		result.TotalPoints += s.Points
	}
	result.NetPoints = result.TotalPoints

	discards := DiscardsFor(len(scores))
	if discards == 0 {
		return result
	}

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]].Points > scores[indices[b]].Points
	})

	dropped := indices[:discards]
	sort.Ints(dropped)
	for _, i := range dropped {
		result.NetPoints -= scores[i].Points
	}
	result.DiscardedRaces = dropped
	return result
}

// Apply recomputes a standing's totals in place. Lexical discard marks
// from the source cells win when present; otherwise the race-count
// rule decides which scores to drop, and the chosen scores are marked.
func Apply(standing *race.Standing) {
	lexical := false
	for _, s := range standing.RaceScores {
		if s.IsDiscarded {
			lexical = true
			break
		}
	}

	if lexical {
		total, discarded := 0.0, 0.0
		for _, s := range standing.RaceScores {
			total += s.Points
			if s.IsDiscarded {
				discarded += s.Points
			}
		}
		standing.TotalPoints = total
		standing.NetPoints = total - discarded
		return
	}

	result := NetPoints(standing.RaceScores)
	standing.TotalPoints = result.TotalPoints
	standing.NetPoints = result.NetPoints
	for _, i := range result.DiscardedRaces {
		standing.RaceScores[i].IsDiscarded = true
	}
}
