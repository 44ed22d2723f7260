package strategy

import (
	"math"
	"sort"
)

// Desired is one entry of the desired-holdings set for a cycle.
type Desired struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
}

// SelectTop ranks scored evaluations by descending score, breaking ties by
// symbol for determinism, and truncates to topN. Evaluations without a
// comparable score are never selected.
func SelectTop(evals []Evaluation, topN int) []Desired {
	if topN <= 0 {
		return nil
	}

	ranked := make([]Evaluation, 0, len(evals))
	for _, ev := range evals {
		if !ev.Scored || math.IsNaN(ev.Score) {
			continue
		}
		ranked = append(ranked, ev)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	desired := make([]Desired, 0, len(ranked))
	for _, ev := range ranked {
		dir := ev.Direction
		if dir == DirectionNone || dir == "" {
			dir = DirectionLong
		}
		desired = append(desired, Desired{Symbol: ev.Symbol, Direction: dir})
	}
	return desired
}

// SelectDirectional builds the desired set for direction-only variants: a
// position already held stays desired until the risk rules close it, and a
// fresh LONG/SHORT signal adds its symbol. Newly signaled symbols are
// appended in symbol order for determinism.
func SelectDirectional(evals []Evaluation, held []Desired) []Desired {
	desired := make([]Desired, 0, len(held)+len(evals))
	heldSet := make(map[string]bool, len(held))
	for _, h := range held {
		desired = append(desired, h)
		heldSet[h.Symbol] = true
	}

	fresh := make([]Desired, 0, len(evals))
	for _, ev := range evals {
		if heldSet[ev.Symbol] {
			continue
		}
		if ev.Direction == DirectionLong || ev.Direction == DirectionShort {
			fresh = append(fresh, Desired{Symbol: ev.Symbol, Direction: ev.Direction})
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Symbol < fresh[j].Symbol })

	return append(desired, fresh...)
}
