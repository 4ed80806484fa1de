package search

import (
	"sort"

	"github.com/sportarr/sportarr/internal/scoring"
)

// rankEvaluations orders approved candidates best first. Score decides;
// ties fall to the more preferred indexer (lower priority number), then
// more seeders, then the newer publish date.
func rankEvaluations(evals []*scoring.Evaluation, priorities map[int64]int) {
	priorityOf := func(e *scoring.Evaluation) int {
		if p, ok := priorities[e.Release.IndexerID]; ok {
			return p
		}
		return 50
	}

	sort.SliceStable(evals, func(i, j int) bool {
		a, b := evals[i], evals[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if pa, pb := priorityOf(a), priorityOf(b); pa != pb {
			return pa < pb
		}
		if a.Release.Seeders != b.Release.Seeders {
			return a.Release.Seeders > b.Release.Seeders
		}
		return a.Release.PublishDate.After(b.Release.PublishDate)
	})
}

// selectBest returns the first approved candidate, applying upgrade
// gating when the event already has a file.
func selectBest(evaluator *scoring.Evaluator, evals []*scoring.Evaluation, event SearchableEvent) *scoring.Evaluation {
	for _, eval := range evals {
		if !eval.Approved {
			continue
		}
		if event.HasFile && !evaluator.IsUpgrade(eval, event.CurrentQualityID) {
			continue
		}
		return eval
	}
	return nil
}
