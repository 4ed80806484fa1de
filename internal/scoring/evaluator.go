package scoring

import (
	"fmt"
	"sort"

	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/quality"
	"github.com/sportarr/sportarr/internal/release"
)

// Evaluator scores releases against one quality profile and a set of
// custom formats. It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	profile *quality.Profile
	formats []*quality.CustomFormat
}

// NewEvaluator creates an evaluator for the given profile and formats.
func NewEvaluator(profile *quality.Profile, formats []*quality.CustomFormat) *Evaluator {
	return &Evaluator{profile: profile, formats: formats}
}

// Profile returns the profile this evaluator scores against.
func (e *Evaluator) Profile() *quality.Profile {
	return e.profile
}

// Formats returns the custom formats this evaluator applies.
func (e *Evaluator) Formats() []*quality.CustomFormat {
	return e.formats
}

// Evaluate parses and scores a release. The evaluation is always fully
// populated; a rejected release keeps its score so callers can report why
// the best-scoring candidates were refused.
func (e *Evaluator) Evaluate(info types.ReleaseInfo) Evaluation {
	eval := Evaluation{
		Release: info,
		Parsed:  release.Parse(info.Title),
	}

	eval.Quality, eval.QualityMatched = quality.MatchQuality(eval.Parsed)
	if eval.QualityMatched {
		eval.QualityScore = eval.Quality.Score()
		if !e.profile.IsAllowed(eval.Quality.ID) {
			eval.Rejections = append(eval.Rejections,
				fmt.Sprintf("quality %s is not allowed by profile %s", eval.Quality.Name, e.profile.Name))
		}
	} else {
		eval.Rejections = append(eval.Rejections, "unable to determine quality from title")
	}

	if !e.profile.WithinSizeBounds(info.Size) {
		eval.Rejections = append(eval.Rejections,
			fmt.Sprintf("size %d MB is outside profile bounds", info.Size/(1024*1024)))
	}

	if info.Protocol == types.ProtocolTorrent && info.Seeders <= 0 {
		eval.Rejections = append(eval.Rejections, "torrent has no seeders")
	}

	input := quality.FormatInput{Title: info.Title, IndexerFlags: info.IndexerFlags}
	for _, cf := range e.formats {
		if cf.Matches(input) {
			eval.MatchedFormats = append(eval.MatchedFormats, cf.Name)
			eval.FormatScore += e.profile.FormatScore(cf.ID)
		}
	}
	if eval.FormatScore < e.profile.MinFormatScore {
		eval.Rejections = append(eval.Rejections,
			fmt.Sprintf("custom format score %d is below minimum %d", eval.FormatScore, e.profile.MinFormatScore))
	}

	eval.TotalScore = eval.QualityScore + eval.FormatScore
	eval.Approved = !eval.Rejected()
	return eval
}

// EvaluateAll scores a batch of releases and returns the evaluations
// sorted by total score descending.
func (e *Evaluator) EvaluateAll(releases []types.ReleaseInfo) []Evaluation {
	evals := make([]Evaluation, 0, len(releases))
	for _, info := range releases {
		evals = append(evals, e.Evaluate(info))
	}
	sort.SliceStable(evals, func(i, j int) bool {
		return evals[i].TotalScore > evals[j].TotalScore
	})
	return evals
}

// IsUpgrade reports whether an approved evaluation upgrades an existing
// grab at the given quality. An unresolvable current quality upgrades only
// when the profile permits upgrades at all.
func (e *Evaluator) IsUpgrade(eval *Evaluation, currentQualityID int) bool {
	if !eval.Approved || !eval.QualityMatched {
		return false
	}
	if _, ok := quality.GetQualityByID(currentQualityID); !ok {
		return e.profile.UpgradesAllowed
	}
	return e.profile.IsUpgrade(currentQualityID, eval.Quality.ID)
}
