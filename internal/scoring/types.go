// Package scoring evaluates releases against a quality profile and custom
// formats, producing a score and an approve/reject verdict.
package scoring

import (
	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/quality"
	"github.com/sportarr/sportarr/internal/release"
)

// Evaluation is the result of scoring a single release.
type Evaluation struct {
	Release types.ReleaseInfo     `json:"release"`
	Parsed  release.ParsedRelease `json:"parsed"`

	Quality        quality.Quality `json:"quality"`
	QualityMatched bool            `json:"qualityMatched"`
	QualityScore   int             `json:"qualityScore"`

	MatchedFormats []string `json:"matchedFormats,omitempty"`
	FormatScore    int      `json:"formatScore"`

	TotalScore int      `json:"totalScore"`
	Rejections []string `json:"rejections,omitempty"`
	Approved   bool     `json:"approved"`
}

// Rejected reports whether the evaluation carries any rejection.
func (e *Evaluation) Rejected() bool {
	return len(e.Rejections) > 0
}
