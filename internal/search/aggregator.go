package search

import (
	"sort"
	"strings"

	"github.com/sportarr/sportarr/internal/indexer/types"
)

// searchTaskResult is what one indexer contributed to a search.
type searchTaskResult struct {
	IndexerID   int64
	IndexerName string
	Releases    []types.ReleaseInfo
	Error       error
}

// aggregate drains the per-indexer results into one deduplicated list.
func aggregate(results <-chan searchTaskResult) *Result {
	all := make([]types.ReleaseInfo, 0)
	errs := make([]IndexerError, 0)
	searched := 0

	for result := range results {
		if result.Error != nil {
			errs = append(errs, IndexerError{
				IndexerID:   result.IndexerID,
				IndexerName: result.IndexerName,
				Error:       result.Error.Error(),
			})
			continue
		}
		searched++
		all = append(all, result.Releases...)
	}

	deduplicated := deduplicateReleases(all)
	sortReleases(deduplicated)

	return &Result{
		Releases:         deduplicated,
		TotalResults:     len(deduplicated),
		IndexersSearched: searched,
		IndexerErrors:    errs,
	}
}

// deduplicateReleases collapses duplicates. The info hash identifies a
// torrent regardless of which indexer listed it; releases without one
// fall back to the GUID. The copy with the most seeders wins.
func deduplicateReleases(releases []types.ReleaseInfo) []types.ReleaseInfo {
	if len(releases) == 0 {
		return releases
	}

	seen := make(map[string]int, len(releases))
	result := make([]types.ReleaseInfo, 0, len(releases))

	for _, release := range releases {
		var key string
		if release.InfoHash != "" {
			key = "hash:" + strings.ToLower(release.InfoHash)
		} else {
			key = "guid:" + strings.ToLower(strings.TrimSpace(release.GUID))
		}

		if existingIdx, exists := seen[key]; exists {
			if release.Seeders > result[existingIdx].Seeders {
				result[existingIdx] = release
			}
			continue
		}
		seen[key] = len(result)
		result = append(result, release)
	}

	return result
}

// sortReleases orders newest first so manual search results read
// naturally; scoring reorders for automatic picks.
func sortReleases(releases []types.ReleaseInfo) {
	sort.Slice(releases, func(i, j int) bool {
		if !releases[i].PublishDate.Equal(releases[j].PublishDate) {
			return releases[i].PublishDate.After(releases[j].PublishDate)
		}
		return releases[i].Seeders > releases[j].Seeders
	})
}
