// Package search orchestrates release searches across indexers and turns
// the results into grabs.
package search

import (
	"context"

	"github.com/sportarr/sportarr/internal/downloader"
	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/scoring"
)

// SearchableEvent is an event (or a part of one) to find a release for.
type SearchableEvent struct {
	ID               int64  `json:"id"`
	Query            string `json:"query"`
	Year             int    `json:"year,omitempty"`
	Round            int    `json:"round,omitempty"`
	PartName         string `json:"partName,omitempty"`
	HasFile          bool   `json:"hasFile,omitempty"`
	CurrentQualityID int    `json:"currentQualityId,omitempty"`
	QualityProfileID int64  `json:"qualityProfileId,omitempty"`
}

// EventProvider supplies the monitored events for batch searches.
type EventProvider interface {
	MonitoredEvents(ctx context.Context) ([]SearchableEvent, error)
}

// IndexerError is a failure from a single indexer during a search.
type IndexerError struct {
	IndexerID   int64  `json:"indexerId"`
	IndexerName string `json:"indexerName"`
	Error       string `json:"error"`
}

// Result holds the aggregated releases of one search pass.
type Result struct {
	Releases         []types.ReleaseInfo `json:"releases"`
	TotalResults     int                 `json:"total"`
	IndexersSearched int                 `json:"indexersSearched"`
	IndexersSkipped  int                 `json:"indexersSkipped"`
	IndexerErrors    []IndexerError      `json:"errors,omitempty"`
	FromCache        bool                `json:"fromCache"`
}

// ManualResult is a search result with every candidate scored for
// interactive selection. Candidates keep their rejection reasons but are
// all approved; a manual grab overrides the profile's verdict.
type ManualResult struct {
	Result
	Candidates []scoring.Evaluation `json:"candidates"`
}

// OutcomeState classifies how an automatic search ended.
type OutcomeState string

const (
	// OutcomeCompleted means a release was grabbed and recorded.
	OutcomeCompleted OutcomeState = "completed"
	// OutcomeNoMatch means indexers responded but nothing was acceptable.
	OutcomeNoMatch OutcomeState = "noMatch"
	// OutcomeDispatchFailed means a release was picked but every download
	// client rejected it.
	OutcomeDispatchFailed OutcomeState = "dispatchFailed"
	// OutcomeAllIndexersUnavailable means no indexer could be queried at
	// all, so absence of a match says nothing about availability.
	OutcomeAllIndexersUnavailable OutcomeState = "allIndexersUnavailable"
)

// Outcome is the result of an automatic search for one event.
type Outcome struct {
	EventID       int64                `json:"eventId"`
	PartName      string               `json:"partName,omitempty"`
	State         OutcomeState         `json:"state"`
	Picked        *scoring.Evaluation  `json:"picked,omitempty"`
	Dispatch      *downloader.Dispatch `json:"dispatch,omitempty"`
	GrabID        string               `json:"grabId,omitempty"`
	Evaluated     int                  `json:"evaluated"`
	Rejected      int                  `json:"rejected"`
	IndexerErrors []IndexerError       `json:"indexerErrors,omitempty"`
	Error         string               `json:"error,omitempty"`
}
