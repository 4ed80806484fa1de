package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sportarr/sportarr/internal/downloader"
	"github.com/sportarr/sportarr/internal/history"
	"github.com/sportarr/sportarr/internal/indexer"
	"github.com/sportarr/sportarr/internal/indexer/status"
	"github.com/sportarr/sportarr/internal/indexer/torznab"
	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/quality"
	"github.com/sportarr/sportarr/internal/releasecache"
	"github.com/sportarr/sportarr/internal/scoring"
)

// queryClient is the slice of the indexer client a search needs.
type queryClient interface {
	Query(ctx context.Context, criteria types.SearchCriteria) ([]types.ReleaseInfo, error)
}

// clientFactory builds a query client for an indexer definition. Tests
// swap it out for fakes.
type clientFactory func(def *types.IndexerDefinition) (queryClient, error)

// Options tunes the orchestrator.
type Options struct {
	// IndexerTimeout bounds each indexer query.
	IndexerTimeout time.Duration
	// MinCacheResults is how many cached releases satisfy a search
	// without touching the indexers.
	MinCacheResults int
	// BatchConcurrency bounds how many events a batch searches at once.
	BatchConcurrency int
	// MaxResultsPerIndexer caps the results requested from each indexer.
	MaxResultsPerIndexer int
}

// DefaultOptions returns the default orchestrator tuning.
func DefaultOptions() Options {
	return Options{
		IndexerTimeout:       30 * time.Second,
		MinCacheResults:      1,
		BatchConcurrency:     3,
		MaxResultsPerIndexer: 100,
	}
}

// Service coordinates indexers, cache, scoring, history, and download
// clients for manual and automatic searches.
type Service struct {
	indexers   *indexer.Service
	status     *status.Service
	cache      *releasecache.Cache
	history    *history.Service
	downloader *downloader.Service
	evaluator  *scoring.Evaluator
	options    Options
	factory    clientFactory
	logger     zerolog.Logger
}

// NewService creates a new search orchestrator.
func NewService(
	indexers *indexer.Service,
	statusService *status.Service,
	cache *releasecache.Cache,
	historyService *history.Service,
	downloaderService *downloader.Service,
	evaluator *scoring.Evaluator,
	options Options,
	logger zerolog.Logger,
) *Service {
	if options.IndexerTimeout <= 0 {
		options.IndexerTimeout = DefaultOptions().IndexerTimeout
	}
	if options.MinCacheResults <= 0 {
		options.MinCacheResults = DefaultOptions().MinCacheResults
	}
	if options.BatchConcurrency <= 0 {
		options.BatchConcurrency = DefaultOptions().BatchConcurrency
	}
	if options.MaxResultsPerIndexer <= 0 {
		options.MaxResultsPerIndexer = DefaultOptions().MaxResultsPerIndexer
	}

	s := &Service{
		indexers:   indexers,
		status:     statusService,
		cache:      cache,
		history:    historyService,
		downloader: downloaderService,
		evaluator:  evaluator,
		options:    options,
		logger:     logger.With().Str("component", "search").Logger(),
	}
	s.factory = func(def *types.IndexerDefinition) (queryClient, error) {
		return torznab.NewClient(def, options.IndexerTimeout), nil
	}
	return s
}

// SetClientFactory overrides how indexer clients are built.
func (s *Service) SetClientFactory(factory clientFactory) {
	s.factory = factory
}

// Search runs a query across the enabled, healthy indexers. The release
// cache is consulted first; fresh results are written back to it.
func (s *Service) Search(ctx context.Context, criteria types.SearchCriteria) (*Result, error) {
	if criteria.Limit <= 0 || criteria.Limit > s.options.MaxResultsPerIndexer {
		criteria.Limit = s.options.MaxResultsPerIndexer
	}

	if cached := s.fromCache(ctx, criteria); cached != nil {
		return cached, nil
	}

	enabled, err := s.indexers.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing indexers: %w", err)
	}

	eligible, skipped := s.filterQueryDisabled(ctx, enabled)
	if len(eligible) == 0 {
		return &Result{
			Releases:        []types.ReleaseInfo{},
			IndexersSkipped: skipped,
		}, nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].Priority < eligible[j].Priority
	})

	s.logger.Info().
		Str("query", criteria.Query).
		Int("indexers", len(eligible)).
		Int("skipped", skipped).
		Msg("Starting search")

	result := s.fanOut(ctx, eligible, criteria)
	result.IndexersSkipped = skipped

	if len(result.Releases) > 0 {
		if err := s.cache.Store(ctx, result.Releases, criteria.Query); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to cache search results")
		}
	}

	s.logger.Info().
		Str("query", criteria.Query).
		Int("results", result.TotalResults).
		Int("indexersSearched", result.IndexersSearched).
		Int("errors", len(result.IndexerErrors)).
		Msg("Search completed")
	return result, nil
}

// ManualSearch runs a search and scores every candidate for interactive
// selection. Rejected releases stay listed with their reasons attached;
// the caller makes the final call, so every candidate is marked approved.
func (s *Service) ManualSearch(ctx context.Context, criteria types.SearchCriteria) (*ManualResult, error) {
	result, err := s.Search(ctx, criteria)
	if err != nil {
		return nil, err
	}

	candidates := s.evaluator.EvaluateAll(result.Releases)
	for i := range candidates {
		candidates[i].Approved = true
	}
	return &ManualResult{Result: *result, Candidates: candidates}, nil
}

// AutoSearch finds, scores, and grabs the best release for an event.
func (s *Service) AutoSearch(ctx context.Context, event SearchableEvent) (*Outcome, error) {
	outcome := &Outcome{EventID: event.ID, PartName: event.PartName}

	criteria := types.SearchCriteria{
		Query: event.Query,
		Year:  event.Year,
		Round: event.Round,
	}

	result, err := s.Search(ctx, criteria)
	if err != nil {
		return nil, err
	}
	outcome.IndexerErrors = result.IndexerErrors

	// Nothing answered and nothing was skipped-with-results: the search
	// says nothing about what exists.
	if result.IndexersSearched == 0 && !result.FromCache && len(result.Releases) == 0 {
		outcome.State = OutcomeAllIndexersUnavailable
		s.logger.Warn().
			Int64("eventId", event.ID).
			Str("query", event.Query).
			Msg("No indexer available for search")
		return outcome, nil
	}

	evaluator := s.evaluatorFor(event)
	evals, rejected, err := s.evaluate(ctx, evaluator, result.Releases)
	if err != nil {
		return nil, err
	}
	outcome.Evaluated = len(evals) + rejected
	outcome.Rejected = rejected

	priorities, err := s.indexerPriorities(ctx)
	if err != nil {
		return nil, err
	}
	rankEvaluations(evals, priorities)

	best := selectBest(evaluator, evals, event)
	if best == nil {
		outcome.State = OutcomeNoMatch
		s.logger.Info().
			Int64("eventId", event.ID).
			Str("query", event.Query).
			Int("evaluated", outcome.Evaluated).
			Msg("No acceptable release found")
		return outcome, nil
	}
	outcome.Picked = best

	dispatch, err := s.downloader.Dispatch(ctx, best.Release)
	if err != nil {
		outcome.State = OutcomeDispatchFailed
		outcome.Error = err.Error()
		s.recordGrabFailure(ctx, best.Release.IndexerID, err)
		s.logger.Error().
			Err(err).
			Int64("eventId", event.ID).
			Str("title", best.Release.Title).
			Msg("Failed to dispatch release")
		return outcome, nil
	}
	outcome.Dispatch = dispatch
	s.recordGrabSuccess(ctx, best.Release.IndexerID)

	grab, err := s.history.RecordGrab(ctx, history.GrabInput{
		EventID:     event.ID,
		PartName:    event.PartName,
		Title:       best.Release.Title,
		Indexer:     best.Release.IndexerName,
		GUID:        best.Release.GUID,
		DownloadURL: best.Release.DownloadURL,
		InfoHash:    best.Release.InfoHash,
		Protocol:    best.Release.Protocol,
		Quality:     best.Quality.Name,
		Codec:       string(best.Parsed.VideoCodec),
		ClientName:  dispatch.ClientName,
		DownloadID:  dispatch.DownloadID,
	})
	if err != nil {
		return nil, fmt.Errorf("recording grab: %w", err)
	}
	outcome.GrabID = grab.ID
	outcome.State = OutcomeCompleted

	s.logger.Info().
		Int64("eventId", event.ID).
		Str("title", best.Release.Title).
		Str("client", dispatch.ClientName).
		Int("score", best.TotalScore).
		Msg("Release grabbed")
	return outcome, nil
}

// AutoSearchAll runs AutoSearch for every monitored event with bounded
// concurrency. One event failing never aborts the others.
func (s *Service) AutoSearchAll(ctx context.Context, provider EventProvider) ([]*Outcome, error) {
	events, err := provider.MonitoredEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing monitored events: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	outcomes := make([]*Outcome, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.BatchConcurrency)

	for i, event := range events {
		i, event := i, event
		g.Go(func() error {
			outcome, err := s.AutoSearch(gctx, event)
			if err != nil {
				outcome = &Outcome{
					EventID:  event.ID,
					PartName: event.PartName,
					State:    OutcomeAllIndexersUnavailable,
					Error:    err.Error(),
				}
				s.logger.Error().
					Err(err).
					Int64("eventId", event.ID).
					Msg("Automatic search failed")
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// fromCache serves the search from the release cache when it holds
// enough matching entries.
func (s *Service) fromCache(ctx context.Context, criteria types.SearchCriteria) *Result {
	if criteria.IsRSS() {
		return nil
	}

	cached, err := s.cache.Lookup(ctx, criteria)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Release cache lookup failed")
		return nil
	}
	if len(cached) < s.options.MinCacheResults {
		return nil
	}

	releases := make([]types.ReleaseInfo, len(cached))
	for i, entry := range cached {
		releases[i] = entry.ReleaseInfo
	}

	s.logger.Debug().
		Str("query", criteria.Query).
		Int("results", len(releases)).
		Msg("Search served from release cache")
	return &Result{
		Releases:     releases,
		TotalResults: len(releases),
		FromCache:    true,
	}
}

// fanOut queries the indexers concurrently and aggregates the results.
func (s *Service) fanOut(ctx context.Context, indexers []*types.IndexerDefinition, criteria types.SearchCriteria) *Result {
	var wg sync.WaitGroup
	resultsChan := make(chan searchTaskResult, len(indexers))

	for _, def := range indexers {
		wg.Add(1)
		go func(def *types.IndexerDefinition) {
			defer wg.Done()
			resultsChan <- s.queryIndexer(ctx, def, criteria)
		}(def)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	return aggregate(resultsChan)
}

// queryIndexer runs one indexer query and records its health.
func (s *Service) queryIndexer(ctx context.Context, def *types.IndexerDefinition, criteria types.SearchCriteria) searchTaskResult {
	result := searchTaskResult{IndexerID: def.ID, IndexerName: def.Name}

	client, err := s.factory(def)
	if err != nil {
		result.Error = fmt.Errorf("building client: %w", err)
		return result
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.options.IndexerTimeout)
	defer cancel()

	start := time.Now()
	releases, err := client.Query(queryCtx, criteria)
	elapsed := time.Since(start)

	if err != nil {
		result.Error = err
		if recordErr := s.status.RecordFailure(ctx, def.ID, status.TrackQuery, err); recordErr != nil {
			s.logger.Warn().Err(recordErr).Int64("indexerId", def.ID).Msg("Failed to record indexer failure")
		}
		s.logger.Error().
			Err(err).
			Str("indexer", def.Name).
			Dur("elapsed", elapsed).
			Msg("Indexer query failed")
		return result
	}

	if err := s.status.RecordSuccess(ctx, def.ID, status.TrackQuery); err != nil {
		s.logger.Warn().Err(err).Int64("indexerId", def.ID).Msg("Failed to record indexer success")
	}

	result.Releases = releases
	s.logger.Debug().
		Str("indexer", def.Name).
		Int("results", len(releases)).
		Dur("elapsed", elapsed).
		Msg("Indexer query completed")
	return result
}

// filterQueryDisabled drops indexers whose query track is backing off.
func (s *Service) filterQueryDisabled(ctx context.Context, indexers []*types.IndexerDefinition) (eligible []*types.IndexerDefinition, skipped int) {
	disabled, err := s.status.DisabledSet(ctx, status.TrackQuery)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load disabled indexers")
		return indexers, 0
	}

	eligible = make([]*types.IndexerDefinition, 0, len(indexers))
	for _, def := range indexers {
		if till, ok := disabled[def.ID]; ok {
			skipped++
			s.logger.Debug().
				Str("indexer", def.Name).
				Time("disabledTill", till).
				Msg("Skipping backing-off indexer")
			continue
		}
		eligible = append(eligible, def)
	}
	return eligible, skipped
}

// evaluatorFor returns the evaluator for the event's quality profile,
// falling back to the service default when none is set or it does not
// resolve. Custom formats carry over.
func (s *Service) evaluatorFor(event SearchableEvent) *scoring.Evaluator {
	if event.QualityProfileID == 0 {
		return s.evaluator
	}
	profile, ok := quality.GetProfileByID(event.QualityProfileID)
	if !ok {
		s.logger.Warn().
			Int64("eventId", event.ID).
			Int64("profileId", event.QualityProfileID).
			Msg("Unknown quality profile, using the default")
		return s.evaluator
	}
	if profile.FormatScores == nil {
		profile.FormatScores = s.evaluator.Profile().FormatScores
	}
	return scoring.NewEvaluator(&profile, s.evaluator.Formats())
}

// evaluate scores the releases and drops blocklisted and rejected ones.
// The rejected count covers both.
func (s *Service) evaluate(ctx context.Context, evaluator *scoring.Evaluator, releases []types.ReleaseInfo) ([]*scoring.Evaluation, int, error) {
	evals := make([]*scoring.Evaluation, 0, len(releases))
	rejected := 0

	for _, release := range releases {
		blocked, err := s.history.IsBlocklisted(ctx, release)
		if err != nil {
			return nil, 0, fmt.Errorf("checking blocklist: %w", err)
		}
		if blocked {
			rejected++
			s.logger.Debug().Str("title", release.Title).Msg("Skipping blocklisted release")
			continue
		}

		eval := evaluator.Evaluate(release)
		if !eval.Approved {
			rejected++
			continue
		}
		evals = append(evals, &eval)
	}
	return evals, rejected, nil
}

func (s *Service) indexerPriorities(ctx context.Context) (map[int64]int, error) {
	defs, err := s.indexers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing indexers: %w", err)
	}
	priorities := make(map[int64]int, len(defs))
	for _, def := range defs {
		priorities[def.ID] = def.Priority
	}
	return priorities, nil
}

func (s *Service) recordGrabFailure(ctx context.Context, indexerID int64, opErr error) {
	if indexerID == 0 {
		return
	}
	if err := s.status.RecordFailure(ctx, indexerID, status.TrackGrab, opErr); err != nil {
		s.logger.Warn().Err(err).Int64("indexerId", indexerID).Msg("Failed to record grab failure")
	}
}

func (s *Service) recordGrabSuccess(ctx context.Context, indexerID int64) {
	if indexerID == 0 {
		return
	}
	if err := s.status.RecordSuccess(ctx, indexerID, status.TrackGrab); err != nil {
		s.logger.Warn().Err(err).Int64("indexerId", indexerID).Msg("Failed to record grab success")
	}
}
