package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/dotastats/prostats/internal/domain/checkpoint"
	"github.com/dotastats/prostats/internal/platform/logging"
)

type IngestConfig struct {
	RunName      string
	Workers      int
	MaxPages     int
	MaxMatches   int
	FailureRatio float64
}

func NormalizeIngestConfig(cfg IngestConfig) IngestConfig {
	if cfg.RunName == "" {
		cfg.RunName = "pro-matches"
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = 0.5
	}
	return cfg
}

// RunSummary is the accounting for one ingestion run. Every failed match id
// is listed with its failure kind; nothing is dropped silently.
type RunSummary struct {
	RunName       string         `json:"run_name"`
	Pages         int            `json:"pages"`
	Listed        int            `json:"listed"`
	Skipped       int            `json:"skipped"`
	Fetched       int            `json:"fetched"`
	Inserted      int            `json:"inserted"`
	Updated       int            `json:"updated"`
	Failed        int            `json:"failed"`
	FailedMatches []MatchFailure `json:"failed_matches,omitempty"`
	Cursor        int64          `json:"cursor"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
}

// MatchFailure identifies one match the run could not ingest.
type MatchFailure struct {
	MatchID int64  `json:"match_id"`
	Kind    string `json:"kind"`
}

// Failure kinds reported in the run summary.
const (
	FailureFetch     = "fetch_failed"
	FailureMalformed = "malformed_document"
	FailureWrite     = "write_failed"
	FailureStore     = "store_unavailable"
)

// failureLog collects per-match failures across the run. The first store
// level error is kept separately; it aborts the run.
type failureLog struct {
	mu       sync.Mutex
	failures []MatchFailure
	fatal    error
}

func (l *failureLog) record(matchID int64, kind string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, MatchFailure{MatchID: matchID, Kind: kind})
}

func (l *failureLog) recordFatal(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fatal == nil {
		l.fatal = err
	}
}

func (l *failureLog) fatalErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fatal
}

func (l *failureLog) list() []MatchFailure {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]MatchFailure(nil), l.failures...)
}

// IngestService walks the provider's pro-match listing backwards from the
// stored cursor, fetches each unseen match document on a worker pool,
// normalizes it, and writes it through the MatchWriter. The checkpoint only
// advances after every match on the page has been handled, so an
// interrupted run resumes by revisiting at most one page.
type IngestService struct {
	cfg         IngestConfig
	source      MatchSource
	writer      MatchWriter
	existence   MatchExistence
	checkpoints checkpoint.Store
	index       *Index
	logger      *logging.Logger
	now         func() time.Time
}

func NewIngestService(
	cfg IngestConfig,
	source MatchSource,
	writer MatchWriter,
	existence MatchExistence,
	checkpoints checkpoint.Store,
	index *Index,
	logger *logging.Logger,
) *IngestService {
	if logger == nil {
		logger = logging.NewNop()
	}
	if index == nil {
		index = NewIndex()
	}
	return &IngestService{
		cfg:         NormalizeIngestConfig(cfg),
		source:      source,
		writer:      writer,
		existence:   existence,
		checkpoints: checkpoints,
		index:       index,
		logger:      logger,
		now:         time.Now,
	}
}

type pageCounters struct {
	inserted int64
	updated  int64
	skipped  int64
	failed   int64
}

func (s *IngestService) Run(ctx context.Context) (RunSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestService.Run")
	defer span.End()

	summary := RunSummary{
		RunName:   s.cfg.RunName,
		StartedAt: s.now().UTC(),
	}
	failures := &failureLog{}
	finish := func() {
		summary.FinishedAt = s.now().UTC()
		summary.FailedMatches = failures.list()
	}

	cursor, found, err := s.checkpoints.Load(ctx, s.cfg.RunName)
	if err != nil {
		finish()
		return summary, fmt.Errorf("load checkpoint run=%s: %w", s.cfg.RunName, err)
	}
	if !found {
		cursor = 0
	}
	summary.Cursor = cursor

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		finish()
		return summary, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	processed := 0
	for page := 0; s.cfg.MaxPages <= 0 || page < s.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			finish()
			return summary, err
		}

		summaries, err := s.source.FetchProMatches(ctx, cursor)
		if err != nil {
			finish()
			return summary, fmt.Errorf("fetch pro matches less_than=%d: %w", cursor, err)
		}
		if len(summaries) == 0 {
			break
		}
		summary.Pages++
		summary.Listed += len(summaries)

		ids, minID := candidateMatchIDs(summaries)
		if len(ids) == 0 {
			s.logger.WarnContext(ctx, "listing page had no usable match ids", "cursor", cursor)
			break
		}
		// Descending pagination must make progress; a page that does not move
		// the cursor would loop forever.
		if cursor != 0 && minID >= cursor {
			s.logger.WarnContext(ctx, "pagination cursor stopped advancing", "cursor", cursor, "min_id", minID)
			break
		}

		unseen := make([]int64, 0, len(ids))
		for _, id := range ids {
			if s.index.Contains(KindMatch, strconv.FormatInt(id, 10)) {
				continue
			}
			unseen = append(unseen, id)
		}
		summary.Skipped += len(ids) - len(unseen)

		existing, err := s.existence.ExistingMatchIDs(ctx, unseen)
		if err != nil {
			finish()
			return summary, fmt.Errorf("check existing matches: %w", err)
		}
		newIDs := filterExisting(unseen, existing)
		summary.Skipped += len(unseen) - len(newIDs)

		truncated := false
		if s.cfg.MaxMatches > 0 && processed+len(newIDs) > s.cfg.MaxMatches {
			newIDs = newIDs[:s.cfg.MaxMatches-processed]
			truncated = true
		}

		counters, err := s.processPage(ctx, pool, newIDs, failures)
		summary.Fetched += len(newIDs)
		summary.Inserted += int(counters.inserted)
		summary.Updated += int(counters.updated)
		summary.Skipped += int(counters.skipped)
		summary.Failed += int(counters.failed)
		processed += len(newIDs)
		if err != nil {
			finish()
			return summary, err
		}

		if len(newIDs) > 0 {
			ratio := float64(counters.failed) / float64(len(newIDs))
			if ratio > s.cfg.FailureRatio {
				finish()
				return summary, fmt.Errorf("aborting run: %d of %d matches failed on one page", counters.failed, len(newIDs))
			}
		}

		// The page is fully handled, so the cursor may move past it. A
		// truncated page resumes below the last match actually handled.
		cursor = minID
		if truncated && len(newIDs) > 0 {
			cursor = newIDs[len(newIDs)-1]
		}
		if err := s.checkpoints.Save(ctx, s.cfg.RunName, cursor); err != nil {
			finish()
			return summary, fmt.Errorf("save checkpoint run=%s cursor=%d: %w", s.cfg.RunName, cursor, err)
		}
		summary.Cursor = cursor

		s.logger.InfoContext(ctx, "ingested listing page",
			"cursor", cursor,
			"listed", len(summaries),
			"new", len(newIDs),
			"inserted", counters.inserted,
			"updated", counters.updated,
			"failed", counters.failed,
		)

		if s.cfg.MaxMatches > 0 && processed >= s.cfg.MaxMatches {
			break
		}
	}

	finish()
	return summary, nil
}

func (s *IngestService) processPage(ctx context.Context, pool *ants.Pool, ids []int64, failures *failureLog) (pageCounters, error) {
	var counters pageCounters
	var wg sync.WaitGroup

	for _, id := range ids {
		matchID := id
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			s.processMatch(ctx, matchID, &counters, failures)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return counters, fmt.Errorf("submit match %d: %w", matchID, err)
		}
	}
	wg.Wait()

	if err := failures.fatalErr(); err != nil {
		return counters, fmt.Errorf("aborting run: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return counters, err
	}
	return counters, nil
}

func (s *IngestService) processMatch(ctx context.Context, matchID int64, counters *pageCounters, failures *failureLog) {
	// A match abandoned by cancellation was never attempted; it is not a
	// skip and stays out of the counters.
	if ctx.Err() != nil {
		return
	}

	doc, raw, err := s.source.FetchMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "match document not found, skipping", "match_id", matchID)
			atomic.AddInt64(&counters.skipped, 1)
			return
		}
		s.logger.WarnContext(ctx, "fetch match failed", "match_id", matchID, "error", err)
		atomic.AddInt64(&counters.failed, 1)
		failures.record(matchID, FailureFetch)
		return
	}

	bundle, err := NormalizeMatch(doc, raw)
	if err != nil {
		s.logger.WarnContext(ctx, "normalize match failed", "match_id", matchID, "error", err)
		atomic.AddInt64(&counters.failed, 1)
		failures.record(matchID, FailureMalformed)
		return
	}

	bundle = pruneKnownReferences(s.index, bundle)
	outcome, err := s.writer.WriteMatch(ctx, bundle)
	if err != nil {
		switch {
		case errors.Is(err, ErrIntegrityConflict):
			// The rows are already in the store, likely written by a
			// concurrent worker on the same page.
			s.logger.WarnContext(ctx, "match already ingested", "match_id", matchID, "error", err)
			atomic.AddInt64(&counters.skipped, 1)
		case errors.Is(err, ErrStoreUnavailable):
			s.logger.ErrorContext(ctx, "store unavailable, aborting run", "match_id", matchID, "error", err)
			atomic.AddInt64(&counters.failed, 1)
			failures.record(matchID, FailureStore)
			failures.recordFatal(err)
		default:
			s.logger.WarnContext(ctx, "write match failed", "match_id", matchID, "error", err)
			atomic.AddInt64(&counters.failed, 1)
			failures.record(matchID, FailureWrite)
		}
		return
	}
	recordWrittenBundle(s.index, bundle)
	if outcome.Inserted {
		atomic.AddInt64(&counters.inserted, 1)
	} else {
		atomic.AddInt64(&counters.updated, 1)
	}
}
