package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
	"github.com/Abra-CatAbra/foodsync-ai/internal/logger"
	"github.com/Abra-CatAbra/foodsync-ai/internal/repository"
	"github.com/Abra-CatAbra/foodsync-ai/internal/sink"
	"github.com/Abra-CatAbra/foodsync-ai/internal/source"
)

// ErrStoreFailure marks processed-set store errors. The pipeline cannot
// run safely without the store, so these are fatal to the cycle and, in
// monitor mode, to the whole loop.
var ErrStoreFailure = errors.New("processed store failure")

// Analyzer detects food in an analysis-ready JPEG and generates recipes.
// An empty food name with a nil error means no food was detected.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, jpegData []byte) (string, error)
	GenerateRecipe(ctx context.Context, foodName string) (string, error)
}

// Transformer normalizes raw photo bytes into analysis-ready JPEG bytes.
type Transformer interface {
	Normalize(data []byte) ([]byte, error)
}

// SyncService drives one processing cycle: list, filter against the
// processed set, then per photo download, transform, analyze, log, and
// mark. Photos are handled sequentially, one in flight at a time, and
// failures are isolated per photo.
type SyncService struct {
	source      source.Source
	store       *repository.ProcessedRepository
	sink        sink.Sink
	transformer Transformer
	analyzer    Analyzer
	logger      *logger.Logger
	lookback    time.Duration
	limit       int
}

// SyncConfig holds configuration for the sync service.
type SyncConfig struct {
	LookbackHours int
	Limit         int
}

// NewSyncService creates a new sync service.
func NewSyncService(
	src source.Source,
	store *repository.ProcessedRepository,
	logSink sink.Sink,
	transformer Transformer,
	analyzer Analyzer,
	log *logger.Logger,
	cfg *SyncConfig,
) *SyncService {
	lookback := 24 * time.Hour
	limit := 10
	if cfg != nil {
		if cfg.LookbackHours > 0 {
			lookback = time.Duration(cfg.LookbackHours) * time.Hour
		}
		if cfg.Limit > 0 {
			limit = cfg.Limit
		}
	}
	return &SyncService{
		source:      src,
		store:       store,
		sink:        logSink,
		transformer: transformer,
		analyzer:    analyzer,
		logger:      log,
		lookback:    lookback,
		limit:       limit,
	}
}

// log returns a logger from context if available, otherwise the service logger
func (s *SyncService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// CycleStats summarizes one sync cycle.
type CycleStats struct {
	Listed    int // candidates returned by the lister
	Skipped   int // already processed, filtered out
	Deferred  int // beyond the per-cycle limit, re-listed next cycle
	Processed int // handled this cycle (any outcome)
	Logged    int // food found and a log row appended
	NoFood    int // analyzed, no food detected
	Failed    int // retry-eligible failures
	StartTime time.Time
	EndTime   time.Time
}

// RunCycle executes one full cycle. Per-photo errors are caught at the
// photo boundary and accumulated into the stats; RunCycle itself returns
// an error only for listing failures (retryable next cycle) or store
// failures (fatal, wrapped in ErrStoreFailure).
func (s *SyncService) RunCycle(ctx context.Context) (*CycleStats, error) {
	cycleID := uuid.New().String()
	ctx = logger.SetCycleID(ctx, cycleID)
	ctx = logger.SetSource(ctx, s.source.SourceID())

	stats := &CycleStats{StartTime: time.Now()}
	since := stats.StartTime.Add(-s.lookback)

	s.log(ctx).WithFields(logger.Fields{
		"since": since.Format(time.RFC3339),
		"limit": s.limit,
	}).Info("Starting sync cycle")

	candidates, err := s.source.ListRecent(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	stats.Listed = len(candidates)

	// Filter out photos already in a terminal state
	pending := candidates[:0]
	for _, c := range candidates {
		done, err := s.store.IsProcessed(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to check %s: %v", ErrStoreFailure, c.ID, err)
		}
		if done {
			stats.Skipped++
			continue
		}
		pending = append(pending, c)
	}

	// Oldest first; photos beyond the limit stay unprocessed and are
	// re-listed next cycle while still inside the lookback window.
	if len(pending) > s.limit {
		stats.Deferred = len(pending) - s.limit
		pending = pending[:s.limit]
	}

	for _, candidate := range pending {
		if ctx.Err() != nil {
			break
		}
		stats.Processed++
		if err := s.processPhoto(ctx, candidate, stats); err != nil {
			return stats, err
		}
	}

	stats.EndTime = time.Now()

	s.log(ctx).WithFields(logger.Fields{
		"listed":    stats.Listed,
		"skipped":   stats.Skipped,
		"deferred":  stats.Deferred,
		"processed": stats.Processed,
		"logged":    stats.Logged,
		"no_food":   stats.NoFood,
		"failed":    stats.Failed,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Sync cycle completed")

	return stats, nil
}

// processPhoto handles one candidate as an independent unit of work.
// Retry-eligible failures are recorded in stats and the photo is left
// unmarked (or marked failed) so it is reconsidered next cycle. Only a
// store failure propagates as an error.
func (s *SyncService) processPhoto(ctx context.Context, candidate domain.PhotoCandidate, stats *CycleStats) error {
	ctx = logger.SetPhotoID(ctx, candidate.ID)
	s.log(ctx).WithField("name", candidate.Name).Info("Processing photo")

	data, err := s.source.Download(ctx, candidate)
	if err != nil {
		s.log(ctx).WithError(err).Error("Failed to download photo")
		s.recordFailure(ctx, candidate, err)
		stats.Failed++
		return nil
	}

	jpegData, err := s.transformer.Normalize(data)
	if err != nil {
		s.log(ctx).WithError(err).Error("Failed to normalize photo")
		s.recordFailure(ctx, candidate, err)
		stats.Failed++
		return nil
	}

	foodName, err := s.analyzer.AnalyzeImage(ctx, jpegData)
	if err != nil {
		s.log(ctx).WithError(err).Error("Failed to analyze photo")
		s.recordFailure(ctx, candidate, err)
		stats.Failed++
		return nil
	}

	if foodName == "" {
		// Normal outcome: the photo is done, nothing to log
		s.log(ctx).Info("No food detected")
		if err := s.mark(ctx, candidate, domain.ProcessStatusNoFood, "", ""); err != nil {
			return err
		}
		stats.NoFood++
		return nil
	}

	recipe, err := s.analyzer.GenerateRecipe(ctx, foodName)
	if err != nil {
		s.log(ctx).WithError(err).Error("Failed to generate recipe")
		s.recordFailure(ctx, candidate, err)
		stats.Failed++
		return nil
	}

	entry := domain.LogEntry{
		Date:     time.Now(),
		FoodName: foodName,
		Recipe:   recipe,
		PhotoRef: s.source.PhotoURL(candidate),
	}
	if err := s.sink.Append(ctx, entry); err != nil {
		// The photo stays unmarked so the entry is retried next cycle;
		// marking here would silently lose the row.
		s.log(ctx).WithError(err).Error("Failed to append log entry")
		s.recordFailure(ctx, candidate, err)
		stats.Failed++
		return nil
	}

	if err := s.mark(ctx, candidate, domain.ProcessStatusSuccess, foodName, ""); err != nil {
		return err
	}

	s.log(ctx).WithField("food", foodName).Info("Photo processed and logged")
	stats.Logged++
	return nil
}

// mark upserts a terminal record. Store failure here is fatal: the mark
// must be durable before the photo can be considered handled.
func (s *SyncService) mark(ctx context.Context, candidate domain.PhotoCandidate, status domain.ProcessStatus, foodName, lastError string) error {
	rec := &domain.ProcessedRecord{
		PhotoID:    candidate.ID,
		Name:       candidate.Name,
		SourceType: s.source.SourceID(),
		Status:     status,
		FoodName:   foodName,
		LastError:  lastError,
	}
	if err := s.store.MarkProcessed(ctx, rec); err != nil {
		return fmt.Errorf("%w: failed to mark %s: %v", ErrStoreFailure, candidate.ID, err)
	}
	return nil
}

// recordFailure upserts a failed record with an incremented retry count.
// Failed records do not count as processed, so the photo remains
// retry-eligible; the record exists so operators can see photos that are
// failing repeatedly or about to age out of the lookback window.
func (s *SyncService) recordFailure(ctx context.Context, candidate domain.PhotoCandidate, cause error) {
	retries := 1
	if prev, err := s.store.Get(ctx, candidate.ID); err == nil {
		retries = prev.RetryCount + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log(ctx).WithError(err).Warn("Failed to read previous record")
	}

	rec := &domain.ProcessedRecord{
		PhotoID:    candidate.ID,
		Name:       candidate.Name,
		SourceType: s.source.SourceID(),
		Status:     domain.ProcessStatusFailed,
		RetryCount: retries,
		LastError:  cause.Error(),
	}
	// Best effort: a lost failure record only loses observability, the
	// photo is retried either way
	if err := s.store.MarkProcessed(ctx, rec); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record failure")
	}
}
