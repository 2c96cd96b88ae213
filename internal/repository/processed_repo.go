package repository

import (
	"context"
	"time"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessedRepository owns all mutation of the processed-photo set.
// Callers never touch the backing storage directly.
type ProcessedRepository struct {
	db *gorm.DB
}

// NewProcessedRepository creates a new ProcessedRepository.
func NewProcessedRepository(db *gorm.DB) *ProcessedRepository {
	return &ProcessedRepository{db: db}
}

// IsProcessed reports whether a photo has reached a terminal state
// (success or no_food). Photos whose last attempt failed are not
// considered processed and stay eligible for retry.
func (r *ProcessedRepository) IsProcessed(ctx context.Context, photoID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ProcessedRecord{}).
		Where("photo_id = ? AND status IN ?", photoID,
			[]domain.ProcessStatus{domain.ProcessStatusSuccess, domain.ProcessStatusNoFood}).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed records the handling outcome for a photo. The upsert is
// keyed on photo_id and last write wins, so repeated marks are idempotent.
func (r *ProcessedRepository) MarkProcessed(ctx context.Context, rec *domain.ProcessedRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "photo_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "source_type", "status", "food_name",
			"retry_count", "last_error", "processed_at", "updated_at",
		}),
	}).Create(rec).Error
}

// Get retrieves the record for a photo, if any.
func (r *ProcessedRepository) Get(ctx context.Context, photoID string) (*domain.ProcessedRecord, error) {
	var rec domain.ProcessedRecord
	if err := r.db.WithContext(ctx).First(&rec, "photo_id = ?", photoID).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecent returns records ordered newest first, optionally filtered
// by status, with pagination.
func (r *ProcessedRepository) ListRecent(ctx context.Context, status domain.ProcessStatus, limit, offset int) ([]domain.ProcessedRecord, error) {
	var recs []domain.ProcessedRecord
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.
		Order("processed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// CountByStatus counts records in the given status.
func (r *ProcessedRepository) CountByStatus(ctx context.Context, status domain.ProcessStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ProcessedRecord{}).
		Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// PurgeOlderThan deletes terminal records older than the given age and
// returns how many were removed. Retention is an external policy; the
// sync cycle never calls this.
func (r *ProcessedRepository) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	res := r.db.WithContext(ctx).
		Where("processed_at < ? AND status IN ?", cutoff,
			[]domain.ProcessStatus{domain.ProcessStatusSuccess, domain.ProcessStatusNoFood}).
		Delete(&domain.ProcessedRecord{})
	return res.RowsAffected, res.Error
}
