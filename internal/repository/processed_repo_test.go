package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Abra-CatAbra/foodsync-ai/internal/config"
	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
)

func testDBConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "processed.db"),
		AutoMigrate:     true,
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
	}
}

func newTestRepo(t *testing.T, cfg *config.DatabaseConfig) *ProcessedRepository {
	t.Helper()
	db, err := InitDB(cfg)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	return NewProcessedRepository(db)
}

func TestIsProcessedStatusSemantics(t *testing.T) {
	repo := newTestRepo(t, testDBConfig(t))
	ctx := context.Background()

	tests := []struct {
		name      string
		status    domain.ProcessStatus
		processed bool
	}{
		{"success is terminal", domain.ProcessStatusSuccess, true},
		{"no_food is terminal", domain.ProcessStatusNoFood, true},
		{"failed stays retry-eligible", domain.ProcessStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photoID := "photo-" + string(tt.status)
			err := repo.MarkProcessed(ctx, &domain.ProcessedRecord{
				PhotoID: photoID,
				Status:  tt.status,
			})
			if err != nil {
				t.Fatalf("MarkProcessed failed: %v", err)
			}

			got, err := repo.IsProcessed(ctx, photoID)
			if err != nil {
				t.Fatalf("IsProcessed failed: %v", err)
			}
			if got != tt.processed {
				t.Errorf("IsProcessed(%s) = %v, want %v", tt.status, got, tt.processed)
			}
		})
	}
}

func TestIsProcessedUnknownPhoto(t *testing.T) {
	repo := newTestRepo(t, testDBConfig(t))

	got, err := repo.IsProcessed(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if got {
		t.Error("unknown photo should not be processed")
	}
}

func TestMarkProcessedUpsertLastWriteWins(t *testing.T) {
	repo := newTestRepo(t, testDBConfig(t))
	ctx := context.Background()

	if err := repo.MarkProcessed(ctx, &domain.ProcessedRecord{
		PhotoID:    "p1",
		Status:     domain.ProcessStatusFailed,
		RetryCount: 1,
		LastError:  "download timeout",
	}); err != nil {
		t.Fatalf("first mark failed: %v", err)
	}

	if err := repo.MarkProcessed(ctx, &domain.ProcessedRecord{
		PhotoID:  "p1",
		Status:   domain.ProcessStatusSuccess,
		FoodName: "ramen",
	}); err != nil {
		t.Fatalf("second mark failed: %v", err)
	}

	rec, err := repo.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Status != domain.ProcessStatusSuccess {
		t.Errorf("expected status success after upsert, got %s", rec.Status)
	}
	if rec.FoodName != "ramen" {
		t.Errorf("expected food name ramen, got %q", rec.FoodName)
	}

	// Still exactly one live record for the photo
	var total int64
	for _, status := range []domain.ProcessStatus{
		domain.ProcessStatusSuccess, domain.ProcessStatusNoFood, domain.ProcessStatusFailed,
	} {
		n, err := repo.CountByStatus(ctx, status)
		if err != nil {
			t.Fatalf("CountByStatus failed: %v", err)
		}
		total += n
	}
	if total != 1 {
		t.Errorf("expected 1 record after upsert, got %d", total)
	}
}

func TestMarkSurvivesReopen(t *testing.T) {
	cfg := testDBConfig(t)
	repo := newTestRepo(t, cfg)
	ctx := context.Background()

	if err := repo.MarkProcessed(ctx, &domain.ProcessedRecord{
		PhotoID: "crash-photo",
		Status:  domain.ProcessStatusSuccess,
	}); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	// Simulate a process restart: a fresh handle on the same file must
	// still see the mark.
	reopened := newTestRepo(t, cfg)
	got, err := reopened.IsProcessed(ctx, "crash-photo")
	if err != nil {
		t.Fatalf("IsProcessed after reopen failed: %v", err)
	}
	if !got {
		t.Error("mark lost across reopen")
	}
}

func TestPurgeOlderThan(t *testing.T) {
	repo := newTestRepo(t, testDBConfig(t))
	ctx := context.Background()

	old := &domain.ProcessedRecord{
		PhotoID:     "old",
		Status:      domain.ProcessStatusSuccess,
		ProcessedAt: time.Now().Add(-48 * time.Hour),
	}
	fresh := &domain.ProcessedRecord{
		PhotoID: "fresh",
		Status:  domain.ProcessStatusSuccess,
	}
	failedOld := &domain.ProcessedRecord{
		PhotoID:     "failed-old",
		Status:      domain.ProcessStatusFailed,
		ProcessedAt: time.Now().Add(-48 * time.Hour),
	}
	for _, rec := range []*domain.ProcessedRecord{old, fresh, failedOld} {
		if err := repo.MarkProcessed(ctx, rec); err != nil {
			t.Fatalf("MarkProcessed failed: %v", err)
		}
	}

	n, err := repo.PurgeOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged record, got %d", n)
	}

	// Failed records are never purged; they document items that aged out.
	if _, err := repo.Get(ctx, "failed-old"); err != nil {
		t.Errorf("failed record should survive purge: %v", err)
	}
	if _, err := repo.Get(ctx, "fresh"); err != nil {
		t.Errorf("fresh record should survive purge: %v", err)
	}
}
