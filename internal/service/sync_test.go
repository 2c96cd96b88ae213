package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/Abra-CatAbra/foodsync-ai/internal/config"
	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
	"github.com/Abra-CatAbra/foodsync-ai/internal/logger"
	"github.com/Abra-CatAbra/foodsync-ai/internal/repository"
)

// fakeSource serves candidates and photo bytes from memory.
type fakeSource struct {
	candidates  []domain.PhotoCandidate
	data        map[string][]byte
	listErr     error
	downloadErr map[string]error
	listCalls   int
}

func (f *fakeSource) SourceID() string { return "fake" }

func (f *fakeSource) ListRecent(ctx context.Context, since time.Time) ([]domain.PhotoCandidate, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.PhotoCandidate
	for _, c := range f.candidates {
		if c.ModifiedTime.After(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeSource) Download(ctx context.Context, c domain.PhotoCandidate) ([]byte, error) {
	if err := f.downloadErr[c.ID]; err != nil {
		return nil, err
	}
	return f.data[c.ID], nil
}

func (f *fakeSource) PhotoURL(c domain.PhotoCandidate) string {
	return "https://photos.example/" + c.ID
}

// fakeSink records appended rows and can fail the next N appends.
type fakeSink struct {
	rows     []domain.LogEntry
	failNext int
	appends  int
}

func (f *fakeSink) EnsureHeader(ctx context.Context) error { return nil }

func (f *fakeSink) Append(ctx context.Context, entry domain.LogEntry) error {
	f.appends++
	if f.failNext > 0 {
		f.failNext--
		return errors.New("sink unavailable")
	}
	f.rows = append(f.rows, entry)
	return nil
}

// fakeAnalyzer maps photo bytes to food names; empty means no food.
type fakeAnalyzer struct {
	foodByImage map[string]string
	analyzeErr  map[string]error
}

func (f *fakeAnalyzer) AnalyzeImage(ctx context.Context, jpegData []byte) (string, error) {
	key := string(jpegData)
	if err := f.analyzeErr[key]; err != nil {
		return "", err
	}
	return f.foodByImage[key], nil
}

func (f *fakeAnalyzer) GenerateRecipe(ctx context.Context, foodName string) (string, error) {
	return "Recipe for " + foodName, nil
}

// passthroughTransformer returns the input bytes unchanged.
type passthroughTransformer struct{}

func (passthroughTransformer) Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	return data, nil
}

type fixture struct {
	sync  *SyncService
	src   *fakeSource
	sink  *fakeSink
	store *repository.ProcessedRepository
	db    *gorm.DB
}

func candidate(id string, age time.Duration) domain.PhotoCandidate {
	return domain.PhotoCandidate{
		ID:           id,
		Name:         id + ".jpg",
		MimeType:     "image/jpeg",
		ModifiedTime: time.Now().Add(-age),
		DownloadRef:  id,
	}
}

// newFixture builds a sync service over a real sqlite-backed store and
// in-memory fakes. Each photo's bytes equal its ID, and the analyzer is
// keyed on those bytes.
func newFixture(t *testing.T, limit int, foods map[string]string) *fixture {
	t.Helper()

	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "sync.db"),
		AutoMigrate:     true,
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	store := repository.NewProcessedRepository(db)

	src := &fakeSource{
		data:        map[string][]byte{},
		downloadErr: map[string]error{},
	}
	for id := range foods {
		src.data[id] = []byte(id)
	}
	snk := &fakeSink{}
	analyzer := &fakeAnalyzer{foodByImage: foods, analyzeErr: map[string]error{}}

	svc := NewSyncService(src, store, snk, passthroughTransformer{}, analyzer,
		logger.New(nil), &SyncConfig{LookbackHours: 24, Limit: limit})

	return &fixture{sync: svc, src: src, sink: snk, store: store, db: db}
}

func TestRunCycleSecondCycleIsNoOp(t *testing.T) {
	fx := newFixture(t, 10, map[string]string{"a": "sushi", "b": "pasta"})
	fx.src.candidates = []domain.PhotoCandidate{
		candidate("a", 2*time.Hour),
		candidate("b", 1*time.Hour),
	}
	ctx := context.Background()

	stats, err := fx.sync.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	if stats.Logged != 2 {
		t.Fatalf("expected 2 logged, got %d", stats.Logged)
	}

	stats, err = fx.sync.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if stats.Processed != 0 {
		t.Errorf("second cycle should process nothing, got %d", stats.Processed)
	}
	if stats.Skipped != 2 {
		t.Errorf("second cycle should skip both, got %d", stats.Skipped)
	}
	if len(fx.sink.rows) != 2 {
		t.Errorf("second cycle must not append rows, got %d total", len(fx.sink.rows))
	}
}

func TestRunCycleAtLeastOnceLogging(t *testing.T) {
	fx := newFixture(t, 10, map[string]string{"a": "curry"})
	fx.src.candidates = []domain.PhotoCandidate{candidate("a", time.Hour)}
	fx.sink.failNext = 1
	ctx := context.Background()

	stats, err := fx.sync.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	if stats.Failed != 1 || stats.Logged != 0 {
		t.Fatalf("expected 1 failure 0 logged, got failed=%d logged=%d", stats.Failed, stats.Logged)
	}

	// Sink failure must not mark the photo, so the next cycle retries it
	done, err := fx.store.IsProcessed(ctx, "a")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if done {
		t.Fatal("photo marked processed despite sink failure: entry would be lost")
	}

	stats, err = fx.sync.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if stats.Logged != 1 {
		t.Errorf("expected retry to log the entry, got %d", stats.Logged)
	}
	if len(fx.sink.rows) != 1 {
		t.Errorf("expected exactly one row after retry, got %d", len(fx.sink.rows))
	}

	// A further cycle appends nothing: exactly once in the end
	if _, err := fx.sync.RunCycle(ctx); err != nil {
		t.Fatalf("third cycle failed: %v", err)
	}
	if len(fx.sink.rows) != 1 {
		t.Errorf("duplicate row after success, got %d", len(fx.sink.rows))
	}
}

func TestRunCycleOrdering(t *testing.T) {
	fx := newFixture(t, 10, map[string]string{
		"first": "pancakes", "second": "soup", "third": "steak",
	})
	// Lister contract: ascending by modified time
	fx.src.candidates = []domain.PhotoCandidate{
		candidate("first", 3*time.Hour),
		candidate("second", 2*time.Hour),
		candidate("third", 1*time.Hour),
	}

	if _, err := fx.sync.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	want := []string{"pancakes", "soup", "steak"}
	if len(fx.sink.rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(fx.sink.rows))
	}
	for i, food := range want {
		if fx.sink.rows[i].FoodName != food {
			t.Errorf("row %d: expected %s, got %s", i, food, fx.sink.rows[i].FoodName)
		}
	}
}

func TestRunCycleLimitEnforcement(t *testing.T) {
	foods := map[string]string{}
	var cands []domain.PhotoCandidate
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("p%d", i)
		foods[id] = "food-" + id
		cands = append(cands, candidate(id, time.Duration(5-i)*time.Hour))
	}
	fx := newFixture(t, 2, foods)
	fx.src.candidates = cands
	ctx := context.Background()

	stats, err := fx.sync.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if stats.Processed != 2 {
		t.Errorf("expected 2 processed with limit=2, got %d", stats.Processed)
	}
	if stats.Deferred != 3 {
		t.Errorf("expected 3 deferred, got %d", stats.Deferred)
	}

	// Oldest two are marked; the other three stay unprocessed
	for i, id := range []string{"p0", "p1", "p2", "p3", "p4"} {
		done, err := fx.store.IsProcessed(ctx, id)
		if err != nil {
			t.Fatalf("IsProcessed(%s) failed: %v", id, err)
		}
		wantDone := i < 2
		if done != wantDone {
			t.Errorf("IsProcessed(%s) = %v, want %v", id, done, wantDone)
		}
	}
}

func TestRunCycleNoFoodPath(t *testing.T) {
	fx := newFixture(t, 10, map[string]string{"landscape": ""})
	fx.src.candidates = []domain.PhotoCandidate{candidate("landscape", time.Hour)}
	ctx := context.Background()

	stats, err := fx.sync.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if stats.NoFood != 1 || stats.Failed != 0 {
		t.Errorf("expected no_food=1 failed=0, got no_food=%d failed=%d", stats.NoFood, stats.Failed)
	}
	if len(fx.sink.rows) != 0 {
		t.Errorf("no-food photo must not be logged, got %d rows", len(fx.sink.rows))
	}

	rec, err := fx.store.Get(ctx, "landscape")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Status != domain.ProcessStatusNoFood {
		t.Errorf("expected status no_food, got %s", rec.Status)
	}
	done, err := fx.store.IsProcessed(ctx, "landscape")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !done {
		t.Error("no_food photo should be terminal")
	}
}

func TestRunCyclePerPhotoFailureIsolation(t *testing.T) {
	fx := newFixture(t, 10, map[string]string{"good": "tacos", "bad": "burrito"})
	fx.src.candidates = []domain.PhotoCandidate{
		candidate("bad", 2*time.Hour),
		candidate("good", 1*time.Hour),
	}
	fx.src.downloadErr["bad"] = errors.New("connection reset")
	ctx := context.Background()

	stats, err := fx.sync.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if stats.Failed != 1 || stats.Logged != 1 {
		t.Errorf("expected failed=1 logged=1, got failed=%d logged=%d", stats.Failed, stats.Logged)
	}

	// The failed photo keeps a visible failure record but stays retry-eligible
	rec, err := fx.store.Get(ctx, "bad")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Status != domain.ProcessStatusFailed {
		t.Errorf("expected failed status, got %s", rec.Status)
	}
	if rec.RetryCount != 1 {
		t.Errorf("expected retry_count 1, got %d", rec.RetryCount)
	}
	done, err := fx.store.IsProcessed(ctx, "bad")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if done {
		t.Error("failed photo must remain retry-eligible")
	}

	// Next cycle the download works and the retry count is visible
	delete(fx.src.downloadErr, "bad")
	if _, err := fx.sync.RunCycle(ctx); err != nil {
		t.Fatalf("retry cycle failed: %v", err)
	}
	rec, err = fx.store.Get(ctx, "bad")
	if err != nil {
		t.Fatalf("Get after retry failed: %v", err)
	}
	if rec.Status != domain.ProcessStatusSuccess {
		t.Errorf("expected success after retry, got %s", rec.Status)
	}
}

func TestRunCycleListingErrorIsRetryable(t *testing.T) {
	fx := newFixture(t, 10, nil)
	fx.src.listErr = errors.New("bucket unreachable")

	_, err := fx.sync.RunCycle(context.Background())
	if err == nil {
		t.Fatal("expected listing error to surface")
	}
	if errors.Is(err, ErrStoreFailure) {
		t.Error("listing transport error must not be classified as a store failure")
	}
}
