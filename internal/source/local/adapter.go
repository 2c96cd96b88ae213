package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
	"github.com/Abra-CatAbra/foodsync-ai/internal/transform"
)

// Adapter lists and reads photos from a local directory. Useful for
// runs without bucket credentials and for tests; modification time
// stands in for upload time.
type Adapter struct {
	dir string
}

// NewAdapter creates a new local directory source adapter.
func NewAdapter(dir string) *Adapter {
	return &Adapter{dir: dir}
}

// SourceID returns the stable identifier for this source.
func (a *Adapter) SourceID() string {
	return "local:" + a.dir
}

// ListRecent enumerates directory entries modified after since, filtered
// to supported image types and ordered by modification time ascending.
func (a *Adapter) ListRecent(ctx context.Context, since time.Time) ([]domain.PhotoCandidate, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("photo directory %s does not exist: %w", a.dir, err)
		}
		return nil, fmt.Errorf("failed to read photo directory: %w", err)
	}

	var candidates []domain.PhotoCandidate
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() || !transform.IsSupportedName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed between ReadDir and stat
		}
		if !info.ModTime().After(since) {
			continue
		}
		path := filepath.Join(a.dir, entry.Name())
		candidates = append(candidates, domain.PhotoCandidate{
			ID:           entry.Name(),
			Name:         entry.Name(),
			MimeType:     transform.MimeTypeFromName(entry.Name()),
			ModifiedTime: info.ModTime(),
			Size:         info.Size(),
			DownloadRef:  path,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ModifiedTime.Before(candidates[j].ModifiedTime)
	})

	return candidates, nil
}

// Download reads the raw bytes of a candidate file.
func (a *Adapter) Download(ctx context.Context, candidate domain.PhotoCandidate) ([]byte, error) {
	data, err := os.ReadFile(candidate.DownloadRef)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", candidate.DownloadRef, err)
	}
	return data, nil
}

// PhotoURL returns a file URL for a candidate, used in log entries.
func (a *Adapter) PhotoURL(candidate domain.PhotoCandidate) string {
	abs, err := filepath.Abs(candidate.DownloadRef)
	if err != nil {
		abs = candidate.DownloadRef
	}
	return "file://" + abs
}
