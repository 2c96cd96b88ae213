package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
	"github.com/Abra-CatAbra/foodsync-ai/internal/sink"
)

// Sink appends food log rows to a local CSV file. It serves runs that
// have no spreadsheet credentials; each row is flushed and the file
// synced before Append returns.
type Sink struct {
	path string
}

// New creates a new CSV sink writing to path.
func New(path string) *Sink {
	return &Sink{path: path}
}

// EnsureHeader writes the header row when the file is absent or empty.
func (s *Sink) EnsureHeader(ctx context.Context) error {
	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return s.writeRow(sink.Header)
}

// Append writes one log entry as a new row.
func (s *Sink) Append(ctx context.Context, entry domain.LogEntry) error {
	return s.writeRow([]string{
		entry.Date.Format("2006-01-02 15:04:05"),
		entry.FoodName,
		entry.Recipe,
		entry.PhotoRef,
	})
}

func (s *Sink) writeRow(row []string) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush log row: %w", err)
	}
	// The appended row must be durable before the photo is marked processed
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	return nil
}
