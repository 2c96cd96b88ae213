package sink

import (
	"context"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
)

// Header is the column layout of the food log.
var Header = []string{"Date", "Food Name", "Recipe", "Photo URL"}

// Sink appends food log entries to a durable tabular log.
// Rows are write-once and append-only.
type Sink interface {
	// EnsureHeader creates the header row if it is absent.
	EnsureHeader(ctx context.Context) error

	// Append writes one entry as a new row.
	Append(ctx context.Context, entry domain.LogEntry) error
}
