package source

import (
	"context"
	"time"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
)

// Source defines the interface for photo sources.
//
// ListRecent returns candidates modified after since, ordered by
// ModifiedTime ascending so earlier uploads are handled first when
// several appear in the same cycle. Type filtering happens inside the
// lister: unsupported files are excluded, never surfaced as errors.
// An empty window returns an empty slice and a nil error; only a
// transport failure returns an error.
type Source interface {
	// SourceID returns the stable identifier for this source.
	SourceID() string

	// ListRecent enumerates candidate photos modified after since.
	ListRecent(ctx context.Context, since time.Time) ([]domain.PhotoCandidate, error)

	// Download fetches the raw bytes of a candidate.
	Download(ctx context.Context, candidate domain.PhotoCandidate) ([]byte, error)

	// PhotoURL returns a reference URL for a candidate, used in log entries.
	PhotoURL(candidate domain.PhotoCandidate) string
}
