package domain

import "time"

// PhotoCandidate is a photo enumerated from a source store, not yet
// checked against the processed set. Candidates are ephemeral and
// produced fresh on every cycle.
type PhotoCandidate struct {
	ID           string    // Unique ID within the source namespace
	Name         string    // Original file name
	MimeType     string    // Detected or source-reported MIME type
	ModifiedTime time.Time // Upload/modification time at the source
	Size         int64     // Size in bytes, 0 when unknown
	DownloadRef  string    // Source-specific reference used for download
}

// AnalysisResult holds the outcome of running a photo through the
// vision pipeline. An empty FoodName means no food was detected.
type AnalysisResult struct {
	FoodName string
	Recipe   string
}

// Detected reports whether the analyzer found food in the photo.
func (r AnalysisResult) Detected() bool {
	return r.FoodName != ""
}

// LogEntry is one append-only row written to the food log sink.
type LogEntry struct {
	Date     time.Time
	FoodName string
	Recipe   string
	PhotoRef string
}
