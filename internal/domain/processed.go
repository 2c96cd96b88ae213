package domain

import "time"

// ProcessStatus represents the terminal handling state of a photo.
// Values include ProcessStatusSuccess, ProcessStatusNoFood, and ProcessStatusFailed.
type ProcessStatus string

const (
	ProcessStatusSuccess ProcessStatus = "success"
	ProcessStatusNoFood  ProcessStatus = "no_food"
	ProcessStatusFailed  ProcessStatus = "failed"
)

// Terminal reports whether the status makes a photo ineligible for retry.
// Failed photos stay retry-eligible and are re-listed on later cycles.
func (s ProcessStatus) Terminal() bool {
	return s == ProcessStatusSuccess || s == ProcessStatusNoFood
}

// Valid reports whether the status is one of the known values.
func (s ProcessStatus) Valid() bool {
	switch s {
	case ProcessStatusSuccess, ProcessStatusNoFood, ProcessStatusFailed:
		return true
	}
	return false
}

// ProcessedRecord tracks a photo that has been handled by the sync pipeline.
// At most one live record exists per photo ID; the repository upserts on
// conflict so the last write wins.
type ProcessedRecord struct {
	ID          string        `gorm:"type:text;primaryKey" json:"id"`
	PhotoID     string        `gorm:"type:text;not null;uniqueIndex:idx_processed_photo_id" json:"photo_id"`
	Name        string        `gorm:"type:text" json:"name"`
	SourceType  string        `gorm:"type:text;index:idx_processed_source" json:"source_type"`
	Status      ProcessStatus `gorm:"type:text;index:idx_processed_status" json:"status"`
	FoodName    string        `gorm:"type:text" json:"food_name,omitempty"`
	RetryCount  int           `gorm:"default:0" json:"retry_count"`
	LastError   string        `gorm:"type:text" json:"last_error,omitempty"`
	ProcessedAt time.Time     `json:"processed_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName returns the database table name for ProcessedRecord.
func (ProcessedRecord) TableName() string {
	return "processed_photos"
}
