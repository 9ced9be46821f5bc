package pantry

import (
	"time"

	"github.com/zombor/grocery-tracker/internal/grocery"
)

// Item sources
const (
	SourceScan   = "scan"
	SourceManual = "manual"
)

// Item is a grocery item kept in the pantry
type Item struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Category      grocery.Category `json:"category"`
	Quantity      float64          `json:"quantity"`
	Unit          string           `json:"unit"`
	ExpiresOn     time.Time        `json:"expires_on"`
	Source        string           `json:"source"`                   // "scan" or "manual"
	PhotoFilename string           `json:"photo_filename,omitempty"` // Photo the item was scanned from
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Scan is the answer to a photo upload: the stored photo and what was detected in it
type Scan struct {
	PhotoFilename string                   `json:"photo_filename,omitempty"`
	Result        *grocery.DetectionResult `json:"result"`
}

// CategoryInfo describes how an item name is classified
type CategoryInfo struct {
	Name       string           `json:"name"`
	Category   grocery.Category `json:"category"`
	ExpiryDays int              `json:"expiry_days"`
}
