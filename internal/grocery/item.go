package grocery

import "time"

// Default values applied to detected items when a provider omits them
const (
	DefaultQuantity   = 1.0
	DefaultUnit       = "piece"
	DefaultConfidence = 0.7
)

// MethodMock is the method reported when the built-in sample items are returned
const MethodMock = "mock"

// DetectedItem is one grocery item recognized in a photo
type DetectedItem struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Category        Category  `json:"category"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
	Confidence      float64   `json:"confidence"`
	EstimatedExpiry time.Time `json:"estimated_expiry"`
}

// Attempt records the outcome of one provider call
type Attempt struct {
	Provider string `json:"provider"`
	Items    int    `json:"items"`
	Rejected int    `json:"rejected,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DetectionResult is the normalized answer to a photo analysis
type DetectionResult struct {
	Success  bool           `json:"success"`
	Items    []DetectedItem `json:"items"`
	Method   string         `json:"method"`
	Message  string         `json:"message,omitempty"`
	Attempts []Attempt      `json:"attempts,omitempty"`
}

// ExpiryFrom returns the estimated expiry for an item of category c bought on day.
// The result is midnight of the expiry day in day's location.
func ExpiryFrom(day time.Time, c Category) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).AddDate(0, 0, ExpiryDays(c))
}
