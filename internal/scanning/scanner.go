package scanning

import (
	"context"
	"encoding/base64"
)

// Photo is a prepared image ready to send to a provider
type Photo struct {
	Data     []byte
	MIMEType string
}

// Base64 returns the photo bytes as standard base64
func (p *Photo) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// DataURL returns the photo as an inline data URL
func (p *Photo) DataURL() string {
	return "data:" + p.MIMEType + ";base64," + p.Base64()
}

// ItemRecord is a provider record that passed schema validation.
// Optional fields are nil when the provider omitted them or sent an unusable value.
type ItemRecord struct {
	Name       string
	Category   string
	Quantity   *float64
	Unit       string
	Confidence *float64
}

// Rejection records a provider record that failed schema validation
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Detection is the validated output of one provider call
type Detection struct {
	Records  []ItemRecord
	Rejected []Rejection
}

// Provider detects grocery items in a photo using an external service
type Provider interface {
	// Name identifies the provider in results and logs
	Name() string
	// DetectItems analyzes the photo and returns the validated records
	DetectItems(ctx context.Context, photo *Photo) (*Detection, error)
	// Close closes the provider and releases resources
	Close() error
}
