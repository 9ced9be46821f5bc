package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/grocery-tracker/internal/grocery"
)

// IDGenerator generates unique IDs for detected items
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs from the UnixNano timestamp and a random suffix
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Gateway detects grocery items in photos by trying each provider in order.
// It never fails: when every provider fails it returns the sample items.
type Gateway struct {
	providers     []Provider
	idGenerator   IDGenerator
	timeSource    TimeSource
	minConfidence float64
}

// NewGateway creates a new Gateway with default ID generator and time source.
// Items below minConfidence are dropped; 0 keeps everything.
func NewGateway(providers []Provider, minConfidence float64) *Gateway {
	return NewGatewayWithDeps(providers, &defaultIDGenerator{}, &defaultTimeSource{}, minConfidence)
}

// NewGatewayWithDeps creates a new Gateway with custom dependencies for testing
func NewGatewayWithDeps(providers []Provider, idGen IDGenerator, timeSrc TimeSource, minConfidence float64) *Gateway {
	return &Gateway{
		providers:     providers,
		idGenerator:   idGen,
		timeSource:    timeSrc,
		minConfidence: minConfidence,
	}
}

// Providers returns the names of the configured providers in the order they are tried
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		names = append(names, p.Name())
	}
	return names
}

// Analyze detects grocery items in a base64 encoded photo
func (g *Gateway) Analyze(ctx context.Context, photoBase64 string) *grocery.DetectionResult {
	now := g.timeSource.Now()

	if len(g.providers) == 0 {
		return g.mockResult(now, "No vision provider is configured, showing sample items", nil)
	}

	data, err := decodePhotoBase64(photoBase64)
	if err != nil {
		slog.Warn("Failed to decode photo", "error", err)
		return g.mockResult(now, "The photo could not be decoded, showing sample items", nil)
	}

	photo, converted, err := preparePhoto(data)
	if err != nil {
		slog.Warn("Failed to prepare photo, sending it unchanged", "error", err, "size", len(data))
		photo = &Photo{Data: data, MIMEType: "image/jpeg"}
	} else if converted {
		slog.Debug("Converted photo", "original_size", len(data), "size", len(photo.Data))
	}

	attempts := make([]grocery.Attempt, 0, len(g.providers))
	for _, provider := range g.providers {
		items, attempt := g.try(ctx, provider, photo, now)
		attempts = append(attempts, attempt)
		if len(items) > 0 {
			slog.Info("Detected grocery items", "provider", provider.Name(), "items", len(items))
			return &grocery.DetectionResult{
				Success:  true,
				Items:    items,
				Method:   provider.Name(),
				Attempts: attempts,
			}
		}
	}

	return g.mockResult(now, "All vision providers failed, showing sample items", attempts)
}

// try runs one provider and normalizes its output.
// A provider panic counts as a failure.
func (g *Gateway) try(ctx context.Context, provider Provider, photo *Photo, now time.Time) (items []grocery.DetectedItem, attempt grocery.Attempt) {
	attempt.Provider = provider.Name()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Vision provider panicked", "provider", attempt.Provider, "panic", r)
			items = nil
			attempt.Items = 0
			attempt.Error = fmt.Sprintf("provider panicked: %v", r)
		}
	}()

	detection, err := provider.DetectItems(ctx, photo)
	if err != nil {
		slog.Warn("Vision provider failed", "provider", attempt.Provider, "error", err)
		attempt.Error = err.Error()
		return nil, attempt
	}
	if detection == nil {
		detection = &Detection{}
	}

	attempt.Rejected = len(detection.Rejected)
	if attempt.Rejected > 0 {
		slog.Warn("Vision provider returned invalid items", "provider", attempt.Provider, "rejected", detection.Rejected)
	}

	items = g.normalize(detection.Records, now)
	attempt.Items = len(items)
	if len(items) == 0 {
		slog.Warn("Vision provider returned no items", "provider", attempt.Provider)
		attempt.Error = "no valid items in response"
	}

	return items, attempt
}

// normalize converts validated entries to detected items, dropping low-confidence ones
func (g *Gateway) normalize(entries []ItemRecord, now time.Time) []grocery.DetectedItem {
	items := make([]grocery.DetectedItem, 0, len(entries))
	for _, entry := range entries {
		item := normalizeRecord(entry, g.idGenerator.Generate(), now)
		if item.Confidence < g.minConfidence {
			continue
		}
		items = append(items, item)
	}
	return items
}

// normalizeRecord fills defaults, coerces the category and estimates expiry
func normalizeRecord(entry ItemRecord, id string, now time.Time) grocery.DetectedItem {
	category := grocery.ParseCategory(entry.Category)

	quantity := grocery.DefaultQuantity
	if entry.Quantity != nil && *entry.Quantity > 0 {
		quantity = *entry.Quantity
	}

	unit := entry.Unit
	if unit == "" {
		unit = grocery.DefaultUnit
	}

	confidence := grocery.DefaultConfidence
	if entry.Confidence != nil {
		confidence = min(max(*entry.Confidence, 0), 1)
	}

	return grocery.DetectedItem{
		ID:              id,
		Name:            entry.Name,
		Category:        category,
		Quantity:        quantity,
		Unit:            unit,
		Confidence:      confidence,
		EstimatedExpiry: grocery.ExpiryFrom(now, category),
	}
}

// mockResult returns the sample items; the minimum confidence does not apply to them
func (g *Gateway) mockResult(now time.Time, message string, attempts []grocery.Attempt) *grocery.DetectionResult {
	items := make([]grocery.DetectedItem, 0, len(sampleRecords))
	for _, entry := range sampleRecords {
		items = append(items, normalizeRecord(entry, g.idGenerator.Generate(), now))
	}

	slog.Info("Returning sample grocery items", "reason", message)

	return &grocery.DetectionResult{
		Success:  true,
		Items:    items,
		Method:   grocery.MethodMock,
		Message:  message,
		Attempts: attempts,
	}
}

// Close closes every provider
func (g *Gateway) Close() error {
	var firstErr error
	for _, p := range g.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", p.Name(), err)
		}
	}
	return firstErr
}
