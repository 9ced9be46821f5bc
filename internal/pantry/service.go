package pantry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/grocery-tracker/internal/grocery"
)

// MaxExpiringDays bounds the look-ahead window of ExpiringItems
const MaxExpiringDays = 3650

// ErrInvalidInput is returned when a request cannot be processed as given
var ErrInvalidInput = errors.New("invalid input")

// Analyzer detects grocery items in a base64 encoded photo
type Analyzer interface {
	Analyze(ctx context.Context, photoBase64 string) *grocery.DetectionResult
	Providers() []string
}

// IDGenerator generates unique IDs for items and photos
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles pantry operations
type Service struct {
	db          DB
	analyzer    Analyzer
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, analyzer Analyzer, storage Storage) *Service {
	return NewServiceWithDeps(db, analyzer, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, analyzer Analyzer, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		analyzer:    analyzer,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
	unsafeExtChars      = regexp.MustCompile(`[^a-zA-Z0-9.]`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Phones produce long names; 50 chars is plenty
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "photo"
	}

	ext = strings.ToLower(unsafeExtChars.ReplaceAllString(ext, ""))
	if ext == "." {
		ext = ""
	}

	return base + ext
}

// ScanPhoto stores an uploaded photo and detects the grocery items in it.
// Detected items are not added to the pantry until they are confirmed with AddItems.
func (s *Service) ScanPhoto(ctx context.Context, filename string, data []byte) (*Scan, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty photo", ErrInvalidInput)
	}

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving photo: %w", err)
	}

	result := s.analyzer.Analyze(ctx, base64.StdEncoding.EncodeToString(data))
	slog.Info("Scanned photo",
		"filename", savedPath,
		"size", len(data),
		"method", result.Method,
		"items", len(result.Items),
	)

	return &Scan{PhotoFilename: savedPath, Result: result}, nil
}

// ScanBase64 detects the grocery items in a base64 encoded photo without storing it
func (s *Service) ScanBase64(ctx context.Context, photoBase64 string) (*Scan, error) {
	if strings.TrimSpace(photoBase64) == "" {
		return nil, fmt.Errorf("%w: empty photo", ErrInvalidInput)
	}

	result := s.analyzer.Analyze(ctx, photoBase64)
	slog.Info("Scanned photo", "method", result.Method, "items", len(result.Items))

	return &Scan{Result: result}, nil
}

// AddItems adds confirmed items to the pantry. Missing fields are filled in
// from the item name. Every item is validated before any is saved, and if a
// save fails the items saved before it are put back the way they were.
func (s *Service) AddItems(items []*Item) ([]*Item, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}

	now := s.timeSource.Now()
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: item %d is empty", ErrInvalidInput, i)
		}
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			return nil, fmt.Errorf("%w: item %d: name is required", ErrInvalidInput, i)
		}
		if item.Quantity < 0 {
			return nil, fmt.Errorf("%w: item %d: quantity must not be negative", ErrInvalidInput, i)
		}
	}

	for _, item := range items {
		s.fillDefaults(item, now)
	}

	// previous holds what each saved ID pointed at before, nil for new IDs
	previous := make([]*Item, 0, len(items))
	for i, item := range items {
		prior, _ := s.db.GetItem(item.ID)
		if err := s.db.SaveItem(item); err != nil {
			s.rollback(items[:i], previous)
			return nil, fmt.Errorf("saving item %s: %w", item.ID, err)
		}
		previous = append(previous, prior)
	}

	return items, nil
}

// rollback undoes saves newest first, so repeated IDs end up as they started
func (s *Service) rollback(saved, previous []*Item) {
	for i := len(saved) - 1; i >= 0; i-- {
		item := saved[i]
		var err error
		if previous[i] != nil {
			err = s.db.SaveItem(previous[i])
		} else {
			err = s.db.DeleteItem(item.ID)
		}
		if err != nil {
			slog.Warn("Failed to roll back saved item", "id", item.ID, "error", err)
		}
	}
}

func (s *Service) fillDefaults(item *Item, now time.Time) {
	if item.ID == "" {
		item.ID = s.idGenerator.Generate()
	}
	if item.Category == "" {
		item.Category = grocery.Categorize(item.Name)
	} else {
		item.Category = grocery.ParseCategory(string(item.Category))
	}
	if item.Quantity == 0 {
		item.Quantity = grocery.DefaultQuantity
	}
	item.Unit = strings.TrimSpace(item.Unit)
	if item.Unit == "" {
		item.Unit = grocery.DefaultUnit
	}
	if item.ExpiresOn.IsZero() {
		item.ExpiresOn = grocery.ExpiryFrom(now, item.Category)
	}
	if item.Source != SourceScan {
		item.Source = SourceManual
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
}

// GetItem retrieves an item by ID
func (s *Service) GetItem(id string) (*Item, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items, soonest expiry first
func (s *Service) ListItems() ([]*Item, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	sortByExpiry(items)
	return items, nil
}

// ExpiringItems returns the items that expire within the given number of days,
// including the ones that already expired
func (s *Service) ExpiringItems(days int) ([]*Item, error) {
	if days < 0 || days > MaxExpiringDays {
		return nil, fmt.Errorf("%w: days must be between 0 and %d", ErrInvalidInput, MaxExpiringDays)
	}

	items, err := s.ListItems()
	if err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, days+1)

	expiring := make([]*Item, 0)
	for _, item := range items {
		if item.ExpiresOn.Before(cutoff) {
			expiring = append(expiring, item)
		}
	}
	return expiring, nil
}

// DeleteItem removes an item. Its photo is deleted too once no other item
// refers to it.
func (s *Service) DeleteItem(id string) error {
	item, err := s.db.GetItem(id)
	if err != nil {
		return fmt.Errorf("getting item for deletion: %w", err)
	}

	if err := s.db.DeleteItem(id); err != nil {
		return fmt.Errorf("deleting item from database: %w", err)
	}

	if item.PhotoFilename != "" {
		s.deletePhotoIfUnused(item.PhotoFilename)
	}
	return nil
}

// deletePhotoIfUnused deletes a photo no remaining item refers to. Failures
// are logged, the item is already gone.
func (s *Service) deletePhotoIfUnused(filename string) {
	items, err := s.db.ListItems()
	if err != nil {
		slog.Warn("Failed to check photo references", "photo", filename, "error", err)
		return
	}
	for _, other := range items {
		if other.PhotoFilename == filename {
			return
		}
	}
	if err := s.storage.Delete(filename); err != nil {
		slog.Warn("Failed to delete photo from storage", "photo", filename, "error", err)
	}
}

// GetPhoto retrieves a stored photo and its content type
func (s *Service) GetPhoto(filename string) ([]byte, string, error) {
	data, err := s.storage.Get(filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting photo: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

// Categorize classifies an item name and reports its shelf life
func (s *Service) Categorize(name string) (*CategoryInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	category := grocery.Categorize(name)
	return &CategoryInfo{
		Name:       name,
		Category:   category,
		ExpiryDays: grocery.ExpiryDays(category),
	}, nil
}

// Providers returns the names of the configured vision providers
func (s *Service) Providers() []string {
	return s.analyzer.Providers()
}

func sortByExpiry(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].ExpiresOn.Equal(items[j].ExpiresOn) {
			return items[i].ExpiresOn.Before(items[j].ExpiresOn)
		}
		return items[i].Name < items[j].Name
	})
}
