package pantry

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zombor/grocery-tracker/internal/grocery"
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLiteDB instance
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	s := &SQLiteDB{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS items (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        category TEXT NOT NULL,
        quantity REAL NOT NULL,
        unit TEXT NOT NULL,
        expires_on TEXT NOT NULL,
        source TEXT NOT NULL,
        photo_filename TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_items_expires_on ON items(expires_on);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveItem inserts or replaces an item
func (s *SQLiteDB) SaveItem(item *Item) error {
	query := `
        INSERT INTO items (id, name, category, quantity, unit, expires_on, source, photo_filename, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            category = excluded.category,
            quantity = excluded.quantity,
            unit = excluded.unit,
            expires_on = excluded.expires_on,
            source = excluded.source,
            photo_filename = excluded.photo_filename,
            updated_at = excluded.updated_at
    `
	_, err := s.db.Exec(query,
		item.ID, item.Name, string(item.Category), item.Quantity, item.Unit,
		formatTime(item.ExpiresOn), item.Source, item.PhotoFilename,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving item: %w", err)
	}
	return nil
}

const selectItemColumns = `SELECT id, name, category, quantity, unit, expires_on, source, photo_filename, created_at, updated_at FROM items`

// GetItem retrieves an item by ID
func (s *SQLiteDB) GetItem(id string) (*Item, error) {
	row := s.db.QueryRow(selectItemColumns+` WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns all items ordered by expiry
func (s *SQLiteDB) ListItems() ([]*Item, error) {
	rows, err := s.db.Query(selectItemColumns + ` ORDER BY expires_on, name`)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	items := make([]*Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// DeleteItem removes an item from the database
func (s *SQLiteDB) DeleteItem(id string) error {
	if _, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	item := &Item{}
	var category, expiresOn, createdAt, updatedAt string

	err := row.Scan(
		&item.ID, &item.Name, &category, &item.Quantity, &item.Unit,
		&expiresOn, &item.Source, &item.PhotoFilename, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning item: %w", err)
	}

	item.Category = grocery.ParseCategory(category)
	if item.ExpiresOn, err = parseTime(expiresOn); err != nil {
		return nil, fmt.Errorf("parsing expires_on: %w", err)
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return item, nil
}

// sqliteTimeLayout is fixed width so stored times sort lexically
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}
