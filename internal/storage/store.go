package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// AnalysisStatus tracks the AI enrichment lifecycle of an item.
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// IsValid returns true if the status is a recognized value.
func (s AnalysisStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// ImageRole describes what an uploaded photo shows.
type ImageRole string

const (
	RoleMain   ImageRole = "main"
	RoleTag    ImageRole = "tag"
	RoleDetail ImageRole = "detail"
	RoleBack   ImageRole = "back"
	RoleSide   ImageRole = "side"
)

// Category is shared reference data, created lazily on first use.
type Category struct {
	ID        int64
	Name      string
	Slug      string
	ParentID  *int64
	CreatedAt time.Time
}

// Item is a single garment record owned by a user.
type Item struct {
	ID               string
	OwnerID          int64
	Name             string
	CategoryID       *int64
	Brand            string
	Color            string
	Size             string
	Material         string
	Pattern          string
	Price            *float64
	PurchaseDate     *time.Time
	PurchaseLocation string
	Description      string
	AnalysisStatus   AnalysisStatus
	WearCount        int
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ItemImage is one uploaded photo belonging to an item.
// Immutable after creation except for explicit deletion.
type ItemImage struct {
	ID        string
	ItemID    string
	URI       string
	Role      ImageRole
	Position  int // 1-based caller-supplied upload order
	AltText   string
	SizeBytes int64
	CreatedAt time.Time
}

// AnalysisRecord is the stored output of one AI enrichment attempt.
// At most one row exists per item; re-analysis upserts.
type AnalysisRecord struct {
	ItemID        string
	RawResponse   string
	Attributes    map[string]string
	Confidence    map[string]float64
	Duration      time.Duration
	EstimatedCost float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ErrItemNotFound is returned when an item id does not exist.
var ErrItemNotFound = errors.New("item not found")

// Store persists categories, items, images and analysis results in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (and if needed creates) the SQLite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	// WAL mode and busy timeout for better concurrency. foreign_keys is
	// per-connection in SQLite, so it must ride the DSN to reach every
	// pooled connection, not a one-off Exec.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	categoriesQuery := `
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		slug TEXT NOT NULL UNIQUE,
		parent_id INTEGER REFERENCES categories(id) ON DELETE CASCADE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(categoriesQuery); err != nil {
		return fmt.Errorf("failed to create categories table: %w", err)
	}

	itemsQuery := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		owner_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
		brand TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		size TEXT NOT NULL DEFAULT '',
		material TEXT NOT NULL DEFAULT '',
		pattern TEXT NOT NULL DEFAULT '',
		price REAL,
		purchase_date DATETIME,
		purchase_location TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		analysis_status TEXT NOT NULL DEFAULT 'pending',
		wear_count INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(itemsQuery); err != nil {
		return fmt.Errorf("failed to create items table: %w", err)
	}

	imagesQuery := `
	CREATE TABLE IF NOT EXISTS item_images (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		uri TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'main',
		position INTEGER NOT NULL,
		alt_text TEXT NOT NULL DEFAULT '',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (item_id, position)
	);
	`
	if _, err := s.db.Exec(imagesQuery); err != nil {
		return fmt.Errorf("failed to create item_images table: %w", err)
	}

	analysisQuery := `
	CREATE TABLE IF NOT EXISTS analysis_results (
		item_id TEXT PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
		raw_response TEXT NOT NULL,
		attributes TEXT NOT NULL,
		confidence TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		estimated_cost REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(analysisQuery); err != nil {
		return fmt.Errorf("failed to create analysis_results table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
