// Package sqlite provides a SQLite-backed manifest store tracking pipeline
// progress per document.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/soundbench/soundbench/internal/adapters/driven/manifest/sqlite/migrations"
	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ManifestStore = (*Store)(nil)

// Store is a SQLite-backed manifest store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a manifest store at the specified data directory.
// If dataDir is empty, defaults to ~/.soundbench/data/manifest.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".soundbench", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "manifest.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies pending .up.sql migrations in version order.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// MarkStage records a completed stage for a document, replacing any previous
// record for the same document and stage.
func (s *Store) MarkStage(ctx context.Context, rec driven.StageRecord) error {
	if rec.Document == "" || rec.Stage == "" {
		return fmt.Errorf("%w: document and stage are required", domain.ErrInvalidInput)
	}
	completedAt := rec.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stages (document, stage, items, fallback, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document, stage) DO UPDATE SET
			items = excluded.items,
			fallback = excluded.fallback,
			completed_at = excluded.completed_at
	`, rec.Document, rec.Stage, rec.Items, boolToInt(rec.Fallback), completedAt)
	if err != nil {
		return fmt.Errorf("marking stage: %w", err)
	}

	// Stage rows reference documents loosely; make sure the document exists
	// so Documents() sees everything the pipeline has touched.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, rec.Document)
	if err != nil {
		return fmt.Errorf("registering document: %w", err)
	}
	return nil
}

// StageDone reports whether the given stage has completed for a document.
func (s *Store) StageDone(ctx context.Context, document, stage string) (bool, error) {
	var count int
	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM stages WHERE document = ? AND stage = ?",
		document, stage)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("querying stage: %w", err)
	}
	return count > 0, nil
}

// SaveManual stores the extracted product metadata for a document.
func (s *Store) SaveManual(ctx context.Context, document string, manual domain.ManualInfo) error {
	if document == "" {
		return fmt.Errorf("%w: document is required", domain.ErrInvalidInput)
	}

	keywords, err := json.Marshal(manual.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, brand, model, product_type, keywords, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			brand = excluded.brand,
			model = excluded.model,
			product_type = excluded.product_type,
			keywords = excluded.keywords,
			updated_at = CURRENT_TIMESTAMP
	`, document, manual.Brand, manual.Model, manual.ProductType, string(keywords))
	if err != nil {
		return fmt.Errorf("saving manual: %w", err)
	}
	return nil
}

// Manual returns the stored metadata for a document.
func (s *Store) Manual(ctx context.Context, document string) (domain.ManualInfo, error) {
	var manual domain.ManualInfo
	var keywords string

	row := s.db.QueryRowContext(ctx,
		"SELECT brand, model, product_type, keywords FROM documents WHERE id = ?",
		document)
	err := row.Scan(&manual.Brand, &manual.Model, &manual.ProductType, &keywords)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ManualInfo{}, fmt.Errorf("manual for %s: %w", document, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ManualInfo{}, fmt.Errorf("querying manual: %w", err)
	}

	if keywords != "" {
		if err := json.Unmarshal([]byte(keywords), &manual.Keywords); err != nil {
			return domain.ManualInfo{}, fmt.Errorf("unmarshal keywords: %w", err)
		}
	}
	return manual, nil
}

// Documents lists all document IDs known to the manifest.
func (s *Store) Documents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
