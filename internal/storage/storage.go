package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"kdindex/internal/kdtree"
	"kdindex/internal/models"
)

// ErrNotFound is returned when a named dataset does not exist
var ErrNotFound = errors.New("dataset not found")

// Storage handles persistence of point sets and query history
type Storage struct {
	db     *sql.DB
	dbPath string
}

// NewStorage creates a new Storage
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Current schema version
const schemaVersion = 2

// migrations defines all schema migrations
// Each migration should be idempotent (safe to run multiple times)
var migrations = []struct {
	version     int
	description string
	up          string
}{
	{
		version:     1,
		description: "Initial schema",
		up:          "", // Handled by base schema creation
	},
	{
		version:     2,
		description: "Add format, fingerprint and has_exif columns for image sources",
		up: `
			ALTER TABLE datasets ADD COLUMN format TEXT DEFAULT '';
			ALTER TABLE datasets ADD COLUMN fingerprint INTEGER DEFAULT 0;
			ALTER TABLE datasets ADD COLUMN has_exif INTEGER DEFAULT 0;
			CREATE INDEX IF NOT EXISTS idx_datasets_fingerprint ON datasets(fingerprint);
		`,
	},
}

// init creates the database schema
func (s *Storage) init() error {
	// Create schema_version table first
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Create base schema
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		dims INTEGER NOT NULL,
		source TEXT NOT NULL,
		source_hash TEXT DEFAULT '',
		point_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_datasets_name ON datasets(name);

	CREATE TABLE IF NOT EXISTS points (
		dataset_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		coords TEXT NOT NULL,
		PRIMARY KEY (dataset_id, seq)
	);

	CREATE TABLE IF NOT EXISTS query_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset TEXT NOT NULL,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		param REAL NOT NULL,
		results INTEGER NOT NULL,
		queried_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_query_history_dataset ON query_history(dataset);
	`

	_, err = s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// migrate runs pending schema migrations
func (s *Storage) migrate() error {
	currentVersion := s.getSchemaVersion()

	for _, m := range migrations {
		if m.version <= currentVersion || m.up == "" {
			continue
		}

		// Check if migration is needed (column might already exist)
		if m.version == 2 {
			if s.columnExists("datasets", "fingerprint") {
				if err := s.setSchemaVersion(m.version); err != nil {
					return err
				}
				continue
			}
		}

		// Execute migration
		if _, err := s.db.Exec(m.up); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}

		if err := s.setSchemaVersion(m.version); err != nil {
			return err
		}
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

// setSchemaVersion records a migration as applied
func (s *Storage) setSchemaVersion(version int) error {
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}
	return nil
}

// columnExists checks if a column exists in a table
func (s *Storage) columnExists(table, column string) bool {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveDatasets saves or replaces datasets by name, including their points
func (s *Storage) SaveDatasets(datasets []*models.Dataset) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pointStmt, err := tx.Prepare(`INSERT INTO points (dataset_id, seq, coords) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer pointStmt.Close()

	for _, ds := range datasets {
		// Drop the previous version of this dataset
		if _, err := tx.Exec(`DELETE FROM points WHERE dataset_id IN (SELECT id FROM datasets WHERE name = ?)`, ds.Name); err != nil {
			return fmt.Errorf("failed to clear points for %s: %w", ds.Name, err)
		}
		if _, err := tx.Exec(`DELETE FROM datasets WHERE name = ?`, ds.Name); err != nil {
			return fmt.Errorf("failed to replace dataset %s: %w", ds.Name, err)
		}

		if ds.CreatedAt.IsZero() {
			ds.CreatedAt = time.Now()
		}
		ds.PointCount = len(ds.Points)
		if ds.Dims == 0 && len(ds.Points) > 0 {
			ds.Dims = len(ds.Points[0])
		}

		hasExifInt := 0
		if ds.HasExif {
			hasExifInt = 1
		}
		res, err := tx.Exec(`
			INSERT INTO datasets (name, dims, source, source_hash, format, fingerprint, has_exif, point_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			ds.Name,
			ds.Dims,
			ds.Source,
			ds.SourceHash,
			ds.Format,
			int64(ds.Fingerprint), // SQLite integers are signed
			hasExifInt,
			ds.PointCount,
			ds.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert dataset %s: %w", ds.Name, err)
		}
		if ds.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read id for %s: %w", ds.Name, err)
		}

		for i, p := range ds.Points {
			if _, err := pointStmt.Exec(ds.ID, i, FormatPoint(p)); err != nil {
				return fmt.Errorf("failed to insert point %d of %s: %w", i, ds.Name, err)
			}
		}
	}

	return tx.Commit()
}

const datasetColumns = `id, name, dims, source, source_hash, format, fingerprint, has_exif, point_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (*models.Dataset, error) {
	ds := &models.Dataset{}
	var fingerprint int64
	var hasExifInt int
	var createdAt int64
	var sourceHash, format sql.NullString
	err := row.Scan(
		&ds.ID,
		&ds.Name,
		&ds.Dims,
		&ds.Source,
		&sourceHash,
		&format,
		&fingerprint,
		&hasExifInt,
		&ds.PointCount,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	ds.SourceHash = sourceHash.String
	ds.Format = format.String
	ds.Fingerprint = uint64(fingerprint)
	ds.HasExif = hasExifInt == 1
	ds.CreatedAt = time.Unix(createdAt, 0)
	return ds, nil
}

// GetDataset returns a dataset with its points in insertion order
func (s *Storage) GetDataset(name string) (*models.Dataset, error) {
	row := s.db.QueryRow(`SELECT `+datasetColumns+` FROM datasets WHERE name = ?`, name)
	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}

	rows, err := s.db.Query(`SELECT coords FROM points WHERE dataset_id = ? ORDER BY seq`, ds.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	ds.Points = make([]kdtree.Point, 0, ds.PointCount)
	for rows.Next() {
		var coords string
		if err := rows.Scan(&coords); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		p, err := ParsePoint(coords)
		if err != nil {
			return nil, fmt.Errorf("corrupt point in %s: %w", name, err)
		}
		ds.Points = append(ds.Points, p)
	}

	return ds, rows.Err()
}

// GetDatasetID returns the id of a dataset. Saving a dataset again assigns
// a new id, so the id identifies one version of its points.
func (s *Storage) GetDatasetID(name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM datasets WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query dataset: %w", err)
	}
	return id, nil
}

// ListDatasets returns all datasets without their points, ordered by name
func (s *Storage) ListDatasets() ([]*models.Dataset, error) {
	rows, err := s.db.Query(`SELECT ` + datasetColumns + ` FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*models.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		datasets = append(datasets, ds)
	}

	return datasets, rows.Err()
}

// FindByFingerprint returns the names of image datasets with the given perceptual hash
func (s *Storage) FindByFingerprint(fingerprint uint64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT name FROM datasets
		WHERE fingerprint = ? AND format NOT IN ('', ?)
		ORDER BY name
	`, int64(fingerprint), models.FormatText)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteDataset removes a dataset and its points
func (s *Storage) DeleteDataset(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM points WHERE dataset_id IN (SELECT id FROM datasets WHERE name = ?)`, name); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return tx.Commit()
}

// RecordQuery records a query in history
func (s *Storage) RecordQuery(q *models.QueryRecord) error {
	if q.QueriedAt.IsZero() {
		q.QueriedAt = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO query_history (dataset, kind, target, param, results, queried_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, q.Dataset, q.Kind, FormatPoint(q.Target), q.Param, q.Results, q.QueriedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	q.ID, _ = res.LastInsertId()
	return nil
}

// GetQueryHistory returns recorded queries, newest first. An empty name
// returns queries for every dataset; limit <= 0 means no limit.
func (s *Storage) GetQueryHistory(name string, limit int) ([]*models.QueryRecord, error) {
	query := `SELECT id, dataset, kind, target, param, results, queried_at FROM query_history`
	var args []any
	if name != "" {
		query += ` WHERE dataset = ?`
		args = append(args, name)
	}
	query += ` ORDER BY queried_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []*models.QueryRecord
	for rows.Next() {
		q := &models.QueryRecord{}
		var target string
		var queriedAt int64
		if err := rows.Scan(&q.ID, &q.Dataset, &q.Kind, &target, &q.Param, &q.Results, &queriedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if q.Target, err = ParsePoint(target); err != nil {
			return nil, fmt.Errorf("corrupt query target: %w", err)
		}
		q.QueriedAt = time.Unix(queriedAt, 0)
		records = append(records, q)
	}

	return records, rows.Err()
}

// FormatPoint encodes a point as comma-separated coordinates
func FormatPoint(p kdtree.Point) string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

// ParsePoint decodes a point written by FormatPoint
func ParsePoint(s string) (kdtree.Point, error) {
	if s == "" {
		return kdtree.Point{}, nil
	}
	parts := strings.Split(s, ",")
	p := make(kdtree.Point, len(parts))
	for i, part := range parts {
		c, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", part, err)
		}
		p[i] = c
	}
	return p, nil
}
