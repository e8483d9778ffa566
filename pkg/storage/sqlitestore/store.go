// Package sqlitestore persists linked databases in a SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
	"github.com/dd0wney/cluso-lci/pkg/storage"
)

// StoreName labels sqlite operations in metrics
const StoreName = "sqlite"

// Store handles database persistence using SQLite
type Store struct {
	db      *sql.DB
	path    string
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Store) { s.metrics = r }
}

// New opens or creates the SQLite database at path
func New(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("sqlitestore"))
	s.metrics = metrics.OrDefault(s.metrics)

	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the required tables
func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS lci_activities (
		database TEXT NOT NULL,
		code TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		categories TEXT NOT NULL DEFAULT '[]',
		reference_product TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (database, code)
	);

	CREATE TABLE IF NOT EXISTS lci_exchanges (
		database TEXT NOT NULL,
		activity_code TEXT NOT NULL,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		amount REAL NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		categories TEXT NOT NULL DEFAULT '[]',
		reference_product TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		input_database TEXT,
		input_code TEXT,
		PRIMARY KEY (database, activity_code, position)
	);
	CREATE INDEX IF NOT EXISTS idx_lci_exchanges_input ON lci_exchanges(input_database, input_code);

	CREATE TABLE IF NOT EXISTS lci_writes (
		id TEXT PRIMARY KEY,
		database TEXT NOT NULL,
		activities INTEGER NOT NULL,
		exchanges INTEGER NOT NULL,
		unlinked INTEGER NOT NULL,
		written_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_lci_writes_database ON lci_writes(database);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteDatabase replaces every row of the named database in one transaction
func (s *Store) WriteDatabase(ctx context.Context, name string, processes []*inventory.Process) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordStoreOperation(StoreName, "write", err, time.Since(start))
	}()

	activities, exchanges, err := storage.Flatten(name, processes)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"lci_exchanges", "lci_activities"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE database = ?`, name); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	activityStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lci_activities (database, code, position, name, unit, location, categories, reference_product, type, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare activity insert: %w", err)
	}
	defer activityStmt.Close()

	for _, a := range activities {
		if _, err = activityStmt.ExecContext(ctx, a.Database, a.Code, a.Position, a.Name, a.Unit,
			a.Location, a.Categories, a.ReferenceProduct, a.Type, a.Comment); err != nil {
			return fmt.Errorf("failed to insert activity %s: %w", a.Code, err)
		}
	}

	exchangeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lci_exchanges (database, activity_code, position, type, name, amount, unit, location,
			categories, reference_product, comment, input_database, input_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare exchange insert: %w", err)
	}
	defer exchangeStmt.Close()

	unlinked := 0
	for _, e := range exchanges {
		if e.InputCode == nil {
			unlinked++
		}
		if _, err = exchangeStmt.ExecContext(ctx, e.Database, e.ActivityCode, e.Position, e.Type, e.Name,
			e.Amount, e.Unit, e.Location, e.Categories, e.ReferenceProduct, e.Comment,
			e.InputDatabase, e.InputCode); err != nil {
			return fmt.Errorf("failed to insert exchange %s/%d: %w", e.ActivityCode, e.Position, err)
		}
	}

	writeID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO lci_writes (id, database, activities, exchanges, unlinked, written_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, writeID, name, len(activities), len(exchanges), unlinked, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record write: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit database %s: %w", name, err)
	}

	s.logger.Info("database written",
		logging.Database(name),
		logging.String("write_id", writeID),
		logging.Int("activities", len(activities)),
		logging.Int("exchanges", len(exchanges)),
		logging.Latency(time.Since(start)),
	)
	return nil
}

// LoadDatabase reads the named database back
func (s *Store) LoadDatabase(ctx context.Context, name string) (processes []*inventory.Process, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordStoreOperation(StoreName, "load", err, time.Since(start))
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT database, code, position, name, unit, location, categories, reference_product, type, comment
		FROM lci_activities WHERE database = ? ORDER BY position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	var activities []storage.ActivityRow
	for rows.Next() {
		var a storage.ActivityRow
		if err := rows.Scan(&a.Database, &a.Code, &a.Position, &a.Name, &a.Unit, &a.Location,
			&a.Categories, &a.ReferenceProduct, &a.Type, &a.Comment); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activities: %w", err)
	}
	if len(activities) == 0 {
		return nil, storage.DatabaseNotFoundError(name)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT database, activity_code, position, type, name, amount, unit, location,
			categories, reference_product, comment, input_database, input_code
		FROM lci_exchanges WHERE database = ? ORDER BY activity_code, position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []storage.ExchangeRow
	for rows.Next() {
		var (
			e         storage.ExchangeRow
			inputDB   sql.NullString
			inputCode sql.NullString
		)
		if err := rows.Scan(&e.Database, &e.ActivityCode, &e.Position, &e.Type, &e.Name, &e.Amount,
			&e.Unit, &e.Location, &e.Categories, &e.ReferenceProduct, &e.Comment, &inputDB, &inputCode); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		if inputDB.Valid && inputCode.Valid {
			e.InputDatabase, e.InputCode = &inputDB.String, &inputCode.String
		}
		exchanges = append(exchanges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read exchanges: %w", err)
	}

	return storage.Assemble(activities, exchanges)
}

// Databases lists the names of stored databases
func (s *Store) Databases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT database FROM lci_activities ORDER BY database`)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan database name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// LastWrite returns the ID of the most recent write of a database
func (s *Store) LastWrite(ctx context.Context, name string) (uuid.UUID, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM lci_writes WHERE database = ? ORDER BY written_at DESC LIMIT 1
	`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, storage.DatabaseNotFoundError(name)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get last write: %w", err)
	}
	return uuid.Parse(id)
}
