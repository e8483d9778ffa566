package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/storage"
)

var activityColumns = []string{
	"database", "code", "position", "name", "unit", "location",
	"categories", "reference_product", "type", "comment",
}

var exchangeColumns = []string{
	"database", "activity_code", "position", "type", "name", "amount", "unit",
	"location", "categories", "reference_product", "comment", "input_database", "input_code",
}

// WriteDatabase replaces every row of the named database in one
// transaction and records the write in lci_writes
func (s *Store) WriteDatabase(ctx context.Context, name string, processes []*inventory.Process) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordStoreOperation(StoreName, "write", err, time.Since(start))
	}()

	activities, exchanges, err := storage.Flatten(name, processes)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// exchanges are removed by cascade
	if _, err = tx.Exec(ctx, `DELETE FROM lci_activities WHERE database = $1`, name); err != nil {
		return fmt.Errorf("failed to delete database %s: %w", name, err)
	}

	activityRows := make([][]any, len(activities))
	for i, a := range activities {
		activityRows[i] = []any{
			a.Database, a.Code, a.Position, a.Name, a.Unit, a.Location,
			a.Categories, a.ReferenceProduct, a.Type, a.Comment,
		}
	}
	if _, err = tx.CopyFrom(ctx, pgx.Identifier{"lci_activities"}, activityColumns, pgx.CopyFromRows(activityRows)); err != nil {
		return fmt.Errorf("failed to copy activities: %w", err)
	}

	unlinked := 0
	exchangeRows := make([][]any, len(exchanges))
	for i, e := range exchanges {
		if e.InputCode == nil {
			unlinked++
		}
		exchangeRows[i] = []any{
			e.Database, e.ActivityCode, e.Position, e.Type, e.Name, e.Amount, e.Unit,
			e.Location, e.Categories, e.ReferenceProduct, e.Comment, e.InputDatabase, e.InputCode,
		}
	}
	if _, err = tx.CopyFrom(ctx, pgx.Identifier{"lci_exchanges"}, exchangeColumns, pgx.CopyFromRows(exchangeRows)); err != nil {
		return fmt.Errorf("failed to copy exchanges: %w", err)
	}

	writeID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO lci_writes (id, database, activities, exchanges, unlinked, written_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, writeID, name, len(activities), len(exchanges), unlinked, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record write: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit database %s: %w", name, err)
	}

	s.logger.Info("database written",
		logging.Database(name),
		logging.String("write_id", writeID.String()),
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

	rows, err := s.pool.Query(ctx, `
		SELECT database, code, position, name, unit, location, categories, reference_product, type, comment
		FROM lci_activities
		WHERE database = $1
		ORDER BY position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	activities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.ActivityRow, error) {
		var a storage.ActivityRow
		err := row.Scan(&a.Database, &a.Code, &a.Position, &a.Name, &a.Unit, &a.Location,
			&a.Categories, &a.ReferenceProduct, &a.Type, &a.Comment)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan activities: %w", err)
	}
	if len(activities) == 0 {
		return nil, storage.DatabaseNotFoundError(name)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT database, activity_code, position, type, name, amount, unit, location,
		       categories, reference_product, comment, input_database, input_code
		FROM lci_exchanges
		WHERE database = $1
		ORDER BY activity_code, position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	exchanges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.ExchangeRow, error) {
		var e storage.ExchangeRow
		err := row.Scan(&e.Database, &e.ActivityCode, &e.Position, &e.Type, &e.Name, &e.Amount, &e.Unit,
			&e.Location, &e.Categories, &e.ReferenceProduct, &e.Comment, &e.InputDatabase, &e.InputCode)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan exchanges: %w", err)
	}

	return storage.Assemble(activities, exchanges)
}

// LastWrite returns the ID and time of the most recent write of a database
func (s *Store) LastWrite(ctx context.Context, name string) (uuid.UUID, time.Time, error) {
	var (
		id uuid.UUID
		at time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, written_at FROM lci_writes
		WHERE database = $1
		ORDER BY written_at DESC
		LIMIT 1
	`, name).Scan(&id, &at)

	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, storage.DatabaseNotFoundError(name)
	}
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("failed to get last write: %w", err)
	}
	return id, at, nil
}
