package pgstore

import "context"

// migrate creates the necessary database tables
func (s *Store) migrate(ctx context.Context) error {
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
		amount DOUBLE PRECISION NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		categories TEXT NOT NULL DEFAULT '[]',
		reference_product TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		input_database TEXT,
		input_code TEXT,
		PRIMARY KEY (database, activity_code, position),
		FOREIGN KEY (database, activity_code) REFERENCES lci_activities (database, code) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS lci_writes (
		id UUID PRIMARY KEY,
		database TEXT NOT NULL,
		activities INTEGER NOT NULL,
		exchanges INTEGER NOT NULL,
		unlinked INTEGER NOT NULL,
		written_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lci_exchanges_input ON lci_exchanges(input_database, input_code);
	CREATE INDEX IF NOT EXISTS idx_lci_writes_database ON lci_writes(database);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}
