package linker

import (
	"context"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
)

// Store persists a linked graph as a named database
type Store interface {
	WriteDatabase(ctx context.Context, name string, processes []*inventory.Process) error
}

// Write commits deep copies of the graph to store under the linker's
// database name. The linker does not refuse to write unlinked exchanges; it
// warns and leaves the decision to the store. Store failures are returned
// as a *LinkError of kind ErrPersistence.
func (l *Linker) Write(ctx context.Context, store Store) error {
	if store == nil {
		return NewError("write").Database(l.database).Kind(ErrPersistence).Cause(ErrNilStore).Err()
	}

	stats := l.Statistics()
	if !stats.Complete() {
		l.logger.Warn("writing database with unlinked exchanges",
			logging.Int("unlinked", stats.Unlinked),
			logging.Int("edges", stats.Edges),
		)
	}

	op := logging.StartTimer(l.logger, "write database",
		logging.Int("nodes", stats.Nodes),
		logging.Int("edges", stats.Edges),
	)
	if err := store.WriteDatabase(ctx, l.database, inventory.CloneAll(l.processes)); err != nil {
		op.EndError(err)
		return NewError("write").Database(l.database).Kind(ErrPersistence).Cause(err).Err()
	}
	op.End()
	return nil
}
