package workflow

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-lci/pkg/config"
	"github.com/dd0wney/cluso-lci/pkg/linker"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/storage"
	"github.com/dd0wney/cluso-lci/pkg/storage/pgstore"
	"github.com/dd0wney/cluso-lci/pkg/storage/sqlitestore"
)

// write commits the graph to the configured store. The catalog enforces
// integrity itself; relational stores only hold rows, so the catalog's
// reference check and the unlinked policy run here before opening them.
func (r *Runner) write(ctx context.Context, l *linker.Linker) error {
	if r.store != nil {
		return l.Write(ctx, r.store)
	}

	kind := r.cfg.Store.Kind
	if kind == config.StoreMemory {
		return l.Write(ctx, r.catalog)
	}

	if err := r.catalog.CheckReferences(l.Database(), l.Processes()); err != nil {
		r.logger.Warn("database write rejected", logging.String("store", kind), logging.Error(err))
		return err
	}
	if stats := l.Statistics(); !stats.Complete() && !r.cfg.AllowUnlinked {
		return storage.NewError("write").Database(l.Database()).
			Context(fmt.Sprintf("%d exchanges", stats.Unlinked)).
			Cause(storage.ErrUnlinkedExchanges).Err()
	}

	store, err := r.openStore(ctx, kind)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			r.logger.Warn("failed to close store", logging.String("store", kind), logging.Error(cerr))
		}
	}()
	return l.Write(ctx, store)
}

type closingStore interface {
	linker.Store
	Close() error
}

func (r *Runner) openStore(ctx context.Context, kind string) (closingStore, error) {
	switch kind {
	case config.StorePostgres:
		return pgstore.New(ctx, r.cfg.Store.DSN, pgstore.WithLogger(r.logger), pgstore.WithMetrics(r.metrics))
	case config.StoreSQLite:
		return sqlitestore.New(ctx, r.cfg.Store.DSN, sqlitestore.WithLogger(r.logger), sqlitestore.WithMetrics(r.metrics))
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
