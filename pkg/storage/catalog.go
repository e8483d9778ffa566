// Package storage holds the reference databases an import is linked against
// and the database the import is written to.
package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
)

// StoreName labels catalog operations in metrics
const StoreName = "memory"

// Catalog is a registry of named databases. Writes are validated: every
// linked exchange must reference an existing record.
type Catalog struct {
	dbs map[string]*Database
	mu  sync.RWMutex

	allowUnlinked bool
	logger        logging.Logger
	metrics       *metrics.Registry
}

// Option configures a Catalog
type Option func(*Catalog)

// WithLogger sets the catalog logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Catalog) { c.metrics = r }
}

// AllowUnlinked lets WriteDatabase accept exchanges without an input
func AllowUnlinked(allow bool) Option {
	return func(c *Catalog) { c.allowUnlinked = allow }
}

// NewCatalog creates an empty catalog
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{dbs: make(map[string]*Database)}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger).With(logging.Component("catalog"))
	c.metrics = metrics.OrDefault(c.metrics)
	return c
}

// Create adds an empty database
func (c *Catalog) Create(name string) (*Database, error) {
	db := NewDatabase(name, nil)
	if err := c.Register(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Register adds an existing database, such as one loaded from a snapshot
func (c *Catalog) Register(db *Database) error {
	if db == nil || db.Name() == "" {
		return NewError("register").Database("").Cause(ErrInvalidName).Err()
	}

	c.mu.Lock()
	if _, exists := c.dbs[db.Name()]; exists {
		c.mu.Unlock()
		return NewError("register").Database(db.Name()).Cause(ErrDatabaseExists).Err()
	}
	c.dbs[db.Name()] = db
	c.mu.Unlock()

	c.logger.Debug("database registered", logging.Database(db.Name()), logging.Count(db.Len()))
	c.updateMetrics()
	return nil
}

// Database returns the named database
func (c *Catalog) Database(name string) (*Database, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	db, ok := c.dbs[name]
	if !ok {
		return nil, DatabaseNotFoundError(name)
	}
	return db, nil
}

// Names returns the database names in sorted order
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.dbs))
}

// Delete removes the named database
func (c *Catalog) Delete(name string) error {
	c.mu.Lock()
	if _, ok := c.dbs[name]; !ok {
		c.mu.Unlock()
		return NewError("delete").Database(name).Cause(ErrDatabaseNotFound).Err()
	}
	delete(c.dbs, name)
	c.mu.Unlock()

	c.logger.Info("database deleted", logging.Database(name))
	c.updateMetrics()
	return nil
}

// Resolve returns a copy of the record a key refers to
func (c *Catalog) Resolve(key inventory.Key) (*inventory.Process, error) {
	db, err := c.Database(key.Database)
	if err != nil {
		return nil, err
	}
	return db.Get(key.Code)
}

// LoadDatabase returns copies of the named database's records
func (c *Catalog) LoadDatabase(ctx context.Context, name string) ([]*inventory.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError("load").Database(name).Cause(err).Err()
	}
	db, err := c.Database(name)
	if err != nil {
		return nil, err
	}
	return db.Records(), nil
}

// WriteDatabase creates or replaces the named database with processes. It
// fails without changing the catalog when a linked exchange references a
// record that exists neither in processes nor in another database, or when
// an exchange is unlinked and unlinked exchanges are not allowed.
func (c *Catalog) WriteDatabase(ctx context.Context, name string, processes []*inventory.Process) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordStoreOperation(StoreName, "write", err, time.Since(start))
	}()

	if name == "" {
		return NewError("write").Database(name).Cause(ErrInvalidName).Err()
	}
	if err := ctx.Err(); err != nil {
		return NewError("write").Database(name).Cause(err).Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validate(name, processes); err != nil {
		c.logger.Warn("database write rejected", logging.Database(name), logging.Error(err))
		return err
	}

	if db, ok := c.dbs[name]; ok {
		db.mu.Lock()
		db.replace(processes)
		db.mu.Unlock()
	} else {
		c.dbs[name] = NewDatabase(name, processes)
	}

	c.logger.Info("database written",
		logging.Database(name),
		logging.Count(len(processes)),
		logging.Latency(time.Since(start)),
	)
	c.updateMetricsLocked()
	return nil
}

// CheckReferences reports a dangling reference error when a linked exchange
// of processes, about to be written as name, resolves neither in processes
// nor in another database of the catalog. Stores without referential
// integrity of their own run this before writing.
func (c *Catalog) CheckReferences(name string, processes []*inventory.Process) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.checkReferences(name, processes)
}

// validate checks processes about to be written as name (must be called
// with lock held)
func (c *Catalog) validate(name string, processes []*inventory.Process) error {
	if err := c.checkReferences(name, processes); err != nil {
		return err
	}
	if unlinked := countUnlinked(processes); unlinked > 0 && !c.allowUnlinked {
		return NewError("write").Database(name).
			Context(fmt.Sprintf("%d exchanges", unlinked)).
			Cause(ErrUnlinkedExchanges).Err()
	}
	return nil
}

// checkReferences must be called with lock held
func (c *Catalog) checkReferences(name string, processes []*inventory.Process) error {
	own := make(map[string]bool, len(processes))
	for _, p := range processes {
		if p != nil && p.Code != "" {
			own[p.Code] = true
		}
	}

	var (
		dangling      int
		firstDangling inventory.Key
	)
	for _, p := range processes {
		if p == nil {
			continue
		}
		for _, exc := range p.Exchanges {
			if !exc.Linked() || c.exists(name, own, *exc.Input) {
				continue
			}
			if dangling == 0 {
				firstDangling = *exc.Input
			}
			dangling++
		}
	}

	if dangling > 0 {
		return NewError("write").Database(name).
			Context(fmt.Sprintf("%d exchanges, first %s", dangling, firstDangling)).
			Cause(ErrDanglingReference).Err()
	}
	return nil
}

func countUnlinked(processes []*inventory.Process) int {
	n := 0
	for _, p := range processes {
		if p == nil {
			continue
		}
		for _, exc := range p.Exchanges {
			if !exc.Linked() {
				n++
			}
		}
	}
	return n
}

// exists reports whether key resolves, treating name as holding own
// (must be called with lock held)
func (c *Catalog) exists(name string, own map[string]bool, key inventory.Key) bool {
	if key.Database == name {
		return own[key.Code]
	}
	db, ok := c.dbs[key.Database]
	return ok && db.Contains(key.Code)
}

func (c *Catalog) databases() []*Database {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := slices.Sorted(maps.Keys(c.dbs))
	out := make([]*Database, len(names))
	for i, name := range names {
		out[i] = c.dbs[name]
	}
	return out
}

func (c *Catalog) updateMetrics() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.updateMetricsLocked()
}

func (c *Catalog) updateMetricsLocked() {
	records := make(map[string]int, len(c.dbs))
	for name, db := range c.dbs {
		records[name] = db.Len()
	}
	c.metrics.UpdateCatalog(records)
}
