// Package linker resolves the symbolic references of an import batch
// (exchanges) to concrete database keys.
//
// A Linker is the session object of one import. Callers run Match passes
// against pools in the order they choose, inspect Statistics and Unlinked
// between passes, fix what matching cannot with ManualOverride, and finally
// Write the graph to a Store. Matching is exact and never guesses: an
// exchange is linked only when exactly one pool entry has the same key.
//
// A Linker is not safe for concurrent use.
package linker

import (
	"fmt"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
)

// Linker owns the process/exchange graph of one import batch
type Linker struct {
	database  string
	processes []*inventory.Process
	logger    logging.Logger
	metrics   *metrics.Registry
}

// Option configures a Linker
type Option func(*Linker)

// WithLogger sets the logger; the default logger is used otherwise
func WithLogger(logger logging.Logger) Option {
	return func(l *Linker) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics registry; the default registry is used otherwise
func WithMetrics(r *metrics.Registry) Option {
	return func(l *Linker) {
		l.metrics = r
	}
}

// New creates a linker for the batch that will be written as database.
// Processes are owned by the linker from now on and mutated in place.
// Processes without a code receive an activity-hash code.
func New(database string, processes []*inventory.Process, opts ...Option) (*Linker, error) {
	if database == "" {
		return nil, fmt.Errorf("database name is required")
	}

	l := &Linker{
		database:  database,
		processes: processes,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrDefault(l.logger).With(logging.Component("linker"), logging.Database(database))
	l.metrics = metrics.OrDefault(l.metrics)

	if err := l.ensureCodes(); err != nil {
		return nil, err
	}
	l.metrics.SetUnlinked(database, l.countUnlinked())
	return l, nil
}

// Database returns the name of the database under import
func (l *Linker) Database() string {
	return l.database
}

// Processes returns the live graph. Mutations through the returned slice
// are visible to the linker.
func (l *Linker) Processes() []*inventory.Process {
	return l.processes
}

// SelfPool returns a pool over the batch being imported
func (l *Linker) SelfPool() Pool {
	return selfPool{l: l}
}

// Transform rewrites the batch, e.g. a normalization strategy pipeline
type Transform func([]*inventory.Process) []*inventory.Process

// Apply runs transforms in order over the batch and assigns codes to any
// process that lost or never had one.
func (l *Linker) Apply(transforms ...Transform) error {
	for _, t := range transforms {
		l.processes = t(l.processes)
	}
	if err := l.ensureCodes(); err != nil {
		return err
	}
	l.metrics.SetUnlinked(l.database, l.countUnlinked())
	return nil
}

func (l *Linker) ensureCodes() error {
	for _, p := range l.processes {
		if err := inventory.EnsureCode(p, l.database); err != nil {
			return fmt.Errorf("failed to assign code to %q: %w", p.Name, err)
		}
	}
	return nil
}

// exchanges yields every exchange with its owning process
func (l *Linker) exchanges(yield func(*inventory.Process, *inventory.Exchange) bool) {
	for _, p := range l.processes {
		for _, exc := range p.Exchanges {
			if !yield(p, exc) {
				return
			}
		}
	}
}

func (l *Linker) countUnlinked() int {
	n := 0
	for _, exc := range l.exchanges {
		if !exc.Linked() {
			n++
		}
	}
	return n
}
