// Package workflow runs an import end to end: load references and the
// inventory, normalize, link in passes, apply overrides, report what is
// left unlinked and write the result.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-lci/pkg/config"
	"github.com/dd0wney/cluso-lci/pkg/export"
	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/linker"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
	"github.com/dd0wney/cluso-lci/pkg/storage"
	"github.com/dd0wney/cluso-lci/pkg/strategy"
	"github.com/dd0wney/cluso-lci/pkg/validation"
)

// DefaultLoadConcurrency bounds concurrent snapshot loads
const DefaultLoadConcurrency = 4

// ErrUnresolvedOverride is returned when an override target does not exist
var ErrUnresolvedOverride = errors.New("override target not found")

// Runner executes a workflow
type Runner struct {
	cfg *config.Workflow

	fs      afs.Service
	catalog *storage.Catalog
	store   linker.Store
	dryRun  bool
	limit   int

	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Runner
type Option func(*Runner)

// WithFS sets the file service used to read the inventory and export reports
func WithFS(fs afs.Service) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithCatalog supplies a catalog, e.g. with references already registered
func WithCatalog(c *storage.Catalog) Option {
	return func(r *Runner) { r.catalog = c }
}

// WithStore overrides the store selected by the workflow
func WithStore(s linker.Store) Option {
	return func(r *Runner) { r.store = s }
}

// DryRun skips the write step
func DryRun() Option {
	return func(r *Runner) { r.dryRun = true }
}

// WithLoadConcurrency bounds concurrent snapshot loads
func WithLoadConcurrency(n int) Option {
	return func(r *Runner) { r.limit = n }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a runner for cfg
func New(cfg *config.Workflow, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, limit: DefaultLoadConcurrency}
	for _, opt := range opts {
		opt(r)
	}
	if r.fs == nil {
		r.fs = afs.New()
	}
	r.logger = logging.OrDefault(r.logger)
	r.metrics = metrics.OrDefault(r.metrics)
	if r.catalog == nil {
		r.catalog = storage.NewCatalog(
			storage.WithLogger(r.logger),
			storage.WithMetrics(r.metrics),
			storage.AllowUnlinked(cfg.AllowUnlinked),
		)
	}
	return r
}

// Catalog returns the catalog references are loaded into
func (r *Runner) Catalog() *storage.Catalog {
	return r.catalog
}

// Config returns the workflow the runner executes
func (r *Runner) Config() *config.Workflow {
	return r.cfg
}

// Run executes every step. The report is returned with whatever was
// completed when a step fails.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:    uuid.New(),
		Database: r.cfg.Database,
		Started:  time.Now(),
	}
	logger := r.logger.With(logging.String("run_id", report.RunID.String()), logging.Database(r.cfg.Database))
	defer func() { report.Duration = time.Since(report.Started) }()

	if err := r.loadReferences(ctx, logger); err != nil {
		return report, fmt.Errorf("load references: %w", err)
	}

	l, err := r.loadInventory(ctx, logger)
	if err != nil {
		return report, fmt.Errorf("load inventory: %w", err)
	}
	report.Linker = l
	logger.Info("inventory loaded", logging.Path(r.cfg.Inventory), logging.Count(len(l.Processes())))

	for i, pass := range r.cfg.Passes {
		pr, err := r.match(l, pass)
		if err != nil {
			return report, fmt.Errorf("pass %d: %w", i+1, err)
		}
		report.Passes = append(report.Passes, pr)
		logger.Info("match pass",
			logging.Int("pass", i+1),
			logging.Pool(pr.Pool),
			logging.Int("linked", pr.Linked),
			logging.Int("ambiguous", pr.Ambiguous),
			logging.Int("missing", pr.Missing),
			logging.Int("unlinked", pr.Statistics.Unlinked),
		)
	}

	for i, o := range r.cfg.Overrides {
		or, err := r.override(l, o)
		if err != nil {
			return report, fmt.Errorf("override %d: %w", i+1, err)
		}
		report.Overrides = append(report.Overrides, or)
	}

	report.Statistics = l.Statistics()
	logger.Info("linking finished",
		logging.Int("nodes", report.Statistics.Nodes),
		logging.Int("edges", report.Statistics.Edges),
		logging.Int("unlinked", report.Statistics.Unlinked),
	)

	if r.cfg.Export != nil {
		if err := r.export(ctx, l, report); err != nil {
			return report, fmt.Errorf("export: %w", err)
		}
	}

	if r.dryRun {
		return report, nil
	}
	if err := r.write(ctx, l); err != nil {
		return report, fmt.Errorf("write: %w", err)
	}
	report.Written = true
	return report, nil
}

// loadReferences loads reference snapshots concurrently and registers them
// in workflow order
func (r *Runner) loadReferences(ctx context.Context, logger logging.Logger) error {
	dbs := make([]*storage.Database, len(r.cfg.References))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.limit, 1))
	for i, ref := range r.cfg.References {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			op := logging.StartTimer(logger, "load reference", logging.String("reference", ref.Name), logging.Path(ref.Snapshot))
			db, err := storage.LoadSnapshot(ref.Snapshot)
			if err != nil {
				op.EndError(err)
				return fmt.Errorf("reference %s: %w", ref.Name, err)
			}
			op.End(logging.Count(db.Len()))
			if db.Name() != ref.Name {
				logger.Warn("snapshot database renamed", logging.String("snapshot_name", db.Name()), logging.String("reference", ref.Name))
				db = storage.NewDatabase(ref.Name, db.Records())
			}
			dbs[i] = db
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, db := range dbs {
		if err := r.catalog.Register(db); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) loadInventory(ctx context.Context, logger logging.Logger) (*linker.Linker, error) {
	doc, err := inventory.ReadDocument(ctx, r.fs, r.cfg.Inventory)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if doc.Database != r.cfg.Database {
		logger.Warn("inventory written under workflow database name", logging.String("document_database", doc.Database))
		for _, p := range doc.Processes {
			if p.Database == doc.Database {
				p.Database = r.cfg.Database
			}
		}
	}

	pipeline, err := strategy.NewPipeline(r.cfg.Strategies...)
	if err != nil {
		return nil, err
	}
	processes := pipeline.WithMetrics(r.metrics).Apply(doc.Processes)

	return linker.New(r.cfg.Database, processes, linker.WithLogger(r.logger), linker.WithMetrics(r.metrics))
}

func (r *Runner) match(l *linker.Linker, pass config.Pass) (PassReport, error) {
	fields, err := pass.MatchFields()
	if err != nil {
		return PassReport{}, err
	}
	opts := []linker.MatchOption{linker.WithFields(fields...)}
	if len(pass.Kinds) > 0 {
		opts = append(opts, linker.WithKinds(pass.Kinds...))
	}

	var res linker.MatchResult
	if pass.Pool == linker.SelfPoolName {
		res = l.MatchSelf(opts...)
	} else {
		db, err := r.catalog.Database(pass.Pool)
		if err != nil {
			return PassReport{}, err
		}
		res = l.Match(db, opts...)
	}

	return PassReport{
		Pool:       res.Pool,
		Fields:     res.Fields,
		Candidates: res.Candidates,
		Linked:     res.Linked,
		Ambiguous:  res.Ambiguous,
		Missing:    res.Missing,
		Duration:   res.Duration,
		Statistics: l.Statistics(),
	}, nil
}

func (r *Runner) override(l *linker.Linker, o config.Override) (OverrideReport, error) {
	key, err := o.TargetKey()
	if err != nil {
		return OverrideReport{}, err
	}

	target, err := r.resolve(l, key)
	if err != nil {
		return OverrideReport{}, err
	}

	preds := []linker.Predicate{linker.ByName(o.Name)}
	if o.Type != "" {
		preds = append(preds, linker.ByType(o.Type))
	}
	var opts []linker.OverrideOption
	if o.Rename {
		opts = append(opts, linker.Rename())
	}

	changed := l.ManualOverride(linker.And(preds...), linker.LinkTo(target), opts...)
	return OverrideReport{Name: o.Name, Target: key, Changed: changed}, nil
}

// resolve finds an override target in the batch or the catalog
func (r *Runner) resolve(l *linker.Linker, key inventory.Key) (*inventory.Flow, error) {
	if key.Database == l.Database() {
		for _, p := range l.Processes() {
			if p.Code == key.Code {
				return p.Flow.Clone(), nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedOverride, key)
	}

	rec, err := r.catalog.Resolve(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnresolvedOverride, key, err)
	}
	return &rec.Flow, nil
}

func (r *Runner) export(ctx context.Context, l *linker.Linker, report *Report) error {
	var (
		dest export.Destination
		err  error
	)
	if r.cfg.Export.S3 != nil {
		dest, err = export.NewS3Destination(ctx, *r.cfg.Export.S3)
		if err != nil {
			return err
		}
	} else {
		dest = export.NewURLDestination(r.fs, r.cfg.Export.URL)
	}

	n, err := export.Report(ctx, l, dest, r.cfg.Export.Name, export.WithLogger(r.logger), export.WithMetrics(r.metrics))
	if err != nil {
		return err
	}
	report.Exported = n
	report.ExportName = r.cfg.Export.Name
	return nil
}
