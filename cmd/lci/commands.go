package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-lci/pkg/config"
	"github.com/dd0wney/cluso-lci/pkg/export"
	"github.com/dd0wney/cluso-lci/pkg/graphql"
	"github.com/dd0wney/cluso-lci/pkg/health"
	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/server"
	"github.com/dd0wney/cluso-lci/pkg/storage"
	"github.com/dd0wney/cluso-lci/pkg/storage/pgstore"
	"github.com/dd0wney/cluso-lci/pkg/workflow"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FFFF"))

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.Render())
}

func newRunCmd(a *app) *cobra.Command {
	var (
		path   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow: link, export unlinked and write",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadWorkflow(cmd, path)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			var opts []workflow.Option
			if dryRun {
				opts = append(opts, workflow.DryRun())
			}
			report, err := a.runner(cfg, opts...).Run(ctx)
			if report != nil && report.Linker != nil {
				fmt.Fprint(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	addWorkflowFlag(cmd, &path)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Link and export without writing the database")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print graph statistics after linking",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, r, err := a.inspect(cmd, path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, p := range report.Passes {
				fmt.Fprintf(out, "pass %d (%s): %d linked, %d ambiguous, %d missing, %d left\n",
					i+1, p.Pool, p.Linked, p.Ambiguous, p.Missing, p.Statistics.Unlinked)
			}
			fmt.Fprintln(out, report.Statistics)

			rows := [][]string{}
			for _, s := range r.Catalog().Stats() {
				rows = append(rows, []string{s.Name, strconv.Itoa(s.Records), strconv.Itoa(s.Exchanges)})
			}
			if len(rows) > 0 {
				renderTable(out, []string{"reference", "records", "exchanges"}, rows)
			}
			return nil
		},
	}
	addWorkflowFlag(cmd, &path)
	return cmd
}

func newUnlinkedCmd(a *app) *cobra.Command {
	var (
		path    string
		excType string
		unique  bool
		asCSV   bool
	)
	cmd := &cobra.Command{
		Use:   "unlinked",
		Short: "List exchanges left unlinked after linking",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, _, err := a.inspect(cmd, path)
			if err != nil {
				return err
			}

			var seq iter.Seq2[*inventory.Process, *inventory.Exchange]
			if unique {
				seq = withoutProcess(report.Linker.UnlinkedUnique())
			} else {
				seq = report.Linker.UnlinkedWithProcess()
			}
			seq = ofType(seq, excType)

			out := cmd.OutOrStdout()
			if asCSV {
				_, err := export.WriteUnlinked(out, seq)
				return err
			}

			rows := [][]string{}
			for p, exc := range seq {
				process := ""
				if p != nil {
					process = p.Name
				}
				rows = append(rows, []string{
					process, exc.Type, exc.Name, exc.Unit, exc.Location,
					strings.Join(exc.Categories, export.CategorySeparator),
				})
			}
			renderTable(out, []string{"process", "type", "name", "unit", "location", "categories"}, rows)
			fmt.Fprintf(out, "%d unlinked\n", len(rows))
			return nil
		},
	}
	addWorkflowFlag(cmd, &path)
	cmd.Flags().StringVar(&excType, "type", "", "Only list exchanges of this type")
	cmd.Flags().BoolVar(&unique, "unique", false, "List each distinct unlinked reference once")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write CSV instead of a table")
	return cmd
}

func withoutProcess(seq iter.Seq[*inventory.Exchange]) iter.Seq2[*inventory.Process, *inventory.Exchange] {
	return func(yield func(*inventory.Process, *inventory.Exchange) bool) {
		for exc := range seq {
			if !yield(nil, exc) {
				return
			}
		}
	}
}

func ofType(seq iter.Seq2[*inventory.Process, *inventory.Exchange], excType string) iter.Seq2[*inventory.Process, *inventory.Exchange] {
	if excType == "" {
		return seq
	}
	return func(yield func(*inventory.Process, *inventory.Exchange) bool) {
		for p, exc := range seq {
			if exc.Type == excType && !yield(p, exc) {
				return
			}
		}
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		snapshot string
		term     string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Full-text search a reference database snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			op := logging.StartTimer(a.logger, "load snapshot", logging.Path(snapshot))
			db, err := storage.LoadSnapshot(snapshot)
			if err != nil {
				op.EndError(err)
				return err
			}
			op.End(logging.Count(db.Len()))

			rows := [][]string{}
			for _, r := range db.Search(term, limit) {
				rows = append(rows, []string{
					r.Flow.Code, r.Flow.Name, r.Flow.ReferenceProduct, r.Flow.Location, r.Flow.Unit,
					strconv.FormatFloat(r.Score, 'f', 3, 64),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"code", "name", "reference product", "location", "unit", "score"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Reference database snapshot")
	cmd.Flags().StringVar(&term, "term", "", "Search terms; all must match")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	_ = cmd.MarkFlagRequired("snapshot")
	_ = cmd.MarkFlagRequired("term")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		path  string
		query string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a GraphQL query against the linked import",
		Example: `  lci query -f workflow.yaml --q '{ statistics { unlinked unlinkedByType { key count } } }'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, r, err := a.inspect(cmd, path)
			if err != nil {
				return err
			}
			schema, err := graphql.NewSchema(report.Linker, r.Catalog())
			if err != nil {
				return err
			}

			result := graphql.Execute(cmd.Context(), schema, query)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.HasErrors() {
				return fmt.Errorf("query returned %d errors", len(result.Errors))
			}
			return nil
		},
	}
	addWorkflowFlag(cmd, &path)
	cmd.Flags().StringVar(&query, "q", "{ statistics { nodes edges unlinked } }", "GraphQL query")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		path string
		addr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the linked import over GraphQL with metrics and health endpoints",
		Long: `Serve runs the workflow without exporting or writing and serves the
result. SIGHUP reruns the workflow and swaps in the new result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, closeStore, err := a.serveHandler(cmd, path)
			if err != nil {
				return err
			}

			var mu sync.Mutex
			defer func() {
				mu.Lock()
				closeStore()
				mu.Unlock()
			}()

			reload := func(ctx context.Context) (http.Handler, error) {
				h, next, err := a.serveHandler(cmd, path)
				if err != nil {
					return nil, err
				}
				mu.Lock()
				prev := closeStore
				closeStore = next
				mu.Unlock()
				prev()
				return h, nil
			}

			gs := server.NewGracefulServer(addr, h,
				server.WithLogger(a.logger),
				server.WithReload(reload),
			)
			return gs.ListenAndServe(cmd.Context())
		},
	}
	addWorkflowFlag(cmd, &path)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

// serveHandler runs the workflow and builds the serve mux over its result
func (a *app) serveHandler(cmd *cobra.Command, path string) (http.Handler, func(), error) {
	report, r, err := a.inspect(cmd, path)
	if err != nil {
		return nil, nil, err
	}
	schema, err := graphql.NewSchema(report.Linker, r.Catalog())
	if err != nil {
		return nil, nil, err
	}
	hc, closeStore, err := a.healthChecker(cmd.Context(), report, r)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", graphql.NewHandler(schema, a.logger))
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", hc.HTTPHandler())
	mux.HandleFunc("/ready", hc.ReadinessHandler())
	mux.HandleFunc("/live", hc.LivenessHandler())

	a.logger.Info("serving import", logging.Database(report.Database), logging.String("run_id", report.RunID.String()))
	return mux, closeStore, nil
}

// serveMemoryLimit degrades liveness once the heap passes 2GiB
const serveMemoryLimit = 2 << 30

// healthChecker registers the checks served by serve. A postgres store is
// opened so readiness reflects whether writes would reach it; the returned
// func closes it.
func (a *app) healthChecker(ctx context.Context, report *workflow.Report, r *workflow.Runner) (*health.HealthChecker, func(), error) {
	hc := health.NewHealthChecker()
	catalog := health.CatalogCheck(r.Catalog(), r.Catalog().Names()...)
	hc.RegisterCheck("catalog", catalog)
	hc.RegisterCheck("linking", health.LinkingCheck(report.Linker))
	hc.RegisterReadinessCheck("catalog", catalog)
	hc.RegisterLivenessCheck("memory", health.MemoryCheck(serveMemoryLimit))

	store := r.Config().Store
	if store.Kind != config.StorePostgres {
		return hc, func() {}, nil
	}
	pg, err := pgstore.New(ctx, store.DSN, pgstore.WithLogger(a.logger), pgstore.WithMetrics(a.metrics))
	if err != nil {
		return nil, nil, err
	}
	ping := health.StoreCheck(config.StorePostgres, pg.Ping)
	hc.RegisterCheck(config.StorePostgres, ping)
	hc.RegisterReadinessCheck(config.StorePostgres, ping)
	return hc, func() { _ = pg.Close() }, nil
}
