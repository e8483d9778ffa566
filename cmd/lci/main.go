// Command lci links life-cycle inventory imports against reference
// databases and inspects the result.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/dd0wney/cluso-lci/pkg/config"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
	"github.com/dd0wney/cluso-lci/pkg/workflow"
)

type app struct {
	// Global flags
	logLevel string
	jsonLogs bool
	timeout  time.Duration

	logger  logging.Logger
	zap     *logging.ZapLogger
	metrics *metrics.Registry
	fs      afs.Service
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "lci",
		Short: "Link life-cycle inventory imports to reference databases",
		Long: `lci runs import workflows: it normalizes an inventory, links its exchanges
against itself and against reference database snapshots, applies manual
overrides and writes the linked database.

Inspection commands (stats, unlinked, query, serve, browse) run the
workflow without exporting or writing anything.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.zap != nil {
				_ = a.zap.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error); overrides the workflow's log_level")
	root.PersistentFlags().BoolVar(&a.jsonLogs, "json-logs", false, "Write JSON logs instead of console output")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Minute, "Operation timeout")

	root.AddCommand(
		newRunCmd(a),
		newStatsCmd(a),
		newUnlinkedCmd(a),
		newSearchCmd(a),
		newQueryCmd(a),
		newServeCmd(a),
		newBrowseCmd(a),
	)
	return root
}

// init builds the logger unless one was injected
func (a *app) init() error {
	if a.metrics == nil {
		a.metrics = metrics.NewRegistry()
	}
	if a.fs == nil {
		a.fs = afs.New()
	}
	if a.logger != nil {
		return nil
	}

	z, err := logging.NewZapLogger(logging.ParseLevel(a.logLevel), !a.jsonLogs)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.zap, a.logger = z, z
	return nil
}

// loadWorkflow reads a workflow file. Its log_level applies unless
// --log-level was given.
func (a *app) loadWorkflow(cmd *cobra.Command, path string) (*config.Workflow, error) {
	cfg, err := config.Load(cmd.Context(), a.fs, path)
	if err != nil {
		return nil, err
	}
	if a.zap != nil && !cmd.Flags().Changed("log-level") {
		a.zap.SetLevel(cfg.Level())
	}
	return cfg, nil
}

func (a *app) runner(cfg *config.Workflow, opts ...workflow.Option) *workflow.Runner {
	opts = append([]workflow.Option{
		workflow.WithFS(a.fs),
		workflow.WithLogger(a.logger),
		workflow.WithMetrics(a.metrics),
	}, opts...)
	return workflow.New(cfg, opts...)
}

// inspect runs a workflow without exporting or writing
func (a *app) inspect(cmd *cobra.Command, path string) (*workflow.Report, *workflow.Runner, error) {
	cfg, err := a.loadWorkflow(cmd, path)
	if err != nil {
		return nil, nil, err
	}
	cfg.Export = nil

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	r := a.runner(cfg, workflow.DryRun())
	report, err := r.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	return report, r, nil
}

func addWorkflowFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "file", "f", "workflow.yaml", "Workflow file (path or afs URL)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
