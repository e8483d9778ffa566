package export

import (
	"bytes"
	"context"

	"github.com/dd0wney/cluso-lci/pkg/linker"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
)

type reportConfig struct {
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures Report
type Option func(*reportConfig)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *reportConfig) { c.logger = logger }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(c *reportConfig) { c.metrics = r }
}

// Report writes the linker's unlinked exchanges as CSV to dest under name
// and returns the number of rows written
func Report(ctx context.Context, l *linker.Linker, dest Destination, name string, opts ...Option) (n int, err error) {
	cfg := reportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := logging.OrDefault(cfg.logger).With(logging.Component("export"), logging.Database(l.Database()))
	reg := metrics.OrDefault(cfg.metrics)
	defer func() {
		reg.RecordExport(dest.Name(), err)
	}()

	var buf bytes.Buffer
	n, err = WriteUnlinked(&buf, l.UnlinkedWithProcess())
	if err != nil {
		return 0, err
	}
	if err = dest.Put(ctx, name, buf.Bytes()); err != nil {
		logger.Error("unlinked report failed", logging.String("destination", dest.Name()), logging.Error(err))
		return 0, err
	}

	logger.Info("unlinked report written",
		logging.String("destination", dest.Name()),
		logging.String("name", name),
		logging.Count(n),
	)
	return n, nil
}
