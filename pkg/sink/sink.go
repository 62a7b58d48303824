// Package sink accumulates output rows and checkpoints them to disk at a
// fixed cadence, so an interrupted run keeps everything collected up to the
// last flush.
package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/export"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/record"
)

// DefaultInterval is the number of rows between automatic checkpoints.
const DefaultInterval = 100

var (
	rowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghfetch_sink_rows_total",
		Help: "Total rows offered to the output sink",
	})

	flushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghfetch_sink_flushes_total",
		Help: "Total checkpoint flushes by trigger",
	}, []string{"trigger"})

	flushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghfetch_sink_flush_errors_total",
		Help: "Total failed checkpoint flushes",
	})
)

// Checkpointer collects rows in arrival order and rewrites the output file
// every Interval rows. Not safe for concurrent use; the collection pipeline
// is strictly sequential.
type Checkpointer struct {
	path     string
	writer   export.Writer
	interval int
	logger   zerolog.Logger

	rows       []record.RepositoryRecord
	sinceFlush int
	flushed    int
}

// NewCheckpointer creates a sink writing to path. The writer is chosen from
// the path's extension; interval <= 0 uses DefaultInterval.
func NewCheckpointer(path string, interval int, logger zerolog.Logger) *Checkpointer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	path = export.DefaultPath(path)
	return &Checkpointer{
		path:     path,
		writer:   export.ForPath(path),
		interval: interval,
		logger:   logger,
	}
}

// Path returns the resolved output path.
func (c *Checkpointer) Path() string {
	return c.path
}

// Count returns the number of rows offered so far.
func (c *Checkpointer) Count() int {
	return len(c.rows)
}

// Offer appends a row and checkpoints when the cadence comes due. A row is
// never dropped: on flush failure it stays buffered for the next attempt.
func (c *Checkpointer) Offer(row record.RepositoryRecord) error {
	c.rows = append(c.rows, row)
	c.sinceFlush++
	rowsTotal.Inc()

	if c.sinceFlush >= c.interval {
		return c.flush("interval")
	}
	return nil
}

// Flush forces a checkpoint regardless of cadence.
func (c *Checkpointer) Flush() error {
	return c.flush("manual")
}

// Finalize writes the terminal checkpoint. Called exactly once at the end of
// a run, on success, failure, and cancellation alike.
func (c *Checkpointer) Finalize() error {
	if err := c.flush("final"); err != nil {
		return err
	}
	c.logger.Info().
		Int("records", len(c.rows)).
		Str("path", c.path).
		Msg("Output finalized")
	return nil
}

// flush rewrites the whole output file from the accumulated rows.
func (c *Checkpointer) flush(trigger string) error {
	if c.sinceFlush == 0 && c.flushed == len(c.rows) && trigger == "interval" {
		return nil
	}

	if err := c.writer.Write(c.path, c.rows); err != nil {
		flushErrors.Inc()
		c.logger.Error().Err(err).Str("path", c.path).Msg("Checkpoint flush failed")
		return err
	}

	flushesTotal.WithLabelValues(trigger).Inc()
	c.flushed = len(c.rows)
	c.sinceFlush = 0

	c.logger.Debug().
		Int("records", len(c.rows)).
		Str("trigger", trigger).
		Msg("Checkpoint written")
	return nil
}
