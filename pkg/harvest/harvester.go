// Package harvest runs all planned chunk fetches concurrently and
// delivers their results to the consumer in planned order.
//
// Every chunk is dispatched to its own goroutine up front, gated by a
// bounded concurrency ceiling. The harvester then walks the planned
// sequence and blocks on each chunk's completion in turn, so output byte
// order is deterministic no matter how network completions interleave.
// The first terminal failure aborts the run: the derived context is
// cancelled, in-flight fetches stop, and residual results are discarded.
package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arcdump/arcdump/pkg/encode"
	"github.com/arcdump/arcdump/pkg/planner"
)

// Prometheus metrics for harvest runs.
var (
	harvestChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_chunks_total",
		Help: "Total chunks consumed by outcome",
	}, []string{"outcome"})

	harvestRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_records_total",
		Help: "Total records committed to output",
	})
)

// progressLogInterval is how many consumed chunks pass between progress
// log lines.
const progressLogInterval = 10

// Progress receives chunk completion notifications. The CLI's progress
// rendering implements it; the core only calls it.
type Progress interface {
	ChunkCompleted(index, total int)
}

// Task produces one encoded chunk from its spec. The harvester runs one
// task invocation per planned chunk.
type Task func(ctx context.Context, spec planner.ChunkSpec) (*encode.Chunk, error)

// Options configures a harvest run.
type Options struct {
	// Concurrency is the ceiling on simultaneously running tasks.
	// Default: 10.
	Concurrency int

	// Progress is an optional completion listener.
	Progress Progress
}

// Harvester coordinates a full harvest run.
type Harvester struct {
	task   Task
	opts   Options
	logger zerolog.Logger
}

// New creates a harvester for the given task.
func New(task Task, opts Options) *Harvester {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	return &Harvester{
		task:   task,
		opts:   opts,
		logger: log.With().Str("component", "harvester").Logger(),
	}
}

type taskResult struct {
	chunk *encode.Chunk
	err   error
}

// Run executes all chunk tasks and hands each encoded chunk to consume
// strictly in planned order. The first task or consume error terminates
// the run; still-running tasks are cancelled and their results dropped.
func (h *Harvester) Run(ctx context.Context, specs []planner.ChunkSpec, consume func(*encode.Chunk) error) error {
	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.logger.Info().
		Int("chunks", len(specs)).
		Int("concurrency", h.opts.Concurrency).
		Msg("Starting harvest")

	// One buffered result slot per chunk: a task can always deliver and
	// exit, even after the drain loop has aborted.
	sem := make(chan struct{}, h.opts.Concurrency)
	results := make([]chan taskResult, len(specs))
	for i := range specs {
		results[i] = make(chan taskResult, 1)
		go func(i int, spec planner.ChunkSpec) {
			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				results[i] <- taskResult{err: runCtx.Err()}
				return
			}
			defer func() { <-sem }()
			chunk, err := h.task(runCtx, spec)
			results[i] <- taskResult{chunk: chunk, err: err}
		}(i, specs[i])
	}

	var records int64
	for i := range specs {
		result := <-results[i]
		if result.err != nil {
			harvestChunksTotal.WithLabelValues("failed").Inc()
			cancel()
			return fmt.Errorf("chunk %d: %w", i, result.err)
		}
		if err := consume(result.chunk); err != nil {
			harvestChunksTotal.WithLabelValues("failed").Inc()
			cancel()
			return fmt.Errorf("consume chunk %d: %w", i, err)
		}

		n := int64(len(result.chunk.Rows) + len(result.chunk.Features))
		records += n
		harvestRecordsTotal.Add(float64(n))
		harvestChunksTotal.WithLabelValues("success").Inc()

		if h.opts.Progress != nil {
			h.opts.Progress.ChunkCompleted(i, len(specs))
		}
		if (i+1)%progressLogInterval == 0 {
			h.logger.Info().
				Int("consumed", i+1).
				Int("total", len(specs)).
				Int64("records", records).
				Msg("Harvest progress")
		}
	}

	h.logger.Info().
		Int("chunks", len(specs)).
		Int64("records", records).
		Dur("duration", time.Since(start)).
		Msg("Harvest complete")
	return nil
}
