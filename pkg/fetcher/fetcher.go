// Package fetcher executes single chunk queries against the feature
// service, classifies each attempt's outcome, and retries transient
// failures with a fixed delay under a capped attempt budget.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arcdump/arcdump/pkg/planner"
)

// Prometheus metrics for chunk fetch operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_fetch_requests_total",
		Help: "Total chunk fetch attempts by outcome",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_fetch_duration_seconds",
		Help:    "Duration of individual chunk fetch attempts",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	fetchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_fetch_retries_total",
		Help: "Total chunk fetch retry attempts",
	})

	fetchRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_fetch_retry_exhausted_total",
		Help: "Total chunks that exhausted their retry budget",
	})
)

// Options configures retry behavior for chunk fetches.
type Options struct {
	// MaxTries is the total attempt budget per chunk, including the
	// first attempt. Default: 5.
	MaxTries int

	// RetryDelay is the fixed delay between attempts. Default: 10s.
	RetryDelay time.Duration
}

// DefaultOptions returns options matching the run defaults.
func DefaultOptions() Options {
	return Options{
		MaxTries:   5,
		RetryDelay: 10 * time.Second,
	}
}

// Payload is a successfully fetched chunk: the raw feature records in
// response order, plus the collection-level coordinate reference block
// when the service returned one (GeoJSON responses only).
type Payload struct {
	Features []json.RawMessage
	CRS      json.RawMessage
}

// Fetcher executes chunk queries. The HTTP client is constructed by the
// caller and lent to every fetch; it must carry a request timeout so a
// hung connection cannot stall the run.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger zerolog.Logger
}

// New creates a chunk fetcher. Zero option fields take defaults.
func New(client *http.Client, opts Options) *Fetcher {
	defaults := DefaultOptions()
	if opts.MaxTries <= 0 {
		opts.MaxTries = defaults.MaxTries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}
	return &Fetcher{
		client: client,
		opts:   opts,
		logger: log.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch executes one chunk's query, retrying transient failures up to the
// attempt budget. A chunk either fully succeeds or fails as a whole; a
// partial payload is never returned.
func (f *Fetcher) Fetch(ctx context.Context, spec planner.ChunkSpec) (*Payload, error) {
	var lastErr error

	for attempt := 1; attempt <= f.opts.MaxTries; attempt++ {
		payload, err := f.tryQuery(ctx, spec.Query)
		if err == nil {
			fetchRequestsTotal.WithLabelValues("success").Inc()
			if attempt > 1 {
				f.logger.Info().
					Int("chunk", spec.Index).
					Int("attempt", attempt).
					Msg("Chunk fetch succeeded after retry")
			}
			return payload, nil
		}
		lastErr = err

		if !IsTransient(err) {
			fetchRequestsTotal.WithLabelValues("fatal").Inc()
			return nil, err
		}

		fetchRequestsTotal.WithLabelValues("transient").Inc()
		f.logger.Warn().
			Err(err).
			Int("chunk", spec.Index).
			Int("attempt", attempt).
			Int("max_tries", f.opts.MaxTries).
			Msg("Chunk fetch attempt failed")

		if attempt == f.opts.MaxTries {
			break
		}

		fetchRetriesTotal.Inc()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch chunk %d: %w", spec.Index, ctx.Err())
		case <-time.After(f.opts.RetryDelay):
		}
	}

	fetchRetryExhaustedTotal.Inc()
	return nil, &FetchError{
		Class:  ErrorClassExhausted,
		Reason: fmt.Sprintf("chunk %d exceeded max tries of %d", spec.Index, f.opts.MaxTries),
		Err:    lastErr,
	}
}

// tryQuery performs a single attempt and classifies the outcome.
func (f *Fetcher) tryQuery(ctx context.Context, query string) (*Payload, error) {
	start := time.Now()
	defer func() {
		fetchDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, query, nil)
	if err != nil {
		return nil, Fatal("create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, Transient("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, Transient(fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient("read response body", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, Transient("response is not a JSON object: "+truncate(body), err)
	}
	if raw, ok := envelope["error"]; ok {
		return nil, Transient("service reported an error: "+truncate(raw), nil)
	}
	rawFeatures, ok := envelope["features"]
	if !ok {
		return nil, Transient("response has no features key: "+truncate(body), nil)
	}

	var features []json.RawMessage
	if err := json.Unmarshal(rawFeatures, &features); err != nil {
		// A features key that is not an array breaks the data contract;
		// retrying cannot repair it.
		return nil, Fatal("features is not an array: "+truncate(rawFeatures), err)
	}

	return &Payload{
		Features: features,
		CRS:      envelope["crs"],
	}, nil
}

// truncate bounds raw payload excerpts embedded in error reasons.
func truncate(raw []byte) string {
	const limit = 256
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
