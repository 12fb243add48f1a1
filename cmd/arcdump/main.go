// Command arcdump harvests the full record set of an ArcGIS feature
// service into a single CSV file or GeoJSON FeatureCollection.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/arcdump/arcdump/internal/config"
	"github.com/arcdump/arcdump/pkg/arcgis"
	"github.com/arcdump/arcdump/pkg/encode"
	"github.com/arcdump/arcdump/pkg/fetcher"
	"github.com/arcdump/arcdump/pkg/harvest"
	"github.com/arcdump/arcdump/pkg/logging"
	"github.com/arcdump/arcdump/pkg/output"
	"github.com/arcdump/arcdump/pkg/planner"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitConfigError  = 3
	ExitFetchError   = 4
	ExitStorageError = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("arcdump", flag.ContinueOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	serviceURL := fs.String("url", "", "Feature service base URL")
	destination := fs.String("dest", "", "Destination directory or bucket URL")
	format := fs.String("format", "", "Output format: csv or geojson (default csv)")
	spatialRef := fs.Int64("sr", 0, "Output spatial reference WKID override")
	concurrency := fs.Int("concurrency", 0, "Parallel chunk fetch ceiling")
	maxTries := fs.Int("max-tries", 0, "Attempt budget per chunk")
	retryDelay := fs.Duration("retry-delay", 0, "Fixed delay between attempts")
	httpTimeout := fs.Duration("http-timeout", 0, "Per-attempt HTTP timeout")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	pretty := fs.Bool("pretty", false, "Human-readable console logs")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: arcdump [options]

Harvest every record of an ArcGIS feature service into one CSV file or
one GeoJSON FeatureCollection, written as <service-name>.<csv|geojson>
in the destination directory.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitConfigError
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitConfigError
	}

	override := config.Config{
		URL:         *serviceURL,
		Destination: *destination,
		SpatialRef:  *spatialRef,
		Concurrency: *concurrency,
		MaxTries:    *maxTries,
		RetryDelay:  *retryDelay,
		HTTPTimeout: *httpTimeout,
		LogLevel:    *logLevel,
		LogPretty:   *pretty,
	}
	if *format != "" {
		parsed, err := config.ParseFormat(*format)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		override.Format = parsed
	}
	cfg = cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[arcdump] Received interrupt, shutting down...")
		cancel()
	}()

	return harvestService(ctx, cfg, *yes)
}

func harvestService(ctx context.Context, cfg config.Config, skipConfirm bool) int {
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	logger := logging.NewLogger("arcdump")

	desc, err := arcgis.Describe(ctx, client, cfg.URL, arcgis.DescribeOptions{
		OutputSpatialRef: cfg.SpatialRef,
		Logger:           logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Describe failed")
		return exitCodeFor(err)
	}

	fmt.Fprint(os.Stderr, desc.Summary())
	if !skipConfirm && !confirm(desc) {
		fmt.Fprintln(os.Stderr, "Aborted.")
		return ExitSuccess
	}

	specs, err := planner.Plan(desc, cfg.Format)
	if err != nil {
		logger.Error().Err(err).Msg("Planning failed")
		return exitCodeFor(err)
	}

	bucket, err := openBucket(ctx, cfg.Destination)
	if err != nil {
		logger.Error().Err(err).Msg("Open destination failed")
		return ExitStorageError
	}
	defer bucket.Close()

	encoder := encode.New(desc, cfg.Format)
	assembler, err := output.New(ctx, bucket, desc.Name, cfg.Format, encoder.Header())
	if err != nil {
		logger.Error().Err(err).Msg("Open output failed")
		return ExitStorageError
	}

	fetch := fetcher.New(client, fetcher.Options{
		MaxTries:   cfg.MaxTries,
		RetryDelay: cfg.RetryDelay,
	})
	harvester := harvest.New(func(ctx context.Context, spec planner.ChunkSpec) (*encode.Chunk, error) {
		payload, err := fetch.Fetch(ctx, spec)
		if err != nil {
			return nil, err
		}
		return encoder.EncodeChunk(payload)
	}, harvest.Options{
		Concurrency: cfg.Concurrency,
		Progress:    stderrProgress{},
	})

	if err := harvester.Run(ctx, specs, assembler.WriteChunk); err != nil {
		assembler.Discard()
		logger.Error().Err(err).Msg("Harvest failed")
		return exitCodeFor(err)
	}
	if err := assembler.Commit(); err != nil {
		logger.Error().Err(err).Msg("Commit failed")
		return ExitStorageError
	}

	logger.Info().
		Str("artifact", output.ObjectName(desc.Name, cfg.Format)).
		Msg("Harvest committed")
	return ExitSuccess
}

// openBucket resolves the destination: a bucket URL when a scheme is
// present, otherwise a local directory served through fileblob.
func openBucket(ctx context.Context, destination string) (*blob.Bucket, error) {
	if strings.Contains(destination, "://") {
		return blob.OpenBucket(ctx, destination)
	}
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return nil, err
	}
	return fileblob.OpenBucket(destination, nil)
}

// confirm asks the operator to approve the run.
func confirm(desc *arcgis.ServiceDescriptor) bool {
	fmt.Fprintf(os.Stderr, "Harvest %d records from %q? [y/N] ", desc.RecordCount, desc.Name)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// exitCodeFor maps error taxonomy to process exit codes.
func exitCodeFor(err error) int {
	var schemaErr *arcgis.SchemaError
	if errors.As(err, &schemaErr) ||
		errors.Is(err, arcgis.ErrMissingIdentifierField) ||
		errors.Is(err, arcgis.ErrMissingIdentifierBounds) ||
		errors.Is(err, planner.ErrMissingSpatialReference) ||
		errors.Is(err, planner.ErrInvalidChunkSize) {
		return ExitConfigError
	}
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		return ExitFetchError
	}
	return ExitGeneralError
}

// stderrProgress is the thin default progress surface.
type stderrProgress struct{}

func (stderrProgress) ChunkCompleted(index, total int) {
	fmt.Fprintf(os.Stderr, "\rchunks: %d/%d", index+1, total)
	if index+1 == total {
		fmt.Fprintln(os.Stderr)
	}
}
