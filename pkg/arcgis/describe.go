package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

// DescribeOptions configures descriptor construction.
type DescribeOptions struct {
	// OutputSpatialRef overrides the service's spatial reference for
	// feature queries. 0 leaves the source reference in effect.
	OutputSpatialRef int64

	// Logger receives describe-time diagnostics. A zero logger is valid.
	Logger zerolog.Logger
}

// Describe builds a ServiceDescriptor from the service's metadata
// endpoints. The schema call runs first; the count call and, when the
// service cannot paginate by offset, the identifier-bounds call are then
// issued concurrently.
func Describe(ctx context.Context, client *http.Client, baseURL string, opts DescribeOptions) (*ServiceDescriptor, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("arcgis: malformed base URL %q: %w", baseURL, err)
	}

	schema, err := getJSON(ctx, client, renderURL(baseURL, url.Values{"f": {"json"}}))
	if err != nil {
		return nil, fmt.Errorf("fetch service metadata: %w", err)
	}
	desc, err := parseServiceMetadata(baseURL, schema)
	if err != nil {
		return nil, err
	}
	desc.RequestedSpatialRef = opts.OutputSpatialRef

	needBounds := !desc.SupportsPagination && desc.IdentifierField != nil

	countCh := make(chan result[int64], 1)
	go func() {
		n, err := fetchCount(ctx, client, baseURL)
		countCh <- result[int64]{n, err}
	}()

	var boundsCh chan result[*Bounds]
	if needBounds {
		boundsCh = make(chan result[*Bounds], 1)
		go func() {
			b, err := fetchBounds(ctx, client, baseURL, desc.IdentifierField.Name, desc.SupportsStatistics)
			boundsCh <- result[*Bounds]{b, err}
		}()
	}

	count := <-countCh
	if count.err != nil {
		return nil, fmt.Errorf("fetch record count: %w", count.err)
	}
	desc.RecordCount = count.val

	if needBounds {
		bounds := <-boundsCh
		if bounds.err != nil {
			return nil, fmt.Errorf("fetch identifier bounds: %w", bounds.err)
		}
		desc.IdentifierBounds = bounds.val
	}

	opts.Logger.Info().
		Str("service", desc.Name).
		Int64("record_count", desc.RecordCount).
		Bool("pagination", desc.SupportsPagination).
		Bool("sequential_identifiers", desc.HasSequentialIdentifiers()).
		Msg("Service described")

	return desc, nil
}

type result[T any] struct {
	val T
	err error
}

// fetchCount runs the record-count query.
func fetchCount(ctx context.Context, client *http.Client, baseURL string) (int64, error) {
	body, err := getJSON(ctx, client, renderURL(baseURL+"/query", url.Values{
		"where":           {"1=1"},
		"returnCountOnly": {"true"},
		"f":               {"json"},
	}))
	if err != nil {
		return 0, err
	}
	var payload struct {
		Count *int64 `json:"count"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, &SchemaError{Key: "count", Reason: "count response is not valid JSON: " + err.Error()}
	}
	if payload.Count == nil {
		return 0, &SchemaError{Key: "count", Reason: "missing required key"}
	}
	return *payload.Count, nil
}

// fetchBounds resolves identifier min/max via a statistics query when the
// service supports statistics, else via a returnIdsOnly query.
func fetchBounds(ctx context.Context, client *http.Client, baseURL, identifierField string, statistics bool) (*Bounds, error) {
	if statistics {
		return fetchBoundsStatistics(ctx, client, baseURL, identifierField)
	}
	return fetchBoundsIdentifiers(ctx, client, baseURL)
}

func fetchBoundsStatistics(ctx context.Context, client *http.Client, baseURL, identifierField string) (*Bounds, error) {
	stats, err := json.Marshal([]map[string]string{
		{"statisticType": "max", "onStatisticField": identifierField, "outStatisticFieldName": "MAX_VALUE"},
		{"statisticType": "min", "onStatisticField": identifierField, "outStatisticFieldName": "MIN_VALUE"},
	})
	if err != nil {
		return nil, err
	}
	body, err := getJSON(ctx, client, renderURL(baseURL+"/query", url.Values{
		"outStatistics": {string(stats)},
		"f":             {"json"},
	}))
	if err != nil {
		return nil, err
	}
	var payload struct {
		Features []struct {
			Attributes struct {
				Max *int64 `json:"MAX_VALUE"`
				Min *int64 `json:"MIN_VALUE"`
			} `json:"attributes"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &SchemaError{Key: "outStatistics", Reason: "statistics response is not valid JSON: " + err.Error()}
	}
	if len(payload.Features) == 0 {
		return nil, &SchemaError{Key: "outStatistics", Reason: "statistics response has no features"}
	}
	attrs := payload.Features[0].Attributes
	if attrs.Max == nil || attrs.Min == nil {
		return nil, &SchemaError{Key: "outStatistics", Reason: "missing MAX_VALUE or MIN_VALUE"}
	}
	return &Bounds{Min: *attrs.Min, Max: *attrs.Max}, nil
}

func fetchBoundsIdentifiers(ctx context.Context, client *http.Client, baseURL string) (*Bounds, error) {
	body, err := getJSON(ctx, client, renderURL(baseURL+"/query", url.Values{
		"where":         {"1=1"},
		"returnIdsOnly": {"true"},
		"f":             {"json"},
	}))
	if err != nil {
		return nil, err
	}
	var payload struct {
		ObjectIDs []int64 `json:"objectIds"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &SchemaError{Key: "objectIds", Reason: "identifier response is not valid JSON: " + err.Error()}
	}
	if len(payload.ObjectIDs) == 0 {
		return nil, &SchemaError{Key: "objectIds", Reason: "missing or empty identifier list"}
	}
	// The service returns identifiers sorted ascending.
	return &Bounds{
		Min: payload.ObjectIDs[0],
		Max: payload.ObjectIDs[len(payload.ObjectIDs)-1],
	}, nil
}

// getJSON issues one GET and returns the response body. Metadata calls
// are not retried: a service that cannot answer them is misconfigured.
func getJSON(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// renderURL appends encoded query parameters to a URL.
func renderURL(base string, params url.Values) string {
	return base + "?" + params.Encode()
}
