package fetcher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/arcdump/arcdump/internal/testutil"
	"github.com/arcdump/arcdump/pkg/planner"
)

func testOptions(maxTries int) Options {
	return Options{
		MaxTries:   maxTries,
		RetryDelay: time.Millisecond,
	}
}

func chunkFor(mock *testutil.MockService) planner.ChunkSpec {
	return planner.ChunkSpec{Index: 0, Query: mock.URL() + "/query?where=1%3D1&f=json"}
}

func TestFetchSuccess(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.ScriptQueryResponses(testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"features":[{"attributes":{"OBJECTID":1}},{"attributes":{"OBJECTID":2}}]}`,
	})

	f := New(http.DefaultClient, testOptions(3))
	payload, err := f.Fetch(context.Background(), chunkFor(mock))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(payload.Features) != 2 {
		t.Errorf("len(Features) = %d, want 2", len(payload.Features))
	}
	if mock.GetQueryCount() != 1 {
		t.Errorf("query count = %d, want 1", mock.GetQueryCount())
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.ScriptQueryResponses(
		testutil.MockResponse{StatusCode: http.StatusServiceUnavailable, Body: "busy"},
		testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"features":[]}`},
	)

	f := New(http.DefaultClient, testOptions(3))
	payload, err := f.Fetch(context.Background(), chunkFor(mock))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if payload.Features == nil {
		// An empty features array still decodes to a non-nil empty slice.
		t.Error("Features = nil")
	}
	if mock.GetQueryCount() != 2 {
		t.Errorf("query count = %d, want 2", mock.GetQueryCount())
	}
}

func TestFetchExhaustsRetryBudget(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.ScriptQueryResponses(
		testutil.MockResponse{StatusCode: http.StatusInternalServerError, Body: "boom"},
		testutil.MockResponse{StatusCode: http.StatusInternalServerError, Body: "boom"},
		testutil.MockResponse{StatusCode: http.StatusInternalServerError, Body: "boom"},
		testutil.MockResponse{StatusCode: http.StatusInternalServerError, Body: "boom"},
	)

	f := New(http.DefaultClient, testOptions(3))
	_, err := f.Fetch(context.Background(), chunkFor(mock))
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if !IsExhausted(err) {
		t.Errorf("IsExhausted(%v) = false", err)
	}
	// The attempt budget is total tries, not retries on top of one.
	if mock.GetQueryCount() != 3 {
		t.Errorf("query count = %d, want 3", mock.GetQueryCount())
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error is not a FetchError: %v", err)
	}
	if fetchErr.Err == nil {
		t.Error("exhaustion error does not wrap the last attempt error")
	}
}

func TestFetchFatalNotRetried(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.ScriptQueryResponses(testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"features":{"not":"an array"}}`,
	})

	f := New(http.DefaultClient, testOptions(5))
	_, err := f.Fetch(context.Background(), chunkFor(mock))
	if err == nil {
		t.Fatal("expected fatal error")
	}
	if IsTransient(err) || IsExhausted(err) {
		t.Errorf("malformed features should be fatal, got %v", err)
	}
	if mock.GetQueryCount() != 1 {
		t.Errorf("query count = %d, want 1 for a fatal failure", mock.GetQueryCount())
	}
}

func TestFetchClassification(t *testing.T) {
	tests := []struct {
		name      string
		response  testutil.MockResponse
		transient bool
	}{
		{
			name:      "server error status",
			response:  testutil.MockResponse{StatusCode: http.StatusBadGateway, Body: "bad gateway"},
			transient: true,
		},
		{
			name:      "body is not JSON",
			response:  testutil.MockResponse{StatusCode: http.StatusOK, Body: "<html>oops</html>"},
			transient: true,
		},
		{
			name:      "in-band service error",
			response:  testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"error":{"code":500,"message":"oops"}}`},
			transient: true,
		},
		{
			name:      "missing features key",
			response:  testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"fields":[]}`},
			transient: true,
		},
		{
			name:      "features not an array",
			response:  testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"features":42}`},
			transient: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockService()
			defer mock.Close()
			mock.ScriptQueryResponses(tt.response)

			f := New(http.DefaultClient, testOptions(1))
			_, err := f.Fetch(context.Background(), chunkFor(mock))
			if err == nil {
				t.Fatal("expected error")
			}
			// With a budget of one, transient failures surface as
			// exhaustion wrapping the transient attempt error.
			if tt.transient != IsExhausted(err) {
				t.Errorf("IsExhausted(%v) = %t, want %t", err, IsExhausted(err), tt.transient)
			}
		})
	}
}

func TestFetchContextCancelDuringRetryWait(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.ScriptQueryResponses(
		testutil.MockResponse{StatusCode: http.StatusServiceUnavailable, Body: "busy"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	f := New(http.DefaultClient, Options{MaxTries: 5, RetryDelay: time.Minute})

	done := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, chunkFor(mock))
		done <- err
	}()

	// Give the first attempt time to fail and enter the retry wait.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Fetch error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Fetch did not return after cancellation")
	}
}

func TestFetchPropagatesCRS(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.ScriptQueryResponses(testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"EPSG:4326"}},"features":[]}`,
	})

	f := New(http.DefaultClient, testOptions(1))
	payload, err := f.Fetch(context.Background(), chunkFor(mock))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if payload.CRS == nil {
		t.Error("CRS = nil, want the collection crs block")
	}
}
