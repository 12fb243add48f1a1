// Package testutil provides testing utilities for the harvester.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for one scripted query response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockService is a configurable mock feature service for testing. It
// serves the metadata document at the service root and dispatches /query
// requests to count, identifier, statistics, or feature query handling
// based on their parameters.
type MockService struct {
	server *httptest.Server

	mu           sync.Mutex
	metadata     string
	count        int64
	objectIDs    []int64
	statsBounds  *[2]int64
	queryHandler http.HandlerFunc
	script       []MockResponse

	// Tracking
	RequestCount int
	QueryCount   int
	LastQuery    string
}

// NewMockService creates a new mock feature service.
func NewMockService() *MockService {
	mock := &MockService{}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.mu.Unlock()

		if r.URL.Path == "/query" {
			mock.handleQuery(w, r)
			return
		}
		mock.handleMetadata(w, r)
	}))

	return mock
}

// URL returns the mock service base URL.
func (m *MockService) URL() string {
	return m.server.URL
}

// Close shuts down the mock service.
func (m *MockService) Close() {
	m.server.Close()
}

// SetMetadata sets the raw JSON served by the metadata endpoint.
func (m *MockService) SetMetadata(metadata string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata = metadata
}

// SetCount configures the returnCountOnly response.
func (m *MockService) SetCount(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = count
}

// SetObjectIDs configures the returnIdsOnly response. The list is served
// as given; the harvester expects ascending order.
func (m *MockService) SetObjectIDs(ids []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objectIDs = ids
}

// SetStatisticsBounds configures the outStatistics response.
func (m *MockService) SetStatisticsBounds(minID, maxID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsBounds = &[2]int64{minID, maxID}
}

// SetQueryHandler sets a custom handler for feature queries.
func (m *MockService) SetQueryHandler(handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryHandler = handler
}

// ScriptQueryResponses queues scripted responses consumed one per feature
// query, in order. Used to exercise the retry loop: failures first, then
// a success.
func (m *MockService) ScriptQueryResponses(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
}

func (m *MockService) handleMetadata(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	metadata := m.metadata
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, metadata)
}

func (m *MockService) handleQuery(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case params.Get("returnCountOnly") == "true":
		m.mu.Lock()
		count := m.count
		m.mu.Unlock()
		fmt.Fprintf(w, `{"count":%d}`, count)

	case params.Get("returnIdsOnly") == "true":
		m.mu.Lock()
		ids := m.objectIDs
		m.mu.Unlock()
		fmt.Fprint(w, `{"objectIdFieldName":"OBJECTID","objectIds":[`)
		for i, id := range ids {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, "%d", id)
		}
		fmt.Fprint(w, "]}")

	case params.Get("outStatistics") != "":
		m.mu.Lock()
		bounds := m.statsBounds
		m.mu.Unlock()
		if bounds == nil {
			fmt.Fprint(w, `{"features":[]}`)
			return
		}
		fmt.Fprintf(w, `{"features":[{"attributes":{"MIN_VALUE":%d,"MAX_VALUE":%d}}]}`, bounds[0], bounds[1])

	default:
		m.handleFeatureQuery(w, r)
	}
}

func (m *MockService) handleFeatureQuery(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.QueryCount++
	m.LastQuery = r.URL.String()
	var scripted *MockResponse
	if len(m.script) > 0 {
		scripted = &m.script[0]
		m.script = m.script[1:]
	}
	handler := m.queryHandler
	m.mu.Unlock()

	if scripted != nil {
		if scripted.Delay > 0 {
			time.Sleep(scripted.Delay)
		}
		w.WriteHeader(scripted.StatusCode)
		fmt.Fprint(w, scripted.Body)
		return
	}

	if handler != nil {
		handler(w, r)
		return
	}

	fmt.Fprint(w, `{"features":[]}`)
}

// GetRequestCount returns the number of requests served, metadata and
// query endpoints included.
func (m *MockService) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// GetQueryCount returns the number of feature queries served.
func (m *MockService) GetQueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.QueryCount
}
