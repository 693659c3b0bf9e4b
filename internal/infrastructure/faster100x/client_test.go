package faster100x

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"holder-risk-engine/internal/domain/service"
	"holder-risk-engine/internal/infrastructure/config"
	"holder-risk-engine/internal/infrastructure/logger"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "HEZ6KcNNUKaWvUCBEe4BtfoeDHEHPkCHY9JaDNqrpump"

const successBody = `[{"result":{"data":{"json":{
	"status":"success",
	"token_address":"HEZ6KcNNUKaWvUCBEe4BtfoeDHEHPkCHY9JaDNqrpump",
	"updated_at":"2025-03-01T12:00:00Z",
	"data":{"response":{
		"fund_graph_data":{
			"nodes":[{"id":"A"},{"id":"B"},{"id":"C"}],
			"links":[{"source":"A","target":"B"}]
		},
		"data":[
			{"address":"A","amount_percentage":"0.08"},
			{"address":"B","amount_percentage":"0.05"},
			{"address":"C","amount_percentage":"oops"}
		],
		"top_nodes":["A"]
	}}
}}}}]`

func testConfig(baseURL string) *config.Faster100xConfig {
	return &config.Faster100xConfig{
		BaseURL:                baseURL,
		RequestTimeout:         5 * time.Second,
		ConcentrationThreshold: 10,
		Breaker: config.BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 0.5,
			MinRequests:      2,
		},
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchSnapshot_Success(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, analyzeEndpoint, r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("batch"))

		var input map[string]map[string]map[string]string
		assert.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("input")), &input))
		assert.Equal(t, testToken, input["0"]["json"]["tokenAddress"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(successBody))
	})

	client := NewClient(testConfig(srv.URL), logger.NewNopLogger())
	snapshot, err := client.FetchSnapshot(context.Background(), testToken)
	require.NoError(t, err)

	assert.Equal(t, testToken, snapshot.TokenAddress)
	assert.Equal(t, "2025-03-01T12:00:00Z", snapshot.UpdatedAt)
	require.Len(t, snapshot.Holders, 3)
	assert.InDelta(t, 0.08, snapshot.Holders[0].Fraction, 1e-12)
	assert.Equal(t, 0.0, snapshot.Holders[2].Fraction, "malformed percentage defaults to zero")
	assert.Len(t, snapshot.Graph.Nodes, 3)
	assert.Len(t, snapshot.Graph.Links, 1)
	assert.Equal(t, []string{"A"}, snapshot.TopNodes)
	assert.False(t, snapshot.FetchedAt.IsZero())
}

func TestFetchSnapshot_ConcentrationTooHigh(t *testing.T) {
	body := `[{"result":{"data":{"json":{"status":"success","data":{"response":{
		"fund_graph_data":{"nodes":[{"id":"A"}],"links":[]},
		"data":[{"address":"A","amount_percentage":0.12},{"address":"B","amount_percentage":0.01}],
		"top_nodes":[]
	}}}}}}]`
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	client := NewClient(testConfig(srv.URL), logger.NewNopLogger())
	snapshot, err := client.FetchSnapshot(context.Background(), testToken)

	assert.Nil(t, snapshot)
	assert.ErrorIs(t, err, service.ErrConcentrationTooHigh)
	assert.ErrorIs(t, err, service.ErrDataUnavailable)
}

func TestFetchSnapshot_ConcentrationThresholdConfigurable(t *testing.T) {
	body := `[{"result":{"data":{"json":{"status":"success","data":{"response":{
		"fund_graph_data":{"nodes":[{"id":"A"}],"links":[]},
		"data":[{"address":"A","amount_percentage":"0.12"}],
		"top_nodes":[]
	}}}}}}]`
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	cfg := testConfig(srv.URL)
	cfg.ConcentrationThreshold = 15
	client := NewClient(cfg, logger.NewNopLogger())

	snapshot, err := client.FetchSnapshot(context.Background(), testToken)
	require.NoError(t, err)
	assert.Len(t, snapshot.Holders, 1)
}

func TestFetchSnapshot_RateLimited(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	cfg := testConfig(srv.URL)
	cfg.RateLimitDelay = 10 * time.Millisecond
	client := NewClient(cfg, logger.NewNopLogger())

	start := time.Now()
	snapshot, err := client.FetchSnapshot(context.Background(), testToken)

	assert.Nil(t, snapshot)
	assert.ErrorIs(t, err, service.ErrRateLimited)
	assert.ErrorIs(t, err, service.ErrDataUnavailable)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestFetchSnapshot_RateLimitBackoffOutlivesRequestTimeout(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	cfg := testConfig(srv.URL)
	cfg.RequestTimeout = 50 * time.Millisecond
	cfg.RateLimitDelay = 200 * time.Millisecond
	client := NewClient(cfg, logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		start := time.Now()
		_, err := client.FetchSnapshot(context.Background(), testToken)

		assert.ErrorIs(t, err, service.ErrRateLimited)
		assert.NotErrorIs(t, err, context.DeadlineExceeded)
		assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(hits), "rate limiting never opens the breaker")
}

func TestFetchSnapshot_RateLimitBackoffHonoursCancellation(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	cfg := testConfig(srv.URL)
	cfg.RateLimitDelay = time.Hour
	client := NewClient(cfg, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.FetchSnapshot(ctx, testToken)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchSnapshot_HTTPError(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	client := NewClient(testConfig(srv.URL), logger.NewNopLogger())
	_, err := client.FetchSnapshot(context.Background(), testToken)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "upstream exploded", httpErr.Body)
	assert.False(t, errors.Is(err, service.ErrDataUnavailable))
}

func TestFetchSnapshot_DeserializeErrorCarriesBody(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	})

	client := NewClient(testConfig(srv.URL), logger.NewNopLogger())
	_, err := client.FetchSnapshot(context.Background(), testToken)

	var decodeErr *DeserializeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, `{"not":"an array"`, decodeErr.Body)
	assert.Contains(t, err.Error(), `{"not":"an array"`)
}

func TestFetchSnapshot_NoData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty batch", body: `[]`},
		{name: "provider failure", body: `[{"result":{"data":{"json":{"status":"error","message":"token not indexed"}}}}]`},
		{name: "missing payload", body: `[{"result":{"data":{"json":{"status":"success"}}}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			client := NewClient(testConfig(srv.URL), logger.NewNopLogger())
			snapshot, err := client.FetchSnapshot(context.Background(), testToken)

			assert.Nil(t, snapshot)
			assert.ErrorIs(t, err, service.ErrNoData)
		})
	}
}

func TestFetchSnapshot_BreakerOpensOnRepeatedFailures(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := NewClient(testConfig(srv.URL), logger.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.FetchSnapshot(ctx, testToken)
		require.Error(t, err)
	}

	_, err := client.FetchSnapshot(ctx, testToken)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestFetchSnapshot_DataUnavailableDoesNotTripBreaker(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	client := NewClient(testConfig(srv.URL), logger.NewNopLogger())
	for i := 0; i < 4; i++ {
		_, err := client.FetchSnapshot(context.Background(), testToken)
		assert.ErrorIs(t, err, service.ErrNoData)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(hits))
}

func TestFetchSnapshot_RequestDelayHonoursCancellation(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(successBody))
	})

	cfg := testConfig(srv.URL)
	cfg.RequestDelay = time.Hour
	client := NewClient(cfg, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchSnapshot(ctx, testToken)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}
