package dataclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/vox/pkg/dataclient"
	"github.com/voxlane/vox/pkg/domain"
)

func newClient(t *testing.T, baseURL string, opts ...func(*dataclient.Config)) *dataclient.Client {
	t.Helper()
	cfg := dataclient.Config{
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	client, err := dataclient.New(cfg)
	require.NoError(t, err)
	return client
}

func TestClient_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"name": "Checkout study"},
		})
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	data, err := client.GetStudyData(context.Background(), "db-1", "study-1")

	require.NoError(t, err, "two transient failures then success must not surface an error")
	assert.Equal(t, "Checkout study", data["name"])
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ExhaustionReturnsOneClassifiedError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"db down"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	_, err := client.GetStudyData(context.Background(), "db-1", "study-1")

	var derr *dataclient.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dataclient.ClassUnknown, derr.Classification)
	assert.Equal(t, http.StatusServiceUnavailable, derr.StatusCode)
	assert.Equal(t, "db down", derr.Message)
	assert.Equal(t, int32(3), calls.Load(), "must stop at the attempt budget")
}

func TestClient_NotFoundIsTerminalOnFirstSight(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"no such study"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	_, err := client.GetStudyData(context.Background(), "db-1", "missing")

	var derr *dataclient.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dataclient.ClassNotFound, derr.Classification)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestClient_BadRequestClassifiesValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"patch rejected"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	_, err := client.UpdateSessionData(context.Background(), "db-1", "study-1", "p-1", "s-1", map[string]any{"bogus": 1})

	var derr *dataclient.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dataclient.ClassValidation, derr.Classification)
}

func TestClient_SlowServerClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, func(cfg *dataclient.Config) {
		cfg.Timeout = 20 * time.Millisecond
		cfg.MaxAttempts = 1
	})
	err := client.HealthCheck(context.Background())

	var derr *dataclient.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dataclient.ClassTimeout, derr.Classification)
	assert.True(t, derr.Timeout())
}

func TestClient_RequestShape(t *testing.T) {
	type seen struct {
		method string
		path   string
		query  string
		dbID   string
		body   map[string]any
	}
	var got seen

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.dbID = r.Header.Get("x-databaseid")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{}})
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	ctx := context.Background()

	_, err := client.GetFrameData(ctx, "db-9", "file-abc", "12:7")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/api/figma/collection", got.path)
	assert.Contains(t, got.query, "fileKey=file-abc")
	assert.Contains(t, got.query, "frameId=12%3A7")
	assert.Equal(t, "db-9", got.dbID)

	_, err = client.UpdateSessionData(ctx, "db-9", "study-1", "p-1", "sess-1", map[string]any{"activeTaskId": "t1"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "/api/study/study-1/participants/p-1/sessions/sess-1", got.path)
	assert.Equal(t, "t1", got.body["activeTaskId"])

	event := domain.NewInteractionEvent(domain.EventComponentClick, "sess-1", map[string]any{"nodeId": "5:1"}, time.Now())
	require.NoError(t, client.AppendInteractionEvent(ctx, "db-9", "study-1", "p-1", event))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/study/study-1/participants/p-1/sessions/sess-1/events", got.path)
	assert.Equal(t, event.ID, got.body["id"])
	assert.Equal(t, "COMPONENT_CLICK", got.body["type"])

	require.NoError(t, client.HealthCheck(ctx))
	assert.Equal(t, "/api/healthCheck", got.path)
	assert.Empty(t, got.dbID, "health check carries no database header")
}

func TestClient_UnwrapsDataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "ok",
			"data": map[string]any{
				"frameName": "Checkout / Payment",
				"nodes":     map[string]any{"5:1": map[string]any{"description": "Pay button"}},
			},
		})
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	data, err := client.GetFrameData(context.Background(), "db", "file", "9:2")

	require.NoError(t, err)
	assert.Equal(t, "Checkout / Payment", data["frameName"])
	assert.NotContains(t, data, "success", "envelope fields must not leak into results")
}

func TestClient_RequiresBaseURL(t *testing.T) {
	_, err := dataclient.New(dataclient.Config{})
	assert.Error(t, err)
}
