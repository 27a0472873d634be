package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStages_Monotonic(t *testing.T) {
	require.NotEmpty(t, stages)
	assert.Equal(t, "Pending", stages[0].Status)
	assert.Equal(t, "Completed", stages[len(stages)-1].Status)
	assert.Equal(t, 100, stages[len(stages)-1].Progress)
	for i := 1; i < len(stages); i++ {
		assert.Greater(t, stages[i].Progress, stages[i-1].Progress, stages[i].Status)
		assert.NotEmpty(t, stages[i].Notes)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SIM_TEST_INT", "7")
	assert.Equal(t, 7, envInt("SIM_TEST_INT", 3, 1))

	t.Setenv("SIM_TEST_INT", "0")
	assert.Equal(t, 3, envInt("SIM_TEST_INT", 3, 1))

	t.Setenv("SIM_TEST_INT", "abc")
	assert.Equal(t, 3, envInt("SIM_TEST_INT", 3, 1))
}

func TestClientDo_DecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"abc"}}`))
	}))
	defer server.Close()

	var out idOnly
	err := newClient(server.URL, "tok").do(context.Background(), http.MethodPost, "/x", "tok", map[string]string{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.ID)
}

func TestClientDo_ReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"FORBIDDEN","message":"Insufficient permissions"}}`))
	}))
	defer server.Close()

	err := newClient(server.URL, "tok").do(context.Background(), http.MethodGet, "/x", "tok", nil, nil)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)
}

// fakeAPI accepts the progress calls the simulator makes.
type fakeAPI struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]interface{}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/register":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"token":"cust-token","user":{"id":"cust1"}}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/vehicles":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"veh1"}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/services":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"svc1"}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/progress":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"log1"}}`))
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/progress/"):
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"log1"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"NOT_FOUND","message":"Route not found"}}`))
	}
}

func (f *fakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func TestSetupJob(t *testing.T) {
	api := &fakeAPI{}
	server := httptest.NewServer(api)
	defer server.Close()

	job, err := newClient(server.URL, "staff").setupJob(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, &Job{ServiceID: "svc1", VehicleID: "veh1", CustomerID: "cust1"}, job)
	assert.Equal(t, []string{"POST /auth/register", "POST /vehicles", "POST /services"}, api.Requests())
}

func TestSimulateJob_WalksEveryStage(t *testing.T) {
	api := &fakeAPI{}
	server := httptest.NewServer(api)
	defer server.Close()

	job := &Job{ServiceID: "svc1", VehicleID: "veh1", CustomerID: "cust1"}
	simulateJob(context.Background(), newClient(server.URL, "staff"), job, time.Millisecond)

	reqs := api.Requests()
	require.Len(t, reqs, len(stages))
	assert.Equal(t, "POST /progress", reqs[0])
	for _, r := range reqs[1:] {
		assert.Equal(t, "PUT /progress/log1", r)
	}
	assert.Equal(t, "log1", job.ProgressID)
	assert.Equal(t, len(stages), job.Stage)

	first := api.bodies[0]
	assert.Equal(t, "cust1", first["customerId"])
	assert.Equal(t, "Pending", first["status"])
	last := api.bodies[len(api.bodies)-1]
	assert.Equal(t, "Completed", last["status"])
	assert.Equal(t, float64(100), last["progress"])
}

func TestSimulateJob_StopsOnCancel(t *testing.T) {
	api := &fakeAPI{}
	server := httptest.NewServer(api)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &Job{ServiceID: "svc1", VehicleID: "veh1", CustomerID: "cust1"}
	simulateJob(ctx, newClient(server.URL, "staff"), job, time.Hour)

	assert.Len(t, api.Requests(), 1)
}
