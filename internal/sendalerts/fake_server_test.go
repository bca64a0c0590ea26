package sendalerts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// fakeService mimics the capmap HTTP surface in memory.
type fakeService struct {
	mu     sync.Mutex
	stored []map[string]any

	// reject makes every n-th submission return 429 when set.
	reject int
	// fixedCount acknowledges every alert with this count when set.
	fixedCount int
	posts      int
	healthCode int
}

func newFakeService(t *testing.T, f *fakeService) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		code := f.healthCode
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
	})
	mux.HandleFunc("POST /api/alert", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.posts++
		if f.reject > 0 && f.posts%f.reject == 0 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"backpressure","message":"queue full"}`))
			return
		}
		body["id"] = uuid.NewString()
		body["lat"] = -0.2
		body["lng"] = -78.5
		body["safe_places"] = []map[string]any{{"name": "Parque", "lat": nil, "lng": nil}}
		f.stored = append(f.stored, body)
		count := len(f.stored)
		if f.fixedCount > 0 {
			count = f.fixedCount
		}
		_ = json.NewEncoder(w).Encode(AckResponse{Status: "ok", Count: count})
	})
	mux.HandleFunc("GET /api/alerts", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := f.stored
		if out == nil {
			out = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}
