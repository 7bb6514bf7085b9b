package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/railyard/factotum/internal/admission"
	"github.com/railyard/factotum/internal/dispatcher"
	"github.com/railyard/factotum/internal/kvstore"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store := kvstore.NewMemory("instance-1", "factotum")
	disp := dispatcher.New(store, func(ctx context.Context, req dispatcher.JobRequest) error { return nil })
	disp.Start(context.Background())
	t.Cleanup(disp.Stop)

	state := admission.NewServerState()
	pipeline := admission.New(admission.Config{Namespace: "factotum"}, store, disp, state)
	return New(pipeline, disp, state, "test")
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Server.State != "run" {
		t.Fatalf("server state = %q, want run", resp.Server.State)
	}
}

func TestSettingsEndpointRejectsBadValue(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"state": "paused"})
	req := httptest.NewRequest(http.MethodPost, "/settings", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitEndpointAcceptsValidJob(t *testing.T) {
	srv := newTestServer(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "factfile.json")
	if err := os.WriteFile(path, []byte(`{"schema":"x","data":{"name":"n","tasks":[]}}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	body, _ := json.Marshal(map[string]interface{}{"jobName": "n", "factfilePath": path})
	req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHelpEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
