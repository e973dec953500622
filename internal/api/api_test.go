package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mcpscout/mcpcrawl/pkg/crawler"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/store"
)

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	cfg := crawler.DefaultConfig()
	cfg.HTTP.CacheBackend = "none"
	cfg.DB.Path = filepath.Join(t.TempDir(), "crawl.db")

	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		t.Fatalf("store.Open error: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	c, err := crawler.New(cfg, st, log.New(io.Discard))
	if err != nil {
		t.Fatalf("crawler.New error: %v", err)
	}
	return New(c, st), st
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s.Router(), "/healthz")

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestStatus(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s.Router(), "/status")

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var status crawler.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Enabled {
		t.Error("crawler must report disabled by default")
	}
	if status.Active {
		t.Error("no run should be active")
	}
}

func TestRuns(t *testing.T) {
	s, st := testServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		done := time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if err := st.SaveRun(ctx, &model.Run{
			ID:          id,
			StartedAt:   done.Add(-time.Minute),
			CompletedAt: &done,
			Status:      model.RunCompleted,
		}); err != nil {
			t.Fatal(err)
		}
	}

	rec := get(t, s.Router(), "/runs?n=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var runs []model.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-c" {
		t.Errorf("first run = %s, want newest first", runs[0].ID)
	}
}

func TestRuns_BadQuery(t *testing.T) {
	s, _ := testServer(t)
	for _, q := range []string{"/runs?n=zero", "/runs?n=-1"} {
		if rec := get(t, s.Router(), q); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: code = %d, want 400", q, rec.Code)
		}
	}
}
