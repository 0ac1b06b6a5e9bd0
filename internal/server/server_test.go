package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kdindex/internal/kdtree"
	"kdindex/internal/models"
	"kdindex/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	datasets := []*models.Dataset{
		{
			Name:   "plane",
			Source: "plane.csv",
			Points: []kdtree.Point{{1, 1}, {3, 4}, {9, 8}, {10, 11}, {12, 13}, {15, 1}, {20, 20}},
		},
		{
			Name:   "space",
			Source: "space.csv",
			Points: []kdtree.Point{{2, 9, 8}, {5, 2, 9}, {3, 7, 4}, {6, 4, 2}, {8, 1, 6}},
		},
	}
	if err := store.SaveDatasets(datasets); err != nil {
		t.Fatalf("SaveDatasets failed: %v", err)
	}

	return New(store, 0, time.Minute), store
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHandleDatasets(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s.Handler(), "/api/datasets")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var datasets []models.Dataset
	decode(t, rec, &datasets)
	if len(datasets) != 2 || datasets[0].Name != "plane" || datasets[1].Name != "space" {
		t.Errorf("unexpected datasets: %+v", datasets)
	}
	if datasets[1].PointCount != 5 {
		t.Errorf("space point_count = %d, want 5", datasets[1].PointCount)
	}
}

func TestHandleNearest(t *testing.T) {
	s, store := newTestServer(t)

	rec := get(t, s.Handler(), "/api/nearest?dataset=space&target=4,3,5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	decode(t, rec, &resp)
	if len(resp.Neighbors) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(resp.Neighbors))
	}
	if !resp.Neighbors[0].Point.Equal(kdtree.Point{6, 4, 2}) {
		t.Errorf("nearest = %v, want [6 4 2]", resp.Neighbors[0].Point)
	}

	history, err := store.GetQueryHistory("space", 0)
	if err != nil {
		t.Fatalf("GetQueryHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Kind != models.QueryNearest || history[0].Results != 1 {
		t.Errorf("query not recorded: %+v", history)
	}
}

func TestHandleKNN(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s.Handler(), "/api/knn?dataset=plane&target=10,10&k=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	decode(t, rec, &resp)
	want := []kdtree.Point{{10, 11}, {9, 8}, {12, 13}}
	if len(resp.Neighbors) != len(want) {
		t.Fatalf("expected %d neighbors, got %d", len(want), len(resp.Neighbors))
	}
	for i, p := range want {
		if !resp.Neighbors[i].Point.Equal(p) {
			t.Errorf("neighbor %d = %v, want %v", i, resp.Neighbors[i].Point, p)
		}
	}
	if resp.Neighbors[0].Distance != 1 {
		t.Errorf("first distance = %v, want 1", resp.Neighbors[0].Distance)
	}
}

func TestHandleWithin(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s.Handler(), "/api/within?dataset=plane&target=10,10&radius=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	decode(t, rec, &resp)
	want := []kdtree.Point{{10, 11}, {9, 8}, {12, 13}}
	if len(resp.Neighbors) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(resp.Neighbors))
	}
	for i, p := range want {
		if !resp.Neighbors[i].Point.Equal(p) {
			t.Errorf("point %d = %v, want %v", i, resp.Neighbors[i].Point, p)
		}
	}
}

func TestHandleTree(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s.Handler(), "/api/tree?dataset=space")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q, want text/plain", ct)
	}

	body, _ := io.ReadAll(rec.Body)
	if !strings.HasPrefix(string(body), "0: [5 2 9]\n") {
		t.Errorf("dump should start with the root, got:\n%s", body)
	}
}

func TestHandleHistory(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	get(t, h, "/api/nearest?dataset=plane&target=0,0")
	get(t, h, "/api/knn?dataset=plane&target=0,0&k=2")

	rec := get(t, h, "/api/history?dataset=plane&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var records []models.QueryRecord
	decode(t, rec, &records)
	if len(records) != 1 || records[0].Kind != models.QueryKNN {
		t.Errorf("history = %+v, want only the knn query", records)
	}
}

func TestHandlerErrors(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"missing dataset", "/api/nearest?target=1,2", http.StatusBadRequest},
		{"missing target", "/api/nearest?dataset=plane", http.StatusBadRequest},
		{"bad target", "/api/nearest?dataset=plane&target=1,x", http.StatusBadRequest},
		{"dimension mismatch", "/api/nearest?dataset=plane&target=1,2,3", http.StatusBadRequest},
		{"unknown dataset", "/api/nearest?dataset=nope&target=1,2", http.StatusNotFound},
		{"bad k", "/api/knn?dataset=plane&target=1,2&k=many", http.StatusBadRequest},
		{"zero k", "/api/knn?dataset=plane&target=1,2&k=0", http.StatusBadRequest},
		{"bad radius", "/api/within?dataset=plane&target=1,2&radius=far", http.StatusBadRequest},
		{"negative radius", "/api/within?dataset=plane&target=1,2&radius=-1", http.StatusBadRequest},
		{"tree without dataset", "/api/tree", http.StatusBadRequest},
		{"tree unknown dataset", "/api/tree?dataset=nope", http.StatusNotFound},
		{"bad limit", "/api/history?limit=x", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.url)
			if rec.Code != tt.want {
				t.Errorf("GET %s status = %d, want %d (body %q)", tt.url, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestTreeCache(t *testing.T) {
	s, store := newTestServer(t)

	first, err := s.tree("plane")
	if err != nil {
		t.Fatalf("tree failed: %v", err)
	}
	second, err := s.tree("plane")
	if err != nil {
		t.Fatalf("tree failed: %v", err)
	}
	if first != second {
		t.Error("tree should be cached between queries")
	}

	replacement := &models.Dataset{Name: "plane", Source: "new.csv", Points: []kdtree.Point{{0, 0}}}
	if err := store.SaveDatasets([]*models.Dataset{replacement}); err != nil {
		t.Fatalf("SaveDatasets failed: %v", err)
	}

	rebuilt, err := s.tree("plane")
	if err != nil {
		t.Fatalf("tree failed: %v", err)
	}
	if rebuilt == first {
		t.Fatal("tree should be rebuilt after the dataset is re-imported")
	}
	if rebuilt.Len() != 1 {
		t.Errorf("rebuilt tree has %d points, want 1", rebuilt.Len())
	}

	if err := store.DeleteDataset("plane"); err != nil {
		t.Fatalf("DeleteDataset failed: %v", err)
	}
	rec := get(t, s.Handler(), "/api/nearest?dataset=plane&target=0,0")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after remove = %d, want %d", rec.Code, http.StatusNotFound)
	}
	s.mu.Lock()
	_, cached := s.trees["plane"]
	s.mu.Unlock()
	if cached {
		t.Error("removed dataset should be dropped from the cache")
	}
}

type failingWriter struct {
	header http.Header
}

func (w *failingWriter) Header() http.Header { return w.header }
func (w *failingWriter) WriteHeader(int) {}
func (w *failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestHandleTree_LogsWriteError(t *testing.T) {
	s, _ := newTestServer(t)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	w := &failingWriter{header: make(http.Header)}
	s.handleTree(w, httptest.NewRequest(http.MethodGet, "/api/tree?dataset=plane", nil))

	if !strings.Contains(buf.String(), "failed to write tree for plane") {
		t.Errorf("expected write error to be logged, got %q", buf.String())
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/datasets", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}

	rec = get(t, s.Handler(), "/api/unknown")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", rec.Code)
	}
}
