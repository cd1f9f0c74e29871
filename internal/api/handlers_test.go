package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/handoff-board/internal/classify"
	"github.com/yegors/handoff-board/internal/tracker"
	"github.com/yegors/handoff-board/pkg/logger"
)

type fakeTracker struct {
	mu          sync.Mutex
	snap        *tracker.Snapshot
	status      tracker.Status
	boundaries  any
	annotations map[string]map[string]any
}

func newFakeTracker() *fakeTracker {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	return &fakeTracker{
		snap: &tracker.Snapshot{
			Cycle:       7,
			GeneratedAt: now,
			Inbound: []classify.Track{
				{ID: "1001", Callsign: "JBU123", Waypoint: "KINCH", CenterEstimate: "12:20Z", Direction: classify.Inbound, Region: "TJZS"},
			},
			Outbound: []classify.Track{
				{ID: "1002", Callsign: "AAL9", Waypoint: "OBIKE", CenterEstimate: "12:31Z", Direction: classify.Outbound, Region: "TJZS"},
			},
			Processed: 12,
			Dropped:   map[string]int{"no_region": 10},
		},
		status: tracker.Status{
			LastFetchTime:   now,
			LastFetchStatus: true,
			Cycle:           7,
			InboundCount:    1,
			OutboundCount:   1,
			Dropped:         map[string]int{"no_region": 10},
		},
		boundaries:  map[string]any{"type": "FeatureCollection", "features": []any{}},
		annotations: map[string]map[string]any{},
	}
}

func (f *fakeTracker) Snapshot() *tracker.Snapshot { return f.snap }
func (f *fakeTracker) GetStatus() tracker.Status    { return f.status }
func (f *fakeTracker) Boundaries() any              { return f.boundaries }

func (f *fakeTracker) Annotations() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]map[string]any, len(f.annotations))
	for id, fields := range f.annotations {
		out[id] = make(map[string]any, len(fields))
		for k, v := range fields {
			out[id][k] = v
		}
	}
	return out
}

func (f *fakeTracker) UpdateAnnotation(id, field string, value any) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(field) == "" {
		return fmt.Errorf("%w: missing id or field", tracker.ErrInvalidAnnotation)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.annotations[id] == nil {
		f.annotations[id] = map[string]any{}
	}
	f.annotations[id][field] = value
	return nil
}

type fixedCount int

func (c fixedCount) ClientCount() int { return int(c) }

func newTestServer(t *testing.T, ft *fakeTracker, staticDir string) *httptest.Server {
	t.Helper()
	log := logger.NewNop()
	h := NewHandler(ft, fixedCount(3), log)
	ws := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }
	srv := httptest.NewServer(NewRouter(h, ws, staticDir, nil, log).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestGetHealth(t *testing.T) {
	srv := newTestServer(t, newFakeTracker(), "")

	var body map[string]any
	resp := getJSON(t, srv.URL+"/api/health", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 7, body["cycle"])
	assert.EqualValues(t, 3, body["viewers"])
	assert.EqualValues(t, 1, body["inbound_count"])
}

func TestGetHealthDegraded(t *testing.T) {
	ft := newFakeTracker()
	ft.status.LastFetchStatus = false
	srv := newTestServer(t, ft, "")

	var body map[string]any
	getJSON(t, srv.URL+"/api/health", &body)
	assert.Equal(t, "degraded", body["status"])
}

func TestGetTracks(t *testing.T) {
	srv := newTestServer(t, newFakeTracker(), "")

	var all struct {
		Cycle    int              `json:"cycle"`
		Inbound  []map[string]any `json:"inbound"`
		Outbound []map[string]any `json:"outbound"`
	}
	resp := getJSON(t, srv.URL+"/api/tracks", &all)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 7, all.Cycle)
	require.Len(t, all.Inbound, 1)
	assert.Equal(t, "12:20Z", all.Inbound[0]["Center Estimate"])
	require.Len(t, all.Outbound, 1)
	assert.Equal(t, "AAL9", all.Outbound[0]["Callsign"])

	var one struct {
		Tracks []map[string]any `json:"tracks"`
	}
	getJSON(t, srv.URL+"/api/tracks?direction=outbound", &one)
	require.Len(t, one.Tracks, 1)
	assert.Equal(t, "OUTBOUND", one.Tracks[0]["direction"])

	resp = getJSON(t, srv.URL+"/api/tracks?direction=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnnotations(t *testing.T) {
	ft := newFakeTracker()
	srv := newTestServer(t, ft, "")

	post := func(body string) *http.Response {
		resp, err := http.Post(srv.URL+"/api/annotations", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusOK, post(`{"id":"1001","field":"Rmk","value":"climbing"}`).StatusCode)
	assert.Equal(t, http.StatusOK, post(`{"id":1002,"field":"Status","value":"green"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"id":"1001","field":"","value":1}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"id":{"x":1},"field":"a"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).StatusCode)

	var body struct {
		Annotations map[string]map[string]any `json:"annotations"`
	}
	getJSON(t, srv.URL+"/api/annotations", &body)
	assert.Equal(t, "climbing", body.Annotations["1001"]["Rmk"])
	assert.Equal(t, "green", body.Annotations["1002"]["Status"])
}

func TestGetRegions(t *testing.T) {
	srv := newTestServer(t, newFakeTracker(), "")

	resp, err := http.Get(srv.URL + "/api/regions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	ft := newFakeTracker()
	ft.boundaries = nil
	empty := newTestServer(t, ft, "")
	resp2 := getJSON(t, empty.URL+"/api/regions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestWebSocketRouteAndCORS(t *testing.T) {
	srv := newTestServer(t, newFakeTracker(), "")

	resp := getJSON(t, srv.URL+"/ws", nil)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://board.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>board</h1>"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "empty"), 0o755))
	srv := newTestServer(t, newFakeTracker(), dir)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/missing.js", nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, getJSON(t, srv.URL+"/empty", nil).StatusCode)

	// API routes take precedence over the catch-all
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/health", nil).StatusCode)
}

func TestStaticDotsInNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app..min.js"), []byte("1"), 0o644))
	h := NewStaticFileHandler(dir, logger.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app..min.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/assets/../../etc/passwd"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.False(t, hasDotDotSegment("/v1..2/app..min.js"))
	assert.True(t, hasDotDotSegment("/a/.."))
	assert.True(t, hasDotDotSegment(`/a\..\b`))
}

func TestNoStaticDir(t *testing.T) {
	srv := newTestServer(t, newFakeTracker(), "")
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/index.html", nil).StatusCode)
}
