package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yegors/handoff-board/internal/tracker"
	"github.com/yegors/handoff-board/pkg/logger"
)

// maxAnnotationBody bounds POST /api/annotations request bodies
const maxAnnotationBody = 64 << 10

// TrackerService is the part of the tracker the HTTP surface reads and edits
type TrackerService interface {
	Snapshot() *tracker.Snapshot
	GetStatus() tracker.Status
	Boundaries() any
	Annotations() any
	UpdateAnnotation(id, field string, value any) error
}

// ClientCounter reports connected viewers
type ClientCounter interface {
	ClientCount() int
}

// Handler contains the API handlers
type Handler struct {
	tracker TrackerService
	viewers ClientCounter
	logger  *logger.Logger
	started time.Time
}

// NewHandler creates a new API handler
func NewHandler(trackerService TrackerService, viewers ClientCounter, log *logger.Logger) *Handler {
	return &Handler{
		tracker: trackerService,
		viewers: viewers,
		logger:  log.Named("api-handler"),
		started: time.Now(),
	}
}

// GetHealth returns the health status of the feed cycle
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := h.tracker.GetStatus()

	state := "ok"
	if !status.LastFetchStatus {
		state = "degraded"
	}

	response := map[string]any{
		"status":         state,
		"last_fetch":     status.LastFetchTime,
		"last_fetch_ok":  status.LastFetchStatus,
		"cycle":          status.Cycle,
		"skipped_ticks":  status.SkippedTicks,
		"inbound_count":  status.InboundCount,
		"outbound_count": status.OutboundCount,
		"dropped":        status.Dropped,
		"annotated":      status.Annotated,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"viewers":        0,
	}
	if h.viewers != nil {
		response["viewers"] = h.viewers.ClientCount()
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetTracks returns the latest published inbound and outbound lists
func (h *Handler) GetTracks(w http.ResponseWriter, r *http.Request) {
	snap := h.tracker.Snapshot()
	if snap == nil {
		http.Error(w, "No snapshot available", http.StatusServiceUnavailable)
		return
	}

	switch strings.ToLower(r.URL.Query().Get("direction")) {
	case "":
		WriteJSON(w, http.StatusOK, snap)
	case "inbound":
		WriteJSON(w, http.StatusOK, map[string]any{"cycle": snap.Cycle, "generated_at": snap.GeneratedAt, "tracks": snap.Inbound})
	case "outbound":
		WriteJSON(w, http.StatusOK, map[string]any{"cycle": snap.Cycle, "generated_at": snap.GeneratedAt, "tracks": snap.Outbound})
	default:
		http.Error(w, "Invalid direction: must be inbound or outbound", http.StatusBadRequest)
	}
}

// GetAnnotations returns the whole operator annotation mapping
func (h *Handler) GetAnnotations(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"annotations": h.tracker.Annotations()})
}

// UpdateAnnotation merges one field edit, with the same effect as a viewer's updateField message
func (h *Handler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    json.RawMessage `json:"id"`
		Field string          `json:"field"`
		Value any             `json:"value"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAnnotationBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Failed to parse annotation request", logger.Error(err))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	id, ok := annotationID(req.ID)
	if !ok {
		http.Error(w, "Invalid id: must be a string or number", http.StatusBadRequest)
		return
	}

	if err := h.tracker.UpdateAnnotation(id, req.Field, req.Value); err != nil {
		if errors.Is(err, tracker.ErrInvalidAnnotation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to update annotation", logger.Error(err))
		http.Error(w, "Failed to update annotation", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"annotations": h.tracker.Annotations()})
}

// GetRegions returns the configured regions as a GeoJSON FeatureCollection
func (h *Handler) GetRegions(w http.ResponseWriter, r *http.Request) {
	boundaries := h.tracker.Boundaries()
	if boundaries == nil {
		http.Error(w, "No regions loaded", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(boundaries); err != nil {
		h.logger.Error("Failed to encode regions", logger.Error(err))
	}
}

// annotationID accepts the aircraft id as a JSON string or number
func annotationID(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
