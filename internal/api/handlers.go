package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/balhun/ISSTracker/internal/httputil"
	"github.com/balhun/ISSTracker/internal/scene"
	"github.com/balhun/ISSTracker/internal/track"
)

// maxStartOffset bounds ?start around the element epoch; SGP4 accuracy
// degrades quickly beyond a few weeks.
const maxStartOffset = 30 * 24 * time.Hour

type handlers struct {
	tracker Tracker
	orbits  *track.Cache
	logger  *slog.Logger
}

// telemetry returns the latest snapshot at full precision.
// GET /api/v1/telemetry
func (h *handlers) telemetry(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.tracker.Telemetry()
	if !ok {
		httputil.WriteError(w, http.StatusServiceUnavailable, "no telemetry yet")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// orbit returns the current orbit, or with ?start=RFC3339 an orbit sampled
// from that instant.
// GET /api/v1/orbit
func (h *handlers) orbit(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("start")
	if v == "" {
		o := h.tracker.Orbit()
		if o == nil {
			httputil.WriteError(w, http.StatusServiceUnavailable, "no orbit available")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, o)
		return
	}

	start, err := time.Parse(time.RFC3339, v)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid start parameter, must be RFC3339")
		return
	}

	es, ok := h.tracker.Elements()
	if !ok || h.orbits == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, track.ErrNoElements.Error())
		return
	}
	if d := start.Sub(es.Epoch); d > maxStartOffset || d < -maxStartOffset {
		httputil.WriteError(w, http.StatusBadRequest, "start must be within 30 days of the element epoch")
		return
	}

	o, err := h.orbits.Orbit(r.Context(), es, start)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.logger.Warn("orbit request failed", "component", "api", "start", v, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "orbit computation failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

// scene returns the composed scene.
// GET /api/v1/scene
func (h *handlers) scene(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.tracker.Scene())
}

// sceneGeoJSON returns the scene as a GeoJSON feature collection.
// GET /api/v1/scene.geojson
func (h *handlers) sceneGeoJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")
	fc := scene.GeoJSON(h.tracker.Scene())
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(fc)
}
