package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rodriseer/surfseer/internal/forecast"
	"github.com/rodriseer/surfseer/internal/surf"
	"github.com/rodriseer/surfseer/internal/upstream"
)

// ForecastService is the slice of the forecast service the handlers
// need. Defined here so tests can swap in a fake.
type ForecastService interface {
	Spots() []forecast.Spot
	Spot(id string) (forecast.Spot, error)
	DefaultSpot() forecast.Spot
	Report(ctx context.Context, spotID string, force bool) (*forecast.Report, error)
	Outlook(ctx context.Context, spotID string, force bool) ([]surf.OutlookDay, error)
	Tide(ctx context.Context, spotID string) ([]upstream.TidePrediction, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Service   ForecastService
	Logger    *slog.Logger
	StartTime time.Time
	Version   string
}

// apiError is a JSON error response.
type apiError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg, Code: status})
}

func forceRequested(r *http.Request) bool {
	switch r.URL.Query().Get("force") {
	case "1", "true", "yes":
		return true
	}
	return false
}

// ListSpots handles GET /api/v1/spots
func (h *Handlers) ListSpots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Spots())
}

// GetSpot handles GET /api/v1/spots/{spot_id}
func (h *Handlers) GetSpot(w http.ResponseWriter, r *http.Request) {
	spot, err := h.Service.Spot(r.PathValue("spot_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown spot")
		return
	}
	writeJSON(w, http.StatusOK, spot)
}

// GetForecast handles GET /api/v1/spots/{spot_id}/forecast
func (h *Handlers) GetForecast(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, r.PathValue("spot_id"))
}

// GetDefaultForecast handles GET /api/v1/forecast. An unknown or absent
// spot query parameter falls back to the default spot, so a bare
// request always returns something surfable.
func (h *Handlers) GetDefaultForecast(w http.ResponseWriter, r *http.Request) {
	spotID := r.URL.Query().Get("spot")
	if _, err := h.Service.Spot(spotID); err != nil {
		spotID = h.Service.DefaultSpot().ID
	}
	h.serveReport(w, r, spotID)
}

func (h *Handlers) serveReport(w http.ResponseWriter, r *http.Request, spotID string) {
	rep, err := h.Service.Report(r.Context(), spotID, forceRequested(r))
	if err != nil {
		if errors.Is(err, forecast.ErrUnknownSpot) {
			writeError(w, http.StatusNotFound, "unknown spot")
			return
		}
		if upstream.IsRateLimited(err) {
			writeError(w, http.StatusTooManyRequests, "upstream rate limit reached, try again shortly")
			return
		}
		h.Logger.Error("forecast refresh failed", "spot_id", spotID, "error", err)
		writeError(w, http.StatusBadGateway, "forecast temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetOutlook handles GET /api/v1/spots/{spot_id}/outlook
func (h *Handlers) GetOutlook(w http.ResponseWriter, r *http.Request) {
	spotID := r.PathValue("spot_id")
	days, err := h.Service.Outlook(r.Context(), spotID, forceRequested(r))
	if err != nil {
		if errors.Is(err, forecast.ErrUnknownSpot) {
			writeError(w, http.StatusNotFound, "unknown spot")
			return
		}
		h.Logger.Error("outlook refresh failed", "spot_id", spotID, "error", err)
		writeError(w, http.StatusBadGateway, "outlook temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"spot_id": spotID,
		"days":    days,
	})
}

// GetTide handles GET /api/v1/spots/{spot_id}/tide
func (h *Handlers) GetTide(w http.ResponseWriter, r *http.Request) {
	spotID := r.PathValue("spot_id")
	preds, err := h.Service.Tide(r.Context(), spotID)
	if err != nil {
		if errors.Is(err, forecast.ErrUnknownSpot) {
			writeError(w, http.StatusNotFound, "unknown spot")
			return
		}
		h.Logger.Error("tide fetch failed", "spot_id", spotID, "error", err)
		writeError(w, http.StatusBadGateway, "tide data temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"spot_id":     spotID,
		"predictions": preds,
	})
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.Version,
		"uptime":  formatUptime(time.Since(h.StartTime)),
		"spots":   len(h.Service.Spots()),
	})
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
