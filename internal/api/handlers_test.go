package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rodriseer/surfseer/internal/forecast"
	"github.com/rodriseer/surfseer/internal/observability"
	"github.com/rodriseer/surfseer/internal/surf"
	"github.com/rodriseer/surfseer/internal/upstream"
)

func ptr(f float64) *float64 { return &f }

type fakeService struct {
	spots     []forecast.Spot
	reportErr error
	tideErr   error
	lastSpot  string
	lastForce bool
}

func (f *fakeService) Spots() []forecast.Spot { return f.spots }

func (f *fakeService) Spot(id string) (forecast.Spot, error) {
	for _, s := range f.spots {
		if s.ID == id {
			return s, nil
		}
	}
	return forecast.Spot{}, fmt.Errorf("%w: %q", forecast.ErrUnknownSpot, id)
}

func (f *fakeService) DefaultSpot() forecast.Spot { return f.spots[0] }

func (f *fakeService) Report(ctx context.Context, spotID string, force bool) (*forecast.Report, error) {
	f.lastSpot = spotID
	f.lastForce = force
	if _, err := f.Spot(spotID); err != nil {
		return nil, err
	}
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	return &forecast.Report{
		SpotID:    spotID,
		SpotName:  "Test Spot",
		FetchedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Score:     ptr(7.2),
		Status:    "Rideable",
		Take:      "Fun size and clean.",
		Outlook:   []surf.OutlookDay{{Date: "2026-03-14"}},
	}, nil
}

func (f *fakeService) Outlook(ctx context.Context, spotID string, force bool) ([]surf.OutlookDay, error) {
	rep, err := f.Report(ctx, spotID, force)
	if err != nil {
		return nil, err
	}
	return rep.Outlook, nil
}

func (f *fakeService) Tide(ctx context.Context, spotID string) ([]upstream.TidePrediction, error) {
	if _, err := f.Spot(spotID); err != nil {
		return nil, err
	}
	if f.tideErr != nil {
		return nil, f.tideErr
	}
	return []upstream.TidePrediction{{Time: "2026-03-14 04:12", Type: "H", HeightFt: 4.1}}, nil
}

func newTestHandler(svc *fakeService) http.Handler {
	logger := slog.New(slog.NewTextHandler(discard{}, nil))
	srv := NewServer(svc, observability.NewMetricsForTesting(), logger)
	return srv.Handler()
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func defaultFake() *fakeService {
	return &fakeService{spots: []forecast.Spot{
		{ID: "malibu", Name: "Malibu First Point", FacingDeg: 180, TideStation: "9410840"},
		{ID: "topanga", Name: "Topanga", FacingDeg: 190},
	}}
}

func doGet(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListSpots(t *testing.T) {
	rec := doGet(t, newTestHandler(defaultFake()), "/api/v1/spots")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var spots []forecast.Spot
	if err := json.Unmarshal(rec.Body.Bytes(), &spots); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(spots) != 2 || spots[0].ID != "malibu" {
		t.Errorf("spots = %+v", spots)
	}
}

func TestGetSpot(t *testing.T) {
	handler := newTestHandler(defaultFake())

	rec := doGet(t, handler, "/api/v1/spots/topanga")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doGet(t, handler, "/api/v1/spots/atlantis")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown spot status = %d, want 404", rec.Code)
	}
}

func TestGetForecast(t *testing.T) {
	svc := defaultFake()
	handler := newTestHandler(svc)

	rec := doGet(t, handler, "/api/v1/spots/malibu/forecast")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.lastForce {
		t.Error("force passed without the query param")
	}

	var rep forecast.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if rep.SpotID != "malibu" || rep.Score == nil || *rep.Score != 7.2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestGetForecast_Force(t *testing.T) {
	svc := defaultFake()
	handler := newTestHandler(svc)

	doGet(t, handler, "/api/v1/spots/malibu/forecast?force=1")
	if !svc.lastForce {
		t.Error("force=1 not passed to the service")
	}
}

func TestGetForecast_Errors(t *testing.T) {
	svc := defaultFake()
	handler := newTestHandler(svc)

	rec := doGet(t, handler, "/api/v1/spots/atlantis/forecast")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown spot status = %d, want 404", rec.Code)
	}

	svc.reportErr = &upstream.Error{Provider: "stormglass", Status: 429, Err: upstream.ErrRateLimited}
	rec = doGet(t, handler, "/api/v1/spots/malibu/forecast")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("rate-limited status = %d, want 429", rec.Code)
	}

	svc.reportErr = errors.New("provider exploded")
	rec = doGet(t, handler, "/api/v1/spots/malibu/forecast")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("upstream failure status = %d, want 502", rec.Code)
	}
	var e apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if e.Code != http.StatusBadGateway || e.Error == "" {
		t.Errorf("error body = %+v", e)
	}
}

func TestGetDefaultForecast_FallsBack(t *testing.T) {
	svc := defaultFake()
	handler := newTestHandler(svc)

	rec := doGet(t, handler, "/api/v1/forecast")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastSpot != "malibu" {
		t.Errorf("served %q, want default spot", svc.lastSpot)
	}

	// Unknown spot parameter falls back rather than erroring.
	rec = doGet(t, handler, "/api/v1/forecast?spot=atlantis")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastSpot != "malibu" {
		t.Errorf("served %q, want default spot fallback", svc.lastSpot)
	}

	rec = doGet(t, handler, "/api/v1/forecast?spot=topanga")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastSpot != "topanga" {
		t.Errorf("served %q, want the named spot", svc.lastSpot)
	}
}

func TestGetOutlook(t *testing.T) {
	handler := newTestHandler(defaultFake())

	rec := doGet(t, handler, "/api/v1/spots/malibu/outlook")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		SpotID string            `json:"spot_id"`
		Days   []surf.OutlookDay `json:"days"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body.SpotID != "malibu" || len(body.Days) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestGetTide(t *testing.T) {
	handler := newTestHandler(defaultFake())

	rec := doGet(t, handler, "/api/v1/spots/malibu/tide")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		SpotID      string                    `json:"spot_id"`
		Predictions []upstream.TidePrediction `json:"predictions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body.SpotID != "malibu" || len(body.Predictions) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestHealth(t *testing.T) {
	rec := doGet(t, newTestHandler(defaultFake()), "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health = %+v", body)
	}
	if body["spots"] != float64(2) {
		t.Errorf("spots = %v, want 2", body["spots"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	rec := doGet(t, newTestHandler(defaultFake()), "/api/v1/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := doGet(t, newTestHandler(defaultFake()), "/api/v1/health")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doGet(t, newTestHandler(defaultFake()), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/spots", nil)
	rec := httptest.NewRecorder()
	newTestHandler(defaultFake()).ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
