// Package forecast assembles surf reports: it layers the in-process
// cache over the shared store, collapses concurrent refreshes for the
// same spot into one upstream fetch, and builds the scored report from
// the provider data.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/rodriseer/surfseer/internal/cache"
	"github.com/rodriseer/surfseer/internal/observability"
	"github.com/rodriseer/surfseer/internal/store"
	"github.com/rodriseer/surfseer/internal/surf"
	"github.com/rodriseer/surfseer/internal/upstream"
)

// ErrUnknownSpot is returned when a request names a spot that is not
// configured.
var ErrUnknownSpot = errors.New("unknown spot")

const outlookDays = 5

// Spot is one configured surf break.
type Spot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	FacingDeg   float64 `json:"facing_deg"`
	TideStation string  `json:"tide_station,omitempty"`
	Beginner    bool    `json:"beginner,omitempty"`
}

// Conditions is the current-hour snapshot inside a report.
type Conditions struct {
	WaveFt      *float64 `json:"wave_ft"`
	PeriodS     *float64 `json:"period_s"`
	WindMph     *float64 `json:"wind_mph"`
	WindDirDeg  *float64 `json:"wind_dir_deg"`
	WindCompass string   `json:"wind_compass,omitempty"`
	WindLabel   string   `json:"wind_label"`
	WaterTempF  *float64 `json:"water_temp_f"`
	Beginner    bool     `json:"beginner_friendly"`
}

// Report is one spot's full scored forecast.
type Report struct {
	SpotID     string            `json:"spot_id"`
	SpotName   string            `json:"spot_name"`
	FetchedAt  time.Time         `json:"fetched_at"`
	Conditions Conditions        `json:"conditions"`
	Score      *float64          `json:"score"`
	Status     string            `json:"status"`
	Take       string            `json:"take"`
	Breakdown  surf.Breakdown    `json:"breakdown"`
	BestWindow *surf.Window      `json:"best_window,omitempty"`
	Outlook    []surf.OutlookDay `json:"outlook,omitempty"`
}

// MarineFetcher provides the hourly marine series for a point.
type MarineFetcher interface {
	FetchMarine(ctx context.Context, lat, lon float64) (*upstream.Marine, error)
}

// TempsFetcher provides daily air temperature ranges for a point.
type TempsFetcher interface {
	FetchDailyTemps(ctx context.Context, lat, lon float64, days int) ([]surf.DayTemps, error)
}

// TideFetcher provides high/low tide predictions for a station.
type TideFetcher interface {
	FetchPredictions(ctx context.Context, station string) ([]upstream.TidePrediction, error)
}

// Service serves cached, scored surf reports.
type Service struct {
	spots []Spot
	byID  map[string]Spot

	marine MarineFetcher
	temps  TempsFetcher
	tides  TideFetcher

	mem     *cache.TTL[*Report]
	tideMem *cache.TTL[[]upstream.TidePrediction]
	shared  store.Store // nil when no shared cache is configured

	ttl     time.Duration
	clock   clockwork.Clock
	flight  singleflight.Group
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Options configures a Service.
type Options struct {
	Spots   []Spot
	Marine  MarineFetcher
	Temps   TempsFetcher
	Tides   TideFetcher
	Shared  store.Store
	TTL     time.Duration
	TideTTL time.Duration
	Clock   clockwork.Clock
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// NewService creates a Service. Spots must be non-empty; the first spot
// is the default for requests that don't name one.
func NewService(opts Options) (*Service, error) {
	if len(opts.Spots) == 0 {
		return nil, fmt.Errorf("at least one spot is required")
	}
	if opts.Marine == nil {
		return nil, fmt.Errorf("marine fetcher is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.TideTTL <= 0 {
		opts.TideTTL = 6 * time.Hour
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	byID := make(map[string]Spot, len(opts.Spots))
	for _, s := range opts.Spots {
		byID[s.ID] = s
	}

	return &Service{
		spots:   opts.Spots,
		byID:    byID,
		marine:  opts.Marine,
		temps:   opts.Temps,
		tides:   opts.Tides,
		mem:     cache.NewTTLWithClock[*Report](opts.TTL, opts.Clock),
		tideMem: cache.NewTTLWithClock[[]upstream.TidePrediction](opts.TideTTL, opts.Clock),
		shared:  opts.Shared,
		ttl:     opts.TTL,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}, nil
}

// Spots lists the configured spots in configuration order.
func (s *Service) Spots() []Spot {
	return s.spots
}

// Spot resolves a spot by id.
func (s *Service) Spot(id string) (Spot, error) {
	sp, ok := s.byID[id]
	if !ok {
		return Spot{}, fmt.Errorf("%w: %q", ErrUnknownSpot, id)
	}
	return sp, nil
}

// DefaultSpot returns the first configured spot.
func (s *Service) DefaultSpot() Spot {
	return s.spots[0]
}

// Report returns the spot's forecast, serving from the in-process cache,
// then the shared store, then a single-flight upstream refresh. force
// skips both cache reads but still rides the single-flight gate, so a
// burst of forced requests produces one refresh.
func (s *Service) Report(ctx context.Context, spotID string, force bool) (*Report, error) {
	spot, err := s.Spot(spotID)
	if err != nil {
		return nil, err
	}

	if !force {
		if rep, ok := s.mem.Get(spot.ID); ok {
			s.metrics.ObserveCacheLookup("memory", true)
			return rep, nil
		}
		s.metrics.ObserveCacheLookup("memory", false)

		if rep := s.fromShared(ctx, spot.ID); rep != nil {
			return rep, nil
		}
	}

	v, err, _ := s.flight.Do(spot.ID, func() (any, error) {
		// Another waiter, or a sibling process writing through the
		// shared store, may have refreshed while we queued on the gate.
		if !force {
			if rep, ok := s.mem.Get(spot.ID); ok {
				return rep, nil
			}
			if rep := s.fromShared(ctx, spot.ID); rep != nil {
				return rep, nil
			}
		}
		return s.refresh(ctx, spot)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

// RefreshAll forces a refresh of every configured spot, continuing past
// per-spot failures. The prefetch warmer calls this on its schedule.
func (s *Service) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, spot := range s.spots {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.Report(ctx, spot.ID, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fromShared reads the shared store and hydrates the in-process cache on
// a fresh hit. Store failures degrade to a miss.
func (s *Service) fromShared(ctx context.Context, spotID string) *Report {
	if s.shared == nil {
		return nil
	}

	rec, err := s.shared.GetReport(ctx, spotID)
	if err != nil {
		s.logger.Warn("shared cache read failed, continuing without it", "spot_id", spotID, "error", err)
		s.metrics.ObserveCacheLookup("store", false)
		return nil
	}
	now := s.clock.Now()
	if rec == nil || rec.Expired(now) {
		s.metrics.ObserveCacheLookup("store", false)
		return nil
	}

	var rep Report
	if err := json.Unmarshal(rec.Payload, &rep); err != nil {
		s.logger.Warn("discarding undecodable cached report", "spot_id", spotID, "error", err)
		s.metrics.ObserveCacheLookup("store", false)
		return nil
	}

	s.metrics.ObserveCacheLookup("store", true)
	s.mem.SetWithTTL(spotID, &rep, rec.ExpiresAt.Sub(now))
	return &rep
}

// refresh fetches upstream data, builds the report, and writes both
// cache layers. Errors propagate to every single-flight waiter and are
// never cached.
func (s *Service) refresh(ctx context.Context, spot Spot) (*Report, error) {
	start := s.clock.Now()

	marine, err := s.marine.FetchMarine(ctx, spot.Latitude, spot.Longitude)
	s.metrics.ObserveUpstream("stormglass", err)
	if err != nil {
		return nil, fmt.Errorf("fetching marine data for %s: %w", spot.ID, err)
	}

	// Daily temps enrich the outlook; losing them is not fatal.
	var temps []surf.DayTemps
	if s.temps != nil {
		temps, err = s.temps.FetchDailyTemps(ctx, spot.Latitude, spot.Longitude, outlookDays)
		s.metrics.ObserveUpstream("open-meteo", err)
		if err != nil {
			s.logger.Warn("daily temps unavailable", "spot_id", spot.ID, "error", err)
			temps = nil
		}
	}

	now := s.clock.Now().UTC()
	rep := buildReport(spot, marine, temps, now)

	s.mem.Set(spot.ID, rep)
	s.writeShared(ctx, rep, now)

	s.metrics.RefreshDuration.Observe(s.clock.Now().Sub(start).Seconds())
	s.logger.Info("refreshed report",
		"spot_id", spot.ID,
		"score", scoreForLog(rep.Score),
		"status", rep.Status,
	)
	return rep, nil
}

func (s *Service) writeShared(ctx context.Context, rep *Report, now time.Time) {
	if s.shared == nil {
		return
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		s.logger.Warn("encoding report for shared cache", "spot_id", rep.SpotID, "error", err)
		return
	}
	rec := &store.CachedReport{
		SpotID:    rep.SpotID,
		Payload:   payload,
		FetchedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.shared.PutReport(ctx, rec); err != nil {
		s.logger.Warn("shared cache write failed, continuing without it", "spot_id", rep.SpotID, "error", err)
	}
}

// Outlook returns the multi-day outlook portion of a spot's report.
// It goes through the same cache layers as Report.
func (s *Service) Outlook(ctx context.Context, spotID string, force bool) ([]surf.OutlookDay, error) {
	rep, err := s.Report(ctx, spotID, force)
	if err != nil {
		return nil, err
	}
	return rep.Outlook, nil
}

// Tide returns the spot's tide predictions through the tide cache and
// its own single-flight gate, keyed by station so spots sharing a
// station share the fetch.
func (s *Service) Tide(ctx context.Context, spotID string) ([]upstream.TidePrediction, error) {
	spot, err := s.Spot(spotID)
	if err != nil {
		return nil, err
	}
	if spot.TideStation == "" {
		return nil, fmt.Errorf("spot %q has no tide station", spot.ID)
	}
	if s.tides == nil {
		return nil, fmt.Errorf("no tide provider configured")
	}

	station := spot.TideStation
	if preds, ok := s.tideMem.Get(station); ok {
		s.metrics.ObserveCacheLookup("tide", true)
		return preds, nil
	}
	s.metrics.ObserveCacheLookup("tide", false)

	v, err, _ := s.flight.Do("tide:"+station, func() (any, error) {
		if preds, ok := s.tideMem.Get(station); ok {
			return preds, nil
		}
		preds, err := s.tides.FetchPredictions(ctx, station)
		s.metrics.ObserveUpstream("noaa-tides", err)
		if err != nil {
			return nil, fmt.Errorf("fetching tides for station %s: %w", station, err)
		}
		s.tideMem.Set(station, preds)
		return preds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]upstream.TidePrediction), nil
}

func buildReport(spot Spot, marine *upstream.Marine, temps []surf.DayTemps, now time.Time) *Report {
	cur := marine.Current

	cond := Conditions{
		WaveFt:     cur.WaveFt,
		PeriodS:    cur.PeriodS,
		WindMph:    cur.WindMph,
		WindDirDeg: cur.WindDirDeg,
		WaterTempF: cur.WaterTempF,
		Beginner:   surf.BeginnerFriendly(cur.WaveFt, cur.WindMph, cur.PeriodS),
	}

	var windBonus int
	if cur.WindDirDeg != nil {
		wq := surf.QualifyWind(*cur.WindDirDeg, spot.FacingDeg)
		cond.WindLabel = wq.Label
		cond.WindCompass = surf.DegToCompass(*cur.WindDirDeg)
		windBonus = wq.Bonus
	} else {
		cond.WindLabel = surf.QualifyWind(math.NaN(), spot.FacingDeg).Label
	}

	scored := surf.Score(surf.ScoreInput{
		WindMph:      cur.WindMph,
		WaveFt:       cur.WaveFt,
		PeriodS:      cur.PeriodS,
		WindDirBonus: windBonus,
	})

	dayCtx := surf.DayContext{
		WaveFt:         cur.WaveFt,
		PeriodS:        cur.PeriodS,
		BeachFacingDeg: spot.FacingDeg,
		Location:       surf.LongitudeLocation(spot.Longitude),
	}

	today := samplesWithin(marine.Hourly, now, 24*time.Hour)
	window := surf.BestWindowByScore(today, dayCtx)
	if window == nil {
		window = surf.BestWindowByWind(today, dayCtx)
	}

	return &Report{
		SpotID:     spot.ID,
		SpotName:   spot.Name,
		FetchedAt:  now,
		Conditions: cond,
		Score:      scored.Score,
		Status:     scored.Status,
		Take:       scored.Take,
		Breakdown:  scored.Breakdown,
		BestWindow: window,
		Outlook:    surf.BuildOutlook(marine.Hourly, temps, dayCtx, outlookDays),
	}
}

// samplesWithin keeps samples from one hour behind now up to the
// horizon, so the hour in progress still counts.
func samplesWithin(hourly []surf.Sample, now time.Time, horizon time.Duration) []surf.Sample {
	lo := now.Add(-time.Hour)
	hi := now.Add(horizon)
	var out []surf.Sample
	for _, h := range hourly {
		if h.Time.Before(lo) || h.Time.After(hi) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func scoreForLog(score *float64) any {
	if score == nil {
		return "none"
	}
	return *score
}
