package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/rodriseer/surfseer/internal/surf"
)

const (
	defaultStormglassURL = "https://api.stormglass.io/v2"
	marineParams         = "windSpeed,windDirection,waveHeight,wavePeriod,swellHeight,swellPeriod,waterTemperature"
	hourlyHorizon        = 120 * time.Hour

	metersToFeet = 3.28084
	mpsToMph     = 2.23694
)

// Conditions is one normalized snapshot: feet, seconds, mph, degrees
// true, degrees Fahrenheit. Nil means the provider had no reading.
type Conditions struct {
	Time       time.Time
	WaveFt     *float64
	PeriodS    *float64
	WindMph    *float64
	WindDirDeg *float64
	WaterTempF *float64
}

// Marine is a full marine fetch: the hour closest to now plus the
// normalized hourly series for the outlook horizon.
type Marine struct {
	Current Conditions
	Hourly  []surf.Sample
}

// StormglassClient fetches marine weather from the Stormglass point API
// behind a circuit breaker. Repeated failures open the breaker and
// short-circuit calls for a cooldown instead of hammering a provider
// that is already down.
type StormglassClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	clock   clockwork.Clock
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// StormglassOption configures a StormglassClient.
type StormglassOption func(*StormglassClient)

// WithStormglassBaseURL overrides the API base URL. For testing.
func WithStormglassBaseURL(u string) StormglassOption {
	return func(c *StormglassClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithStormglassHTTPClient overrides the HTTP client.
func WithStormglassHTTPClient(h *http.Client) StormglassOption {
	return func(c *StormglassClient) { c.client = h }
}

// WithStormglassClock overrides the clock used for "now". For testing.
func WithStormglassClock(clk clockwork.Clock) StormglassOption {
	return func(c *StormglassClient) { c.clock = clk }
}

// NewStormglassClient creates a client with a breaker that opens after 5
// consecutive failures and stays open for 60s.
func NewStormglassClient(apiKey string, logger *slog.Logger, opts ...StormglassOption) *StormglassClient {
	c := &StormglassClient{
		apiKey:  apiKey,
		baseURL: defaultStormglassURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		clock:   clockwork.NewRealClock(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "stormglass",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("breaker state change", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// stormglassHour mirrors the point API's per-hour shape: each parameter
// is a map of source name to value.
type stormglassHour struct {
	Time             string             `json:"time"`
	WaveHeight       map[string]float64 `json:"waveHeight"`
	WavePeriod       map[string]float64 `json:"wavePeriod"`
	SwellHeight      map[string]float64 `json:"swellHeight"`
	SwellPeriod      map[string]float64 `json:"swellPeriod"`
	WindSpeed        map[string]float64 `json:"windSpeed"`
	WindDirection    map[string]float64 `json:"windDirection"`
	WaterTemperature map[string]float64 `json:"waterTemperature"`
}

type stormglassResponse struct {
	Hours []stormglassHour `json:"hours"`
}

// FetchMarine requests the hourly marine series for a point and
// normalizes it: NOAA readings preferred over Stormglass's own model,
// SI units converted to surface units, and the hour nearest to now
// promoted to Current.
func (c *StormglassClient) FetchMarine(ctx context.Context, lat, lon float64) (*Marine, error) {
	now := c.clock.Now().UTC()
	start := now.Truncate(time.Hour)
	end := start.Add(hourlyHorizon)

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lng", fmt.Sprintf("%.4f", lon))
	q.Set("params", marineParams)
	q.Set("start", fmt.Sprintf("%d", start.Unix()))
	q.Set("end", fmt.Sprintf("%d", end.Unix()))

	reqURL := c.baseURL + "/weather/point?" + q.Encode()

	body, err := c.breaker.Execute(func() (any, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &Error{Provider: "stormglass", Err: err}
		}
		return nil, err
	}

	var resp stormglassResponse
	if err := json.Unmarshal(body.([]byte), &resp); err != nil {
		return nil, &Error{Provider: "stormglass", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(resp.Hours) == 0 {
		return nil, &Error{Provider: "stormglass", Err: fmt.Errorf("empty hourly series")}
	}

	return c.normalize(resp.Hours, now)
}

func (c *StormglassClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Error{Provider: "stormglass", Err: err}
	}
	req.Header.Set("Authorization", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: "stormglass", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Provider: "stormglass", Status: res.StatusCode, Err: ErrRateLimited}
	}
	if res.StatusCode != http.StatusOK {
		return nil, &Error{Provider: "stormglass", Status: res.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	return readAll(res.Body)
}

func (c *StormglassClient) normalize(hours []stormglassHour, now time.Time) (*Marine, error) {
	m := &Marine{Hourly: make([]surf.Sample, 0, len(hours))}

	closestIdx := -1
	closestGap := math.MaxFloat64

	for i, h := range hours {
		ts, err := time.Parse(time.RFC3339, h.Time)
		if err != nil {
			c.logger.Warn("skipping hour with bad timestamp", "provider", "stormglass", "time", h.Time)
			continue
		}

		// Wind-sea parameters are sparser than swell in NOAA's
		// coverage, so each falls back to its swell counterpart.
		s := surf.Sample{
			Time:       ts,
			WaveFt:     scaled(coalesce(sourceValue(h.WaveHeight), sourceValue(h.SwellHeight)), metersToFeet),
			PeriodS:    round1p(coalesce(sourceValue(h.WavePeriod), sourceValue(h.SwellPeriod))),
			WindMph:    scaled(sourceValue(h.WindSpeed), mpsToMph),
			WindDirDeg: sourceValue(h.WindDirection),
		}
		m.Hourly = append(m.Hourly, s)

		if gap := math.Abs(ts.Sub(now).Hours()); gap < closestGap {
			closestGap = gap
			closestIdx = i
			m.Current = Conditions{
				Time:       ts,
				WaveFt:     s.WaveFt,
				PeriodS:    s.PeriodS,
				WindMph:    s.WindMph,
				WindDirDeg: s.WindDirDeg,
				WaterTempF: celsiusToF(sourceValue(h.WaterTemperature)),
			}
		}
	}

	if closestIdx == -1 {
		return nil, &Error{Provider: "stormglass", Err: fmt.Errorf("no parseable hours")}
	}
	return m, nil
}

// sourceValue prefers the NOAA reading, falling back to Stormglass's own
// model, and reports nil when neither source covered the hour.
func sourceValue(bysrc map[string]float64) *float64 {
	if bysrc == nil {
		return nil
	}
	if v, ok := bysrc["noaa"]; ok {
		return &v
	}
	if v, ok := bysrc["sg"]; ok {
		return &v
	}
	return nil
}

func coalesce(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

func scaled(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	r := surf.Round1(*v * factor)
	return &r
}

func round1p(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := surf.Round1(*v)
	return &r
}

func celsiusToF(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := surf.Round1(*v*9/5 + 32)
	return &r
}
