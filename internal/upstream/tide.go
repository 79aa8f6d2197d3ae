package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rodriseer/surfseer/internal/surf"
)

const defaultTideURL = "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter"

// TidePrediction is one high or low tide event from NOAA CO-OPS,
// relative to MLLW in the station's local time.
type TidePrediction struct {
	Time     string  `json:"time"` // "2006-01-02 15:04" station local
	Type     string  `json:"type"` // "H" or "L"
	HeightFt float64 `json:"height_ft"`
}

// TideClient fetches high/low tide predictions from NOAA CO-OPS.
type TideClient struct {
	baseURL string
	client  *http.Client
	clock   clockwork.Clock
}

// TideOption configures a TideClient.
type TideOption func(*TideClient)

// WithTideBaseURL overrides the API base URL. For testing.
func WithTideBaseURL(u string) TideOption {
	return func(c *TideClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTideHTTPClient overrides the HTTP client.
func WithTideHTTPClient(h *http.Client) TideOption {
	return func(c *TideClient) { c.client = h }
}

// WithTideClock overrides the clock used for the request window. For testing.
func WithTideClock(clk clockwork.Clock) TideOption {
	return func(c *TideClient) { c.clock = clk }
}

// NewTideClient creates a tide-prediction client.
func NewTideClient(opts ...TideOption) *TideClient {
	c := &TideClient{
		baseURL: defaultTideURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tideResponse struct {
	Predictions []struct {
		T    string `json:"t"`
		V    string `json:"v"`
		Type string `json:"type"`
	} `json:"predictions"`
}

// FetchPredictions requests two days of high/low events for a station,
// starting today. Heights are feet above MLLW in English units.
func (c *TideClient) FetchPredictions(ctx context.Context, station string) ([]TidePrediction, error) {
	today := c.clock.Now().Format("20060102")

	q := url.Values{}
	q.Set("product", "predictions")
	q.Set("application", "surfseer")
	q.Set("begin_date", today)
	q.Set("range", "48")
	q.Set("datum", "MLLW")
	q.Set("station", station)
	q.Set("time_zone", "lst_ldt")
	q.Set("units", "english")
	q.Set("interval", "hilo")
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &Error{Provider: "noaa-tides", Err: err}
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: "noaa-tides", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &Error{Provider: "noaa-tides", Status: res.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	body, err := readAll(res.Body)
	if err != nil {
		return nil, &Error{Provider: "noaa-tides", Err: err}
	}

	var resp tideResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Provider: "noaa-tides", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(resp.Predictions) == 0 {
		return nil, &Error{Provider: "noaa-tides", Err: fmt.Errorf("no predictions for station %s", station)}
	}

	out := make([]TidePrediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		h, err := strconv.ParseFloat(p.V, 64)
		if err != nil {
			continue
		}
		out = append(out, TidePrediction{
			Time:     p.T,
			Type:     p.Type,
			HeightFt: surf.Round1(h),
		})
	}
	return out, nil
}
