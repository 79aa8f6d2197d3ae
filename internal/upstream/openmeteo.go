package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rodriseer/surfseer/internal/surf"
)

const defaultOpenMeteoURL = "https://api.open-meteo.com/v1"

// OpenMeteoClient fetches daily air temperature ranges. Open-Meteo is
// keyless, so the client is just a base URL and an HTTP client.
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
}

// OpenMeteoOption configures an OpenMeteoClient.
type OpenMeteoOption func(*OpenMeteoClient)

// WithOpenMeteoBaseURL overrides the API base URL. For testing.
func WithOpenMeteoBaseURL(u string) OpenMeteoOption {
	return func(c *OpenMeteoClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithOpenMeteoHTTPClient overrides the HTTP client.
func WithOpenMeteoHTTPClient(h *http.Client) OpenMeteoOption {
	return func(c *OpenMeteoClient) { c.client = h }
}

// NewOpenMeteoClient creates a daily-temperature client.
func NewOpenMeteoClient(opts ...OpenMeteoOption) *OpenMeteoClient {
	c := &OpenMeteoClient{
		baseURL: defaultOpenMeteoURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type openMeteoResponse struct {
	Daily struct {
		Time    []string   `json:"time"`
		TempMax []*float64 `json:"temperature_2m_max"`
		TempMin []*float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

// FetchDailyTemps requests up to `days` days of high/low air temperature
// in Fahrenheit for a point.
func (c *OpenMeteoClient) FetchDailyTemps(ctx context.Context, lat, lon float64, days int) ([]surf.DayTemps, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("daily", "temperature_2m_max,temperature_2m_min")
	q.Set("temperature_unit", "fahrenheit")
	q.Set("forecast_days", fmt.Sprintf("%d", days))
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, &Error{Provider: "open-meteo", Err: err}
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: "open-meteo", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Provider: "open-meteo", Status: res.StatusCode, Err: ErrRateLimited}
	}
	if res.StatusCode != http.StatusOK {
		return nil, &Error{Provider: "open-meteo", Status: res.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	body, err := readAll(res.Body)
	if err != nil {
		return nil, &Error{Provider: "open-meteo", Err: err}
	}

	var resp openMeteoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Provider: "open-meteo", Err: fmt.Errorf("decoding response: %w", err)}
	}

	temps := make([]surf.DayTemps, 0, len(resp.Daily.Time))
	for i, date := range resp.Daily.Time {
		dt := surf.DayTemps{Date: date}
		if i < len(resp.Daily.TempMax) {
			dt.TempMaxF = resp.Daily.TempMax[i]
		}
		if i < len(resp.Daily.TempMin) {
			dt.TempMinF = resp.Daily.TempMin[i]
		}
		temps = append(temps, dt)
	}
	return temps, nil
}
