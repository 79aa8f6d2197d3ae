package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenMeteo_FetchDailyTemps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("temperature_unit"); got != "fahrenheit" {
			t.Errorf("temperature_unit = %q", got)
		}
		if got := q.Get("forecast_days"); got != "5" {
			t.Errorf("forecast_days = %q", got)
		}
		fmt.Fprint(w, `{"daily": {
			"time": ["2026-03-14", "2026-03-15", "2026-03-16"],
			"temperature_2m_max": [68.1, 71.4, null],
			"temperature_2m_min": [52.0, 55.3, 51.8]
		}}`)
	}))
	defer srv.Close()

	c := NewOpenMeteoClient(WithOpenMeteoBaseURL(srv.URL))
	temps, err := c.FetchDailyTemps(context.Background(), 34.0, -118.5, 5)
	if err != nil {
		t.Fatalf("FetchDailyTemps: %v", err)
	}

	if len(temps) != 3 {
		t.Fatalf("got %d days, want 3", len(temps))
	}
	if temps[0].Date != "2026-03-14" {
		t.Errorf("date = %q", temps[0].Date)
	}
	if temps[1].TempMaxF == nil || *temps[1].TempMaxF != 71.4 {
		t.Errorf("max = %v, want 71.4", temps[1].TempMaxF)
	}
	// A null in the provider array stays unknown.
	if temps[2].TempMaxF != nil {
		t.Errorf("max = %v, want nil", *temps[2].TempMaxF)
	}
	if temps[2].TempMinF == nil || *temps[2].TempMinF != 51.8 {
		t.Errorf("min = %v, want 51.8", temps[2].TempMinF)
	}
}

func TestOpenMeteo_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewOpenMeteoClient(WithOpenMeteoBaseURL(srv.URL))
	_, err := c.FetchDailyTemps(context.Background(), 0, 0, 5)
	if err == nil {
		t.Fatal("want error")
	}
	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("error type = %T", err)
	}
	if uerr.Provider != "open-meteo" || uerr.Status != http.StatusBadGateway {
		t.Errorf("got %+v", uerr)
	}
}
