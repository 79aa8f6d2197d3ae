package surf

import "sort"

// DayTemps is one day's temperature range from the daily-temperature
// provider, keyed by calendar date (YYYY-MM-DD).
type DayTemps struct {
	Date     string   `json:"date"`
	TempMaxF *float64 `json:"temp_max_f"`
	TempMinF *float64 `json:"temp_min_f"`
}

// OutlookDay summarizes one calendar day: its best 2-hour window, the window's
// representative conditions, the day's peak wind, and the temperature range.
// A day with no scorable window still appears, with nil score and window
// fields, so callers can render "no data" instead of a gap.
type OutlookDay struct {
	Date        string   `json:"date"`
	BestScore   *float64 `json:"best_score"`
	WindowStart *string  `json:"window_start"`
	WindowEnd   *string  `json:"window_end"`
	WaveFt      *float64 `json:"wave_ft"`
	PeriodS     *float64 `json:"period_s"`
	WindMph     *float64 `json:"wind_mph"`
	WindMaxMph  *float64 `json:"wind_max_mph"`
	TempMinF    *float64 `json:"temp_min_f"`
	TempMaxF    *float64 `json:"temp_max_f"`
}

// BuildOutlook groups the hourly series by calendar date, finds each day's
// best window with the score-based search, and joins in daily temperatures by
// date. At most `days` records are produced, in chronological order.
func BuildOutlook(hourly []Sample, temps []DayTemps, ctx DayContext, days int) []OutlookDay {
	if days <= 0 || len(hourly) == 0 {
		return nil
	}

	tempsByDate := make(map[string]DayTemps, len(temps))
	for _, t := range temps {
		tempsByDate[t.Date] = t
	}

	// Preserve first-seen date order, capped at the horizon. Samples for
	// a date past the cap are dropped; samples for an included date are
	// kept wherever they appear in the series.
	var dates []string
	byDate := make(map[string][]Sample)
	for _, h := range hourly {
		key := h.Time.Format("2006-01-02")
		if _, seen := byDate[key]; !seen {
			if len(dates) == days {
				continue
			}
			dates = append(dates, key)
		}
		byDate[key] = append(byDate[key], h)
	}

	out := make([]OutlookDay, 0, len(dates))
	for _, date := range dates {
		day := byDate[date]
		// The window search walks adjacent pairs, so each bucket must be
		// in time order even when the provider's series is not.
		sort.Slice(day, func(i, j int) bool { return day[i].Time.Before(day[j].Time) })
		rec := OutlookDay{Date: date}

		if w := BestWindowByScore(day, ctx); w != nil {
			rec.BestScore = w.AvgScore
			start := w.Start.Format("15:04")
			end := w.End.Format("15:04")
			rec.WindowStart = &start
			rec.WindowEnd = &end

			// Representative conditions from the winning window's first hour.
			if first := sampleAt(day, w); first != nil {
				rec.WaveFt = coalesce(first.WaveFt, ctx.WaveFt)
				rec.PeriodS = coalesce(first.PeriodS, ctx.PeriodS)
				rec.WindMph = first.WindMph
			}
		}

		rec.WindMaxMph = maxWind(day)

		if t, ok := tempsByDate[date]; ok {
			rec.TempMinF = t.TempMinF
			rec.TempMaxF = t.TempMaxF
		}

		out = append(out, rec)
	}
	return out
}

func sampleAt(day []Sample, w *Window) *Sample {
	for i := range day {
		if day[i].Time.Equal(w.Start) {
			return &day[i]
		}
	}
	return nil
}

func maxWind(day []Sample) *float64 {
	var max *float64
	for _, s := range day {
		if s.WindMph == nil {
			continue
		}
		if max == nil || *s.WindMph > *max {
			v := *s.WindMph
			max = &v
		}
	}
	return max
}

func coalesce(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}
