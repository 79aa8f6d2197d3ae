package surf

import (
	"fmt"
	"math"
	"time"
)

// Sample is one hourly forecast timestep. Nil fields are unknown.
type Sample struct {
	Time       time.Time `json:"time"`
	WindMph    *float64  `json:"wind_mph"`
	WindDirDeg *float64  `json:"wind_dir_deg"`
	WaveFt     *float64  `json:"wave_ft"`
	PeriodS    *float64  `json:"period_s"`
}

// DayContext supplies fallback swell readings, the spot orientation, and
// the spot's timezone for window searches over wind-only hourly series.
// A nil Location means UTC.
type DayContext struct {
	WaveFt         *float64
	PeriodS        *float64
	BeachFacingDeg float64
	Location       *time.Location
}

// LongitudeLocation approximates a spot's timezone as a fixed whole-hour
// offset from UTC, one hour per 15 degrees of longitude. Coarse, but the
// only consumer is hour-of-day banding.
func LongitudeLocation(lon float64) *time.Location {
	offset := int(math.Round(lon/15)) * 3600
	return time.FixedZone(fmt.Sprintf("UTC%+d", offset/3600), offset)
}

// Window is a contiguous 2-hour session candidate bounded by two adjacent
// hourly samples. AvgScore is set by the score-based search; WindLabel by the
// wind-based fallback.
type Window struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	AvgScore  *float64  `json:"avg_score,omitempty"`
	WindLabel string    `json:"wind_label,omitempty"`
}

// BestWindowByScore scans adjacent sample pairs, scores each endpoint with the
// full model (substituting the day context where an hour lacks wave or period
// data), and returns the pair with the highest average score. Ties go to the
// earliest pair. Pairs where either endpoint cannot be scored are skipped, so
// missing data never wins by default. Returns nil for fewer than two samples
// or when no pair is scorable.
func BestWindowByScore(samples []Sample, ctx DayContext) *Window {
	if len(samples) < 2 {
		return nil
	}

	var best *Window
	var bestAvg float64

	for i := 0; i < len(samples)-1; i++ {
		a := hourScore(samples[i], ctx)
		b := hourScore(samples[i+1], ctx)
		if a == nil || b == nil {
			continue
		}

		avg := (*a + *b) / 2
		if best == nil || avg > bestAvg {
			bestAvg = avg
			rounded := Round1(avg)
			best = &Window{
				Start:    samples[i].Time,
				End:      samples[i+1].Time,
				AvgScore: &rounded,
			}
		}
	}
	return best
}

func hourScore(s Sample, ctx DayContext) *float64 {
	// An hour with no readings of its own is unscorable; the day-level
	// swell only fills gaps, it does not invent hours.
	if s.WindMph == nil && s.WindDirDeg == nil && s.WaveFt == nil && s.PeriodS == nil {
		return nil
	}

	wave := s.WaveFt
	if wave == nil {
		wave = ctx.WaveFt
	}
	period := s.PeriodS
	if period == nil {
		period = ctx.PeriodS
	}

	bonus := 0
	if s.WindDirDeg != nil {
		bonus = QualifyWind(*s.WindDirDeg, ctx.BeachFacingDeg).Bonus
	}

	return Score(ScoreInput{
		WindMph:      s.WindMph,
		WaveFt:       wave,
		PeriodS:      period,
		WindDirBonus: bonus,
	}).Score
}

// Dawn-patrol band and provisional-score weights for the wind-based fallback.
const (
	dawnStartHour  = 6
	dawnEndHour    = 8 // inclusive
	dawnBonus      = 0.3
	windPerMph     = 0.6
	fallbackDirCut = 0.2
)

// BestWindowByWind is the simpler fallback search: calmer wind wins. Each
// adjacent pair's average wind speed maps linearly to a provisional score,
// nudged by a swell bonus when the day's wave and period clear minimum
// thresholds, a dawn-patrol bonus for early-morning windows, and a fractional
// share of the wind-direction bonus. Same skip and tie-break rules as the
// score-based search.
func BestWindowByWind(samples []Sample, ctx DayContext) *Window {
	if len(samples) < 2 {
		return nil
	}

	swellBonus := 0.0
	if ctx.WaveFt != nil && ctx.PeriodS != nil {
		switch {
		case *ctx.WaveFt >= 2 && *ctx.PeriodS >= 8:
			swellBonus = 0.4
		case *ctx.WaveFt >= 1.5 && *ctx.PeriodS >= 7:
			swellBonus = 0.2
		}
	}

	loc := ctx.Location
	if loc == nil {
		loc = time.UTC
	}

	var best *Window
	var bestScore float64

	for i := 0; i < len(samples)-1; i++ {
		a, b := samples[i].WindMph, samples[i+1].WindMph
		if a == nil || b == nil {
			continue
		}
		avg := (*a + *b) / 2

		s := clamp(10-avg*windPerMph, 0, 10)
		s += swellBonus

		// Sample timestamps come in UTC; the dawn band is a local-time
		// notion, so convert before testing the hour.
		if h := samples[i].Time.In(loc).Hour(); h >= dawnStartHour && h <= dawnEndHour {
			s += dawnBonus
		}

		label := "—"
		if samples[i].WindDirDeg != nil {
			wq := QualifyWind(*samples[i].WindDirDeg, ctx.BeachFacingDeg)
			label = wq.Label
			s += float64(wq.Bonus) * fallbackDirCut
		}

		if best == nil || s > bestScore {
			bestScore = s
			best = &Window{
				Start:     samples[i].Time,
				End:       samples[i+1].Time,
				WindLabel: label,
			}
		}
	}
	return best
}
