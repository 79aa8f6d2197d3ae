package surf

import (
	"fmt"
	"math"
	"strings"
)

// ScoreInput holds the physical readings that feed one score. A nil field
// means the value is unknown; zero is a real reading and is never used as a
// stand-in for missing data.
type ScoreInput struct {
	WindMph      *float64
	WaveFt       *float64
	PeriodS      *float64
	WindDirBonus int // from QualifyWind, in [-2, 2]
}

// Breakdown decomposes a score into its additive terms so callers can explain
// "why this score" without recomputing.
type Breakdown struct {
	Base      float64 `json:"base"`
	Wave      float64 `json:"wave"`
	Period    float64 `json:"period"`
	WindSpeed float64 `json:"wind_speed"`
	WindDir   float64 `json:"wind_dir"`
	Raw       float64 `json:"raw"`   // pre-clamp sum
	Final     float64 `json:"final"` // clamped to [1, 10], one decimal
}

// Scored is the result of scoring one set of conditions. Score is nil when
// all three physical inputs are unknown; it is never silently defaulted to a
// neutral value.
type Scored struct {
	Score     *float64  `json:"score"`
	Status    string    `json:"status"`
	Take      string    `json:"take"`
	Breakdown Breakdown `json:"breakdown"`
}

const scoreBase = 5.0

// Tuned weights for the direction-aware wind model. The qualitative shape
// (sweet spots, heavier penalty for onshore wind at speed) is the contract;
// the exact magnitudes are calibration.
const (
	dirBonusWeight   = 0.75
	dirFactorStep    = 0.25
	unfavorablePen   = -1.0 // extra when direction is bad and wind is up
	favorableReward  = 0.5  // extra when direction is good and wind is light
	unfavorableSpeed = 15.0
	favorableSpeed   = 8.0
)

// Score computes a 0-decimal-hidden, 1-decimal-visible surf quality score on
// [1, 10] from wind, wave, and period readings plus a wind-direction bonus.
// Deterministic and pure: identical inputs, including the pattern of nil
// fields, always produce the identical result.
func Score(in ScoreInput) Scored {
	if in.WindMph == nil && in.WaveFt == nil && in.PeriodS == nil {
		return Scored{Score: nil, Status: "—", Take: "Loading conditions…"}
	}

	b := Breakdown{Base: scoreBase}
	b.Wave = waveAdjustment(in.WaveFt)
	b.Period = periodAdjustment(in.PeriodS)
	b.WindSpeed = windSpeedAdjustment(in.WindMph, in.WindDirBonus)
	b.WindDir = float64(in.WindDirBonus) * dirBonusWeight

	b.Raw = b.Base + b.Wave + b.Period + b.WindSpeed + b.WindDir
	b.Final = Round1(clamp(b.Raw, 1, 10))

	score := b.Final
	return Scored{
		Score:     &score,
		Status:    statusFor(score),
		Take:      takeFor(in),
		Breakdown: b,
	}
}

// waveAdjustment rewards the 2-6 ft sweet spot, tapers above it, and mildly
// penalizes macro surf that only suits advanced riders. The banding is
// strictly increasing up through the sweet spot and never increases beyond it.
func waveAdjustment(waveFt *float64) float64 {
	if waveFt == nil {
		return 0
	}
	w := *waveFt
	switch {
	case w < 1:
		return -2.0 // too small to ride
	case w < 2:
		return 0
	case w <= 6:
		return 2.0
	case w <= 10:
		return 1.0
	default:
		return -0.5
	}
}

// periodAdjustment penalizes short-period wind chop and rewards organized
// ground swell, tapering for very long period.
func periodAdjustment(periodS *float64) float64 {
	if periodS == nil {
		return 0
	}
	p := *periodS
	switch {
	case p < 6:
		return -1.5
	case p < 8:
		return -0.5
	case p < 10:
		return 0.5
	case p <= 13:
		return 1.5
	case p <= 16:
		return 1.0
	default:
		return 0.5
	}
}

// windSpeedAdjustment rewards calm and penalizes strong wind, with the
// penalty scaled by direction quality: onshore wind of a given speed hurts
// more than the same speed offshore.
func windSpeedAdjustment(windMph *float64, dirBonus int) float64 {
	if windMph == nil {
		return 0
	}
	w := *windMph

	// Onshore (bonus -2) scales penalties by 1.5; offshore (bonus +2) by 0.5.
	dirFactor := 1.0 - float64(dirBonus)*dirFactorStep

	var adj float64
	switch {
	case w <= 5:
		adj = 1.5
	case w <= 10:
		adj = 0.5
	case w <= 15:
		adj = -1.0 * dirFactor
	case w <= 20:
		adj = -2.0 * dirFactor
	default:
		adj = -3.0 * dirFactor
	}

	if dirBonus <= -1 && w > unfavorableSpeed {
		adj += unfavorablePen
	}
	if dirBonus >= 1 && w <= favorableSpeed {
		adj += favorableReward
	}
	return adj
}

func statusFor(score float64) string {
	switch {
	case score >= 8:
		return "Clean"
	case score >= 6:
		return "Rideable"
	case score >= 4:
		return "Meh"
	default:
		return "Poor"
	}
}

func takeFor(in ScoreInput) string {
	var parts []string
	switch {
	case in.WaveFt != nil && in.PeriodS != nil:
		parts = append(parts, fmt.Sprintf("%.1f ft @ %.0fs", *in.WaveFt, *in.PeriodS))
	case in.WaveFt != nil:
		parts = append(parts, fmt.Sprintf("%.1f ft", *in.WaveFt))
	}
	if in.WindMph != nil {
		parts = append(parts, fmt.Sprintf("%.0f mph wind", *in.WindMph))
	}
	if len(parts) == 0 {
		return "Current conditions loaded."
	}
	return "Current: " + strings.Join(parts, " • ") + "."
}

// BeginnerFriendly reports whether conditions suit a beginner: small
// manageable waves, light wind, and enough period for shape. Any
// unknown reading disqualifies.
func BeginnerFriendly(waveFt, windMph, periodS *float64) bool {
	if waveFt == nil || windMph == nil || periodS == nil {
		return false
	}
	return *waveFt >= 1 && *waveFt <= 3.5 && *windMph <= 15 && *periodS >= 6
}

// Round1 rounds to one decimal place.
func Round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func clamp(f, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, f))
}
