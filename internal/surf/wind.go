package surf

import "math"

// WindQuality classifies a wind direction relative to the direction a beach
// faces. Offshore wind blows from land toward the sea and grooms wave faces;
// onshore wind blows from the sea and chops them up.
type WindQuality struct {
	Label string `json:"label"`
	Bonus int    `json:"bonus"`
}

// Bucket boundaries are angular separation (degrees) from the perfect
// offshore bearing.
const (
	offshoreMax = 35
	sideOffMax  = 70
	crossMax    = 110
	sideOnMax   = 145
)

// QualifyWind maps the direction wind blows FROM and the compass bearing the
// beach faces to a qualitative label and a scoring bonus in [-2, 2].
// Non-finite input yields the unknown sentinel ("—", 0).
func QualifyWind(windFromDeg, beachFacingDeg float64) WindQuality {
	if !isFinite(windFromDeg) || !isFinite(beachFacingDeg) {
		return WindQuality{Label: "—", Bonus: 0}
	}

	// Wind is perfectly offshore when it comes from directly behind the beach.
	offshoreFrom := math.Mod(beachFacingDeg+180, 360)
	diff := angleDiff(windFromDeg, offshoreFrom)

	switch {
	case diff <= offshoreMax:
		return WindQuality{Label: "Offshore", Bonus: 2}
	case diff <= sideOffMax:
		return WindQuality{Label: "Side-off", Bonus: 1}
	case diff <= crossMax:
		return WindQuality{Label: "Cross", Bonus: 0}
	case diff <= sideOnMax:
		return WindQuality{Label: "Side-on", Bonus: -1}
	default:
		return WindQuality{Label: "Onshore", Bonus: -2}
	}
}

// angleDiff returns the shortest-arc separation between two bearings,
// normalized to [0, 180]. Handles wraparound at 0/360.
func angleDiff(a, b float64) float64 {
	return math.Abs(math.Mod(a-b+540, 360) - 180)
}

// DegToCompass converts a bearing to one of the eight principal compass
// points. Non-finite input yields "—".
func DegToCompass(deg float64) string {
	if !isFinite(deg) {
		return "—"
	}
	dirs := [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	deg = math.Mod(math.Mod(deg, 360)+360, 360)
	i := int(math.Round(deg/45)) % 8
	return dirs[i]
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
