package surf

import (
	"testing"
	"time"
)

func outlookSeries(start time.Time, daysN, hoursPerDay int, windMph float64, windDir float64) []Sample {
	var samples []Sample
	for d := 0; d < daysN; d++ {
		for h := 0; h < hoursPerDay; h++ {
			samples = append(samples, Sample{
				Time:       start.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour),
				WindMph:    ptr(windMph),
				WindDirDeg: ptr(windDir),
			})
		}
	}
	return samples
}

func TestBuildOutlook_GroupsByDate(t *testing.T) {
	start := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	ctx := DayContext{WaveFt: ptr(3), PeriodS: ptr(11), BeachFacingDeg: 90}
	samples := outlookSeries(start, 3, 4, 6, 270)

	out := BuildOutlook(samples, nil, ctx, 5)
	if len(out) != 3 {
		t.Fatalf("got %d days, want 3", len(out))
	}
	for i, want := range []string{"2026-03-14", "2026-03-15", "2026-03-16"} {
		if out[i].Date != want {
			t.Errorf("day %d date = %q, want %q", i, out[i].Date, want)
		}
		if out[i].BestScore == nil || out[i].WindowStart == nil || out[i].WindowEnd == nil {
			t.Errorf("day %d missing window: %+v", i, out[i])
		}
	}
	if got := *out[0].WindowStart; got != "06:00" {
		t.Errorf("window start = %q, want 06:00", got)
	}
}

func TestBuildOutlook_SortsUnorderedSeries(t *testing.T) {
	// Calm dawn hours arrive after a windy afternoon block. The bucket
	// must be re-ordered before the pair walk, or the calm window's
	// adjacency (and the window itself) is lost.
	start := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	ctx := DayContext{WaveFt: ptr(3), PeriodS: ptr(11), BeachFacingDeg: 90}
	samples := []Sample{
		{Time: start.Add(14 * time.Hour), WindMph: ptr(20.0), WindDirDeg: ptr(90.0)},
		{Time: start.Add(15 * time.Hour), WindMph: ptr(20.0), WindDirDeg: ptr(90.0)},
		{Time: start.Add(7 * time.Hour), WindMph: ptr(4.0), WindDirDeg: ptr(270.0)},
		{Time: start.Add(6 * time.Hour), WindMph: ptr(4.0), WindDirDeg: ptr(270.0)},
	}

	out := BuildOutlook(samples, nil, ctx, 5)
	if len(out) != 1 {
		t.Fatalf("got %d days, want 1", len(out))
	}
	if out[0].WindowStart == nil {
		t.Fatal("no window found")
	}
	if got := *out[0].WindowStart; got != "06:00" {
		t.Errorf("window start = %q, want calm 06:00", got)
	}
	if got := *out[0].WindowEnd; got != "07:00" {
		t.Errorf("window end = %q, want 07:00", got)
	}
}

func TestBuildOutlook_HorizonCap(t *testing.T) {
	start := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	ctx := DayContext{BeachFacingDeg: 90}
	samples := outlookSeries(start, 7, 3, 6, 270)

	out := BuildOutlook(samples, nil, ctx, 5)
	if len(out) != 5 {
		t.Fatalf("got %d days, want horizon cap of 5", len(out))
	}
	if out[4].Date != "2026-03-18" {
		t.Errorf("last date = %q, want 2026-03-18", out[4].Date)
	}
}

func TestBuildOutlook_EmptyDayStillListed(t *testing.T) {
	// The middle day has hourly records but no usable wind data. It must
	// still produce a record, with nil score and window fields.
	start := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	ctx := DayContext{WaveFt: ptr(3), PeriodS: ptr(11), BeachFacingDeg: 90}

	samples := outlookSeries(start, 1, 4, 6, 270)
	gap := start.AddDate(0, 0, 1)
	for h := 0; h < 4; h++ {
		samples = append(samples, Sample{Time: gap.Add(time.Duration(h) * time.Hour)})
	}
	samples = append(samples, outlookSeries(start.AddDate(0, 0, 2), 1, 4, 6, 270)...)

	out := BuildOutlook(samples, nil, ctx, 5)
	if len(out) != 3 {
		t.Fatalf("got %d days, want 3", len(out))
	}
	mid := out[1]
	if mid.Date != "2026-03-15" {
		t.Fatalf("middle date = %q", mid.Date)
	}
	if mid.BestScore != nil || mid.WindowStart != nil || mid.WindowEnd != nil {
		t.Errorf("empty day carried window data: %+v", mid)
	}
	if mid.WindMaxMph != nil {
		t.Errorf("empty day max wind = %v, want nil", *mid.WindMaxMph)
	}
}

func TestBuildOutlook_TempsJoinByDate(t *testing.T) {
	start := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	ctx := DayContext{BeachFacingDeg: 90}
	samples := outlookSeries(start, 2, 3, 6, 270)

	temps := []DayTemps{
		{Date: "2026-03-15", TempMaxF: ptr(71), TempMinF: ptr(55)},
		{Date: "2026-03-20", TempMaxF: ptr(90), TempMinF: ptr(70)}, // outside the series
	}
	out := BuildOutlook(samples, temps, ctx, 5)
	if len(out) != 2 {
		t.Fatalf("got %d days, want 2", len(out))
	}
	if out[0].TempMaxF != nil || out[0].TempMinF != nil {
		t.Errorf("day without temps got %+v", out[0])
	}
	if out[1].TempMaxF == nil || *out[1].TempMaxF != 71 {
		t.Errorf("temp max = %v, want 71", out[1].TempMaxF)
	}
	if out[1].TempMinF == nil || *out[1].TempMinF != 55 {
		t.Errorf("temp min = %v, want 55", out[1].TempMinF)
	}
}

func TestBuildOutlook_MaxWindSkipsMissing(t *testing.T) {
	start := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	ctx := DayContext{BeachFacingDeg: 90}
	samples := []Sample{
		{Time: start, WindMph: ptr(4)},
		{Time: start.Add(time.Hour)},
		{Time: start.Add(2 * time.Hour), WindMph: ptr(17)},
		{Time: start.Add(3 * time.Hour), WindMph: ptr(9)},
	}
	out := BuildOutlook(samples, nil, ctx, 1)
	if len(out) != 1 {
		t.Fatalf("got %d days, want 1", len(out))
	}
	if out[0].WindMaxMph == nil || *out[0].WindMaxMph != 17 {
		t.Errorf("max wind = %v, want 17", out[0].WindMaxMph)
	}
}

func TestBuildOutlook_Empty(t *testing.T) {
	if out := BuildOutlook(nil, nil, DayContext{}, 5); out != nil {
		t.Errorf("got %+v, want nil", out)
	}
	if out := BuildOutlook(outlookSeries(time.Now(), 1, 2, 5, 270), nil, DayContext{}, 0); out != nil {
		t.Errorf("zero horizon: got %+v, want nil", out)
	}
}
