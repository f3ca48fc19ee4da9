package lunar

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJulianDate(t *testing.T) {
	assert.Equal(t, 2451549.5, JulianDate(2000, time.January, 6))
	assert.Equal(t, 2451544.5, JulianDate(2000, time.January, 1))
	assert.Equal(t, 2299160.5, JulianDate(1582, time.October, 15))
}

func TestCompute_ReferenceDates(t *testing.T) {
	tests := []struct {
		name         string
		year         int
		month        time.Month
		day          int
		phase        Phase
		illumination int
	}{
		{"synodic origin", 2000, time.January, 6, NewMoon, 0},
		{"half a cycle later", 2000, time.January, 21, FullMoon, 100},
		{"eclipse new moon", 2024, time.April, 8, NewMoon, 1},
		{"pink full moon", 2024, time.April, 23, FullMoon, 100},
		{"gregorian reform", 1582, time.October, 15, WaningGibbous, 90},
		{"turn of 1900", 1900, time.January, 1, NewMoon, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Compute(tt.year, tt.month, tt.day)
			assert.Equal(t, tt.phase, d.Phase)
			assert.Equal(t, tt.illumination, d.IlluminationPercent)
		})
	}
}

func TestCompute_RangeOverManyDates(t *testing.T) {
	start := time.Date(-2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365*8000; i += 37 {
		day := start.AddDate(0, 0, i)
		d := ForTime(day)

		require.GreaterOrEqual(t, d.Ratio, 0.0, day.Format("2006-01-02"))
		require.Less(t, d.Ratio, 1.0, day.Format("2006-01-02"))
		require.GreaterOrEqual(t, d.Age, 0.0)
		require.Less(t, d.Age, SynodicMonth)
		require.GreaterOrEqual(t, d.IlluminationPercent, 0)
		require.LessOrEqual(t, d.IlluminationPercent, 100)
		require.Equal(t, PhaseForRatio(d.Ratio), d.Phase)
	}
}

func TestCompute_NegativeDaysAreNormalized(t *testing.T) {
	d := Compute(-500, time.March, 1)
	assert.InDelta(t, 3.6711, d.Age, 1e-3)
	assert.Equal(t, WaxingCrescent, d.Phase)
}

func TestPhaseForRatio_Boundaries(t *testing.T) {
	tests := []struct {
		ratio float64
		want  Phase
	}{
		{0, NewMoon},
		{0.0299, NewMoon},
		{0.03, WaxingCrescent},
		{0.2199, WaxingCrescent},
		{0.22, FirstQuarter},
		{0.28, WaxingGibbous},
		{0.47, FullMoon},
		{0.5, FullMoon},
		{0.53, WaningGibbous},
		{0.72, LastQuarter},
		{0.78, WaningCrescent},
		{0.9699, WaningCrescent},
		{0.97, NewMoon},
		{0.9999, NewMoon},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhaseForRatio(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestPhaseForRatio_Exhaustive(t *testing.T) {
	seen := map[Phase]int{}
	for i := 0; i < 10000; i++ {
		seen[PhaseForRatio(float64(i)/10000)]++
	}
	assert.Len(t, seen, len(Phases))
}

func TestIllumination_Symmetric(t *testing.T) {
	illum := func(r float64) float64 { return (1 - math.Cos(r*2*math.Pi)) / 2 }
	for r := 0.01; r < 0.5; r += 0.01 {
		assert.InDelta(t, illum(r), illum(1-r), 1e-9)
	}
	assert.InDelta(t, 0, illum(0), 1e-9)
	assert.InDelta(t, 1, illum(0.5), 1e-9)
}

func TestInfoFor(t *testing.T) {
	for _, p := range Phases {
		info := InfoFor(p)
		assert.NotEmpty(t, info.Name, p)
		assert.NotEmpty(t, info.Blessing, p)
		assert.NotEmpty(t, info.Tip, p)
	}
	assert.Equal(t, "Blue", InfoFor(Phase("Blue")).Name)
	assert.True(t, FullMoon.Bright())
	assert.False(t, NewMoon.Bright())
}
