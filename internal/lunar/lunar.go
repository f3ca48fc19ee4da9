// Package lunar derives a symbolic moon phase from a calendar date.
//
// The calculation is a mean-synodic approximation: Julian Date from the
// civil date, days since the 2000-01-06 new moon, and the position inside
// the current cycle. It is not ephemeris-grade.
package lunar

import (
	"math"
	"time"
)

const (
	// SynodicMonth is the mean length of a lunation in days.
	SynodicMonth = 29.53058867
	// ReferenceNewMoonJD is the Julian Date of the new moon used as origin.
	ReferenceNewMoonJD = 2451550.1
)

type Phase string

const (
	NewMoon        Phase = "New Moon"
	WaxingCrescent Phase = "Waxing Crescent"
	FirstQuarter   Phase = "First Quarter"
	WaxingGibbous  Phase = "Waxing Gibbous"
	FullMoon       Phase = "Full Moon"
	WaningGibbous  Phase = "Waning Gibbous"
	LastQuarter    Phase = "Last Quarter"
	WaningCrescent Phase = "Waning Crescent"
)

// Phases lists every phase in cycle order starting from the new moon.
var Phases = []Phase{
	NewMoon, WaxingCrescent, FirstQuarter, WaxingGibbous,
	FullMoon, WaningGibbous, LastQuarter, WaningCrescent,
}

// Details is the derived lunar state of one calendar day.
type Details struct {
	Phase               Phase   `json:"phase"`
	IlluminationPercent int     `json:"illumination_percent"`
	Age                 float64 `json:"age"`
	Ratio               float64 `json:"ratio"`
}

// boundary is the exclusive upper edge of a phase interval.
type boundary struct {
	upper float64
	phase Phase
}

// Ratios at or above 0.97 wrap back to NewMoon.
var boundaries = []boundary{
	{0.03, NewMoon},
	{0.22, WaxingCrescent},
	{0.28, FirstQuarter},
	{0.47, WaxingGibbous},
	{0.53, FullMoon},
	{0.72, WaningGibbous},
	{0.78, LastQuarter},
	{0.97, WaningCrescent},
}

// Compute returns the lunar details for a proleptic Gregorian date.
func Compute(year int, month time.Month, day int) Details {
	daysSinceNew := JulianDate(year, month, day) - ReferenceNewMoonJD

	age := math.Mod(daysSinceNew, SynodicMonth)
	if age < 0 {
		age += SynodicMonth
	}
	// a tiny negative remainder can round up to exactly one cycle
	if age >= SynodicMonth {
		age = 0
	}

	ratio := age / SynodicMonth
	illumination := (1 - math.Cos(ratio*2*math.Pi)) / 2

	return Details{
		Phase:               PhaseForRatio(ratio),
		IlluminationPercent: int(math.Round(illumination * 100)),
		Age:                 age,
		Ratio:               ratio,
	}
}

// ForTime computes the details for the calendar date of t in t's location.
func ForTime(t time.Time) Details {
	return Compute(t.Year(), t.Month(), t.Day())
}

// PhaseFor is a shorthand for ForTime(t).Phase.
func PhaseFor(t time.Time) Phase {
	return ForTime(t).Phase
}

// PhaseForRatio maps a cycle ratio in [0,1) to its phase.
func PhaseForRatio(ratio float64) Phase {
	for _, b := range boundaries {
		if ratio < b.upper {
			return b.phase
		}
	}
	return NewMoon
}

// JulianDate converts a civil date at 00:00 UT to a Julian Date.
func JulianDate(year int, month time.Month, day int) float64 {
	y := float64(year)
	m := float64(month)
	if month < time.March {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + float64(day) + b - 1524.5
}
