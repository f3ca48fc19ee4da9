// Package journal holds the per-day record model and the pure upsert rules
// that fold new practices, sensory logs and dialogue artifacts into it.
//
// Every function here is replace-on-write: it returns a fresh slice and never
// mutates the entries it was given.
package journal

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"echo-moon/internal/lunar"
)

var (
	ErrEmptyObservation = errors.New("observation content is empty")
	ErrInvalidDate      = errors.New("invalid entry date")
)

// NewEntry creates an empty entry for date with its moon phase snapshot.
func NewEntry(date string) (DayEntry, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return DayEntry{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return DayEntry{
		Date:      date,
		MoonPhase: lunar.PhaseFor(day),
	}, nil
}

// Find returns the entry keyed by date.
func Find(entries []DayEntry, date string) (DayEntry, bool) {
	for _, e := range entries {
		if e.Date == date {
			return e, true
		}
	}
	return DayEntry{}, false
}

// AppendPractice appends s to the entry of date, creating the entry if needed.
func AppendPractice(entries []DayEntry, date string, s PracticeSession) ([]DayEntry, error) {
	return upsert(entries, date, func(e DayEntry) DayEntry {
		e.Practices = append(slices.Clone(e.Practices), s)
		return e
	})
}

// AppendSensoryLog appends log to the entry of date. Blank content is rejected.
func AppendSensoryLog(entries []DayEntry, date string, log SensoryLog) ([]DayEntry, error) {
	if strings.TrimSpace(log.Content) == "" {
		return nil, ErrEmptyObservation
	}
	return upsert(entries, date, func(e DayEntry) DayEntry {
		e.SensoryLogs = append(slices.Clone(e.SensoryLogs), log)
		return e
	})
}

// SetAwareness stores the reflection outcome of date.
func SetAwareness(entries []DayEntry, date string, a TodayAwareness) ([]DayEntry, error) {
	a.ChatHistory = slices.Clone(a.ChatHistory)
	return upsert(entries, date, func(e DayEntry) DayEntry {
		e.TodayAwareness = &a
		return e
	})
}

// SetSeed stores the seed planted on date for the following day.
func SetSeed(entries []DayEntry, date string, seed TomorrowSeed) ([]DayEntry, error) {
	return upsert(entries, date, func(e DayEntry) DayEntry {
		e.TomorrowSeed = &seed
		return e
	})
}

func upsert(entries []DayEntry, date string, apply func(DayEntry) DayEntry) ([]DayEntry, error) {
	out := slices.Clone(entries)

	for i, e := range out {
		if e.Date == date {
			out[i] = apply(e)
			return out, nil
		}
	}

	entry, err := NewEntry(date)
	if err != nil {
		return nil, err
	}
	return append(out, apply(entry)), nil
}
