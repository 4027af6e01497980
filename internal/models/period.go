package models

import (
	"fmt"
	"math"
)

// HoursPerDay converts MJD day spans to hours.
const HoursPerDay = 24.0

// Period is a half-open time window expressed in Modified Julian Date (UTC).
type Period struct {
	Start float64 `json:"start" yaml:"start"`
	Stop  float64 `json:"stop" yaml:"stop"`
}

// NewPeriod builds a period, rejecting empty, inverted or non-finite windows.
func NewPeriod(start, stop float64) (Period, error) {
	if math.IsNaN(start) || math.IsNaN(stop) || math.IsInf(start, 0) || math.IsInf(stop, 0) {
		return Period{}, fmt.Errorf("period bounds must be finite (start=%v stop=%v)", start, stop)
	}
	if start >= stop {
		return Period{}, fmt.Errorf("period start %v must be before stop %v", start, stop)
	}
	return Period{Start: start, Stop: stop}, nil
}

// Valid reports whether the period satisfies the start < stop invariant.
func (p Period) Valid() bool {
	_, err := NewPeriod(p.Start, p.Stop)
	return err == nil
}

// DurationDays returns stop - start in days.
func (p Period) DurationDays() float64 {
	return p.Stop - p.Start
}

// DurationHours returns the period length in hours.
func (p Period) DurationHours() float64 {
	return p.DurationDays() * HoursPerDay
}

// Within reports whether p lies inside outer, allowing tolerance days of slack on both ends.
func (p Period) Within(outer Period, tolerance float64) bool {
	return p.Start >= outer.Start-tolerance && p.Stop <= outer.Stop+tolerance
}
