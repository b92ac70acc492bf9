// Package testutil provides shared test infrastructure for the queue simulator:
// scripted service durations and float assertions used across sim/ test packages.
package testutil

import (
	"math"
	"testing"
)

// FixedServiceTimes returns scripted durations in order, then repeats the last one.
// It satisfies sim.ServiceTimeSource without importing sim.
type FixedServiceTimes struct {
	durations []float64
	next      int
	Calls     int // number of durations handed out
}

// NewFixedServiceTimes creates a source that yields durations in order.
// Panics if durations is empty.
func NewFixedServiceTimes(durations ...float64) *FixedServiceTimes {
	if len(durations) == 0 {
		panic("NewFixedServiceTimes: need at least one duration")
	}
	return &FixedServiceTimes{durations: durations}
}

// Next returns the next scripted duration.
func (f *FixedServiceTimes) Next() float64 {
	f.Calls++
	d := f.durations[f.next]
	if f.next < len(f.durations)-1 {
		f.next++
	}
	return d
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
