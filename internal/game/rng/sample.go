package rng

import "math"

// Range returns a value in [lo, hi).
//
// Precondition: lo <= hi.
func Range(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// InsideUnitCircle returns a point uniformly distributed over the unit disc.
//
// Postcondition: x*x + y*y <= 1.
func InsideUnitCircle(src Source) (x, y float64) {
	// sqrt keeps the density uniform over area rather than radius
	r := math.Sqrt(src.Float64())
	theta := 2 * math.Pi * src.Float64()
	return r * math.Cos(theta), r * math.Sin(theta)
}

// Fixed is a Source that replays a fixed sequence of values, wrapping around.
// Intended for tests.
type Fixed struct {
	Values []float64
	next   int
}

// Float64 returns the next value of the sequence, or 0 when Values is empty.
func (f *Fixed) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}
