// internal/session/stats.go
package session

import "math"

// Stats are running statistics of inter-sample intervals in milliseconds,
// updated incrementally (Welford). No interval history is kept.
type Stats struct {
	Count uint64
	Mean  float64
	Min   float64
	Max   float64
	m2    float64
}

// Add records one interval.
func (s *Stats) Add(x float64) {
	s.Count++
	if s.Count == 1 {
		s.Mean, s.Min, s.Max, s.m2 = x, x, x, 0
		return
	}
	d := x - s.Mean
	s.Mean += d / float64(s.Count)
	s.m2 += d * (x - s.Mean)
	if x < s.Min {
		s.Min = x
	}
	if x > s.Max {
		s.Max = x
	}
}

// Variance is the sample variance; zero with fewer than two intervals.
func (s Stats) Variance() float64 {
	if s.Count < 2 {
		return 0
	}
	return s.m2 / float64(s.Count-1)
}

func (s Stats) StdDev() float64 { return math.Sqrt(s.Variance()) }
