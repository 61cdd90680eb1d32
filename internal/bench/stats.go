package bench

import "math"

type FloatStats struct {
	N    int
	Best float64
	Mean float64
	Std  float64
}

// CalcFloatStats returns the minimum, mean and sample standard deviation.
func CalcFloatStats(values []float64) FloatStats {
	s := FloatStats{N: len(values)}
	if s.N == 0 {
		return s
	}

	best := values[0]
	sum := 0.0
	for _, v := range values {
		if v < best {
			best = v
		}
		sum += v
	}
	mean := sum / float64(s.N)

	variance := 0.0
	if s.N >= 2 {
		for _, v := range values {
			d := v - mean
			variance += d * d
		}
		variance /= float64(s.N - 1)
	}

	s.Best = best
	s.Mean = mean
	s.Std = math.Sqrt(variance)
	return s
}
