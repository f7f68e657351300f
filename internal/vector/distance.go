package vector

import (
	"fmt"
	"math"
)

// Metric names the distance function an index is built with. A metric is
// fixed for the lifetime of an index and must not change across a rebuild.
type Metric string

const (
	// MetricCosine is cosine distance, 1 - cos(a, b), in [0, 2].
	MetricCosine Metric = "cosine"
	// MetricL2 is squared Euclidean distance.
	MetricL2 Metric = "l2"
)

// DistanceFunc returns the distance between two vectors of equal length.
type DistanceFunc func(a, b []float32) float32

// ParseMetric converts a config string into a Metric. Empty means cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", fmt.Errorf("unknown metric: %s (supported: cosine, l2)", s)
	}
}

// Func returns the distance function for m.
func (m Metric) Func() (DistanceFunc, error) {
	switch m {
	case MetricCosine:
		return CosineDistance, nil
	case MetricL2:
		return SquaredL2, nil
	default:
		return nil, fmt.Errorf("unknown metric: %s", m)
	}
}

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		return 0
	}
	return float32(d)
}

// SquaredL2 returns the squared Euclidean distance between a and b.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
