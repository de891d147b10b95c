// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import "math"

func validMetric(m string) bool {
	switch m {
	case MetricCosine, MetricEuclidean, MetricDotProduct:
		return true
	}
	return false
}

func scorer(metric string) func(a, b []float32) float64 {
	switch metric {
	case MetricEuclidean:
		return func(a, b []float32) float64 { return -euclidean(a, b) }
	case MetricDotProduct:
		return dot
	default:
		return cosine
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func cosine(a, b []float32) float64 {
	var d, na, nb float64
	for i := range a {
		d += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return d / (math.Sqrt(na) * math.Sqrt(nb))
}

func euclidean(a, b []float32) float64 {
	var s float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		s += diff * diff
	}
	return math.Sqrt(s)
}
