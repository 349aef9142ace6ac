package signal

import (
	"math"
)

// TextureStats are first-order statistics of a grayscale crop.
type TextureStats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	Entropy  float64 `json:"entropy"`
}

// TextureStatistics computes mean, population variance, standard deviation
// and Shannon entropy (bits, 256-bin histogram) of pixels. Flat or
// low-entropy crops hint at a printed photo or a screen.
func TextureStatistics(pixels []uint8) TextureStats {
	if len(pixels) == 0 {
		return TextureStats{}
	}

	var histogram [256]int
	var sum float64
	for _, p := range pixels {
		histogram[p]++
		sum += float64(p)
	}

	n := float64(len(pixels))
	mean := sum / n

	var variance float64
	for _, p := range pixels {
		d := float64(p) - mean
		variance += d * d
	}
	variance /= n

	var entropy float64
	for _, count := range histogram {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}

	return TextureStats{
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Entropy:  entropy,
	}
}
