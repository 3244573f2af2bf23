package clap

import "math"

// RMS returns the root-mean-square energy of a block of PCM16 samples.
//
// Callers must not feed empty blocks to a Detector. RMS returns 0 for an
// empty block rather than dividing by zero.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(samples)))
}
