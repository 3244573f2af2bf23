package clap

import (
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"empty block", nil, 0},
		{"silence", make([]int16, 512), 0},
		{"constant", []int16{3000, 3000, 3000, 3000}, 3000},
		{"alternating sign", []int16{-2000, 2000, -2000, 2000}, 2000},
		{"mixed", []int16{3, 4}, math.Sqrt(12.5)},
		{"full scale negative", []int16{math.MinInt16, math.MinInt16}, 32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.samples)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RMS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRMS_Deterministic(t *testing.T) {
	block := []int16{120, -340, 5600, -7800, 0, 32767}
	first := RMS(block)
	for i := 0; i < 10; i++ {
		if got := RMS(block); got != first {
			t.Fatalf("call %d: RMS() = %v, want %v", i, got, first)
		}
	}
}
