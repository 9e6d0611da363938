package stats

import "testing"

func TestEqualizedCDF(t *testing.T) {
	cdf := EqualizedCDF([]float64{5, 1, 1, 100})
	tests := []struct {
		v    float64
		want float64
	}{
		{0, 0},
		{1, 0.5},
		{4, 0.5},
		{5, 0.75},
		{100, 1},
		{1000, 1},
	}
	for _, tt := range tests {
		if got := cdf(tt.v); got != tt.want {
			t.Errorf("cdf(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}

	if EqualizedCDF(nil)(3) != 0 {
		t.Error("empty input should map everything to 0")
	}
}
