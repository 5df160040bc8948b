package floatutils

import (
	"math"
	"testing"
)

func TestClip(t *testing.T) {
	if Clip(5.0, -1.0, 1.0) != 1.0 {
		t.Error("expected clip to the upper bound")
	}
	if Clip(-5.0, -1.0, 1.0) != -1.0 {
		t.Error("expected clip to the lower bound")
	}
	if Clip(0.5, -1.0, 1.0) != 0.5 {
		t.Error("expected in-range values unchanged")
	}
}

func TestArgMax(t *testing.T) {
	if ArgMax([]float64{1.0, 3.0, 2.0}) != 1 {
		t.Error("expected index of the maximum")
	}

	// Ties break toward the first maximal index
	if ArgMax([]float64{2.0, 1.0, 2.0}) != 0 {
		t.Error("expected ties to break toward the first index")
	}
}

func TestMean(t *testing.T) {
	if Mean(nil) != 0.0 {
		t.Error("expected mean of no values to be 0")
	}
	if math.Abs(Mean([]float64{1.0, 2.0, 3.0})-2.0) > 1e-12 {
		t.Error("expected mean 2")
	}
}
