package audioconv

import (
	"math"
	"testing"
)

func TestDownmixStereoAverages(t *testing.T) {
	in := []float32{1, 0, 0.5, -0.5, -1, -1}
	got := downmix(in, 2)
	want := []float32{0.5, 0, -1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDownmixMonoPassthrough(t *testing.T) {
	in := []float32{0.1, 0.2}
	got := downmix(in, 1)
	if &got[0] != &in[0] {
		t.Error("mono input was copied")
	}
}

func TestResampleLinearHalvesRate(t *testing.T) {
	in := []float32{0, 1, 2, 3, 4, 5, 6, 7}
	got := resampleLinear(in, 32000, 16000)
	want := []float32{0, 2, 4, 6}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResampleLinearSameRateIsNoOp(t *testing.T) {
	in := []float32{0.25, 0.75}
	got := resampleLinear(in, 16000, 16000)
	if &got[0] != &in[0] {
		t.Error("same-rate input was copied")
	}
}

func TestInt16sToFloat32Range(t *testing.T) {
	got := int16sToFloat32([]int16{-32768, 0, 32767})
	if got[0] != -1 {
		t.Errorf("min sample = %v", got[0])
	}
	if got[1] != 0 {
		t.Errorf("zero sample = %v", got[1])
	}
	if got[2] >= 1 || got[2] < 0.999 {
		t.Errorf("max sample = %v", got[2])
	}
}

func TestFinishCapsSamples(t *testing.T) {
	in := make([]float32, 100)
	got := finish(in, 1, 16000, Options{MaxSamples: 40})
	if len(got) != 40 {
		t.Errorf("len = %d, want 40", len(got))
	}
}
