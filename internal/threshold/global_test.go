package threshold

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ironsheep/image-threshold/internal/imaging"
)

// newTestBuffer builds a buffer from row-major samples.
func newTestBuffer(t *testing.T, width, height int, samples ...uint8) *imaging.Buffer {
	t.Helper()
	buf, err := imaging.BufferFromSamples(width, height, samples)
	if err != nil {
		t.Fatalf("BufferFromSamples failed: %v", err)
	}
	return buf
}

// uniformBuffer builds a buffer where every sample equals v.
func uniformBuffer(width, height int, v uint8) *imaging.Buffer {
	buf := imaging.NewBuffer(width, height)
	for i := range buf.Pix {
		buf.Pix[i] = v
	}
	return buf
}

// randomBuffer builds a buffer of pseudo-random samples from a fixed seed.
func randomBuffer(width, height int, seed int64) *imaging.Buffer {
	rng := rand.New(rand.NewSource(seed))
	buf := imaging.NewBuffer(width, height)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(rng.Intn(256))
	}
	return buf
}

func TestGlobal_TwoClusters(t *testing.T) {
	buf := newTestBuffer(t, 6, 1, 10, 10, 10, 200, 200, 200)

	res, err := Global(buf, GlobalOptions{Epsilon: 1.0})
	if err != nil {
		t.Fatalf("Global failed: %v", err)
	}

	if math.Abs(res.Threshold-105) > 1.0 {
		t.Errorf("Threshold: got %.3f, want ~105", res.Threshold)
	}
	want := []uint8{0, 0, 0, 255, 255, 255}
	for i, v := range res.Image.Pix {
		if v != want[i] {
			t.Errorf("pixel %d: got %d, want %d", i, v, want[i])
		}
	}
}

func TestGlobalThreshold_Median(t *testing.T) {
	tests := []struct {
		name    string
		samples []uint8
		want    float64
	}{
		{"odd count", []uint8{1, 9, 5}, 5},
		{"even count", []uint8{10, 10, 200, 200}, 105},
		{"single", []uint8{42}, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := newTestBuffer(t, len(tt.samples), 1, tt.samples...)
			res, err := GlobalThreshold(buf, GlobalOptions{Epsilon: 1})
			if err != nil {
				t.Fatalf("GlobalThreshold failed: %v", err)
			}
			if res.Initial != tt.want {
				t.Errorf("Initial: got %v, want %v", res.Initial, tt.want)
			}
		})
	}
}

func TestGlobal_ConstantImage(t *testing.T) {
	// A constant image puts every pixel in the low class on the first step,
	// so the estimate halves once and then holds.
	tests := []struct {
		name      string
		value     uint8
		want      uint8
		threshold float64
	}{
		{"black", 0, 0, 0},
		{"mid gray", 128, 255, 64},
		{"white", 255, 255, 127.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := uniformBuffer(7, 5, tt.value)
			res, err := Global(buf, GlobalOptions{Epsilon: 1.0})
			if err != nil {
				t.Fatalf("Global failed: %v", err)
			}
			if res.Iterations > 2 {
				t.Errorf("Iterations: got %d, want <= 2", res.Iterations)
			}
			if res.Threshold != tt.threshold {
				t.Errorf("Threshold: got %v, want %v", res.Threshold, tt.threshold)
			}
			for i, v := range res.Image.Pix {
				if v != tt.want {
					t.Fatalf("pixel %d: got %d, want %d", i, v, tt.want)
				}
			}
		})
	}
}

func TestGlobal_ThresholdFromTerminatingStep(t *testing.T) {
	// With a large epsilon the first step terminates. The median is 128 but
	// the pixels must be classified against the refined estimate.
	buf := newTestBuffer(t, 3, 1, 0, 128, 130)

	res, err := Global(buf, GlobalOptions{Epsilon: 100})
	if err != nil {
		t.Fatalf("Global failed: %v", err)
	}
	if res.Iterations != 1 {
		t.Fatalf("Iterations: got %d, want 1", res.Iterations)
	}
	// low = {0,128} -> 64, high = {130} -> 130, tau_new = 97
	if res.Threshold != 97 {
		t.Errorf("Threshold: got %v, want 97", res.Threshold)
	}
	want := []uint8{0, 255, 255}
	for i, v := range res.Image.Pix {
		if v != want[i] {
			t.Errorf("pixel %d: got %d, want %d", i, v, want[i])
		}
	}
}

func TestGlobal_Idempotent(t *testing.T) {
	inputs := map[string]*imaging.Buffer{
		"constant": uniformBuffer(4, 4, 77),
		"random":   randomBuffer(16, 12, 1),
	}

	for name, buf := range inputs {
		t.Run(name, func(t *testing.T) {
			first, err := Global(buf, GlobalOptions{Epsilon: 0.5})
			if err != nil {
				t.Fatalf("Global failed: %v", err)
			}
			second, err := Global(first.Image, GlobalOptions{Epsilon: 0.5})
			if err != nil {
				t.Fatalf("second Global failed: %v", err)
			}
			for i := range first.Image.Pix {
				if first.Image.Pix[i] != second.Image.Pix[i] {
					t.Fatalf("pixel %d changed on re-binarization: %d -> %d",
						i, first.Image.Pix[i], second.Image.Pix[i])
				}
			}
		})
	}
}

func TestGlobal_DimensionsAndRange(t *testing.T) {
	sizes := []struct{ w, h int }{{1, 1}, {3, 7}, {64, 48}}

	for _, sz := range sizes {
		buf := randomBuffer(sz.w, sz.h, int64(sz.w*sz.h))
		res, err := Global(buf, GlobalOptions{Epsilon: 1})
		if err != nil {
			t.Fatalf("%dx%d: Global failed: %v", sz.w, sz.h, err)
		}
		if !res.Image.SameSize(buf) {
			t.Errorf("%dx%d: output is %dx%d", sz.w, sz.h, res.Image.Width, res.Image.Height)
		}
		if !res.Image.IsBinary() {
			t.Errorf("%dx%d: output is not binary", sz.w, sz.h)
		}
	}
}

func TestGlobal_DoesNotModifyInput(t *testing.T) {
	buf := randomBuffer(10, 10, 7)
	orig := buf.Clone()

	if _, err := Global(buf, GlobalOptions{Epsilon: 1}); err != nil {
		t.Fatalf("Global failed: %v", err)
	}
	for i := range buf.Pix {
		if buf.Pix[i] != orig.Pix[i] {
			t.Fatalf("input pixel %d modified", i)
		}
	}
}

func TestGlobal_Deterministic(t *testing.T) {
	buf := randomBuffer(20, 20, 3)
	a, err := Global(buf, GlobalOptions{Epsilon: 0.25})
	if err != nil {
		t.Fatalf("Global failed: %v", err)
	}
	b, err := Global(buf, GlobalOptions{Epsilon: 0.25})
	if err != nil {
		t.Fatalf("Global failed: %v", err)
	}
	if a.Threshold != b.Threshold || a.Iterations != b.Iterations {
		t.Errorf("results differ: %+v vs %+v", a, b)
	}
}

func TestGlobal_NotConverged(t *testing.T) {
	buf := newTestBuffer(t, 6, 1, 10, 10, 10, 200, 200, 200)

	// No distance is <= a negative tolerance, so only the cap stops the loop.
	_, err := Global(buf, GlobalOptions{Epsilon: -1, MaxIterations: 25})
	if !errors.Is(err, ErrNotConverged) {
		t.Fatalf("got %v, want ErrNotConverged", err)
	}
}

func TestGlobal_ZeroEpsilonConverges(t *testing.T) {
	buf := newTestBuffer(t, 6, 1, 10, 10, 10, 200, 200, 200)

	res, err := Global(buf, GlobalOptions{Epsilon: 0})
	if err != nil {
		t.Fatalf("Global failed: %v", err)
	}
	if res.Threshold != 105 {
		t.Errorf("Threshold: got %v, want 105", res.Threshold)
	}
}

func TestGlobal_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		buf  *imaging.Buffer
		opts GlobalOptions
		want error
	}{
		{"nil buffer", nil, GlobalOptions{Epsilon: 1}, imaging.ErrEmptyImage},
		{"empty buffer", imaging.NewBuffer(0, 0), GlobalOptions{Epsilon: 1}, imaging.ErrEmptyImage},
		{"short pix", &imaging.Buffer{Width: 2, Height: 2, Pix: []uint8{1}}, GlobalOptions{Epsilon: 1}, imaging.ErrEmptyImage},
		{"NaN epsilon", uniformBuffer(2, 2, 1), GlobalOptions{Epsilon: math.NaN()}, ErrInvalidEpsilon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Global(tt.buf, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBinarize_StrictInequality(t *testing.T) {
	buf := newTestBuffer(t, 4, 1, 99, 100, 101, 255)
	out := Binarize(buf, 100)

	want := []uint8{0, 0, 255, 255}
	for i, v := range out.Pix {
		if v != want[i] {
			t.Errorf("pixel %d: got %d, want %d", i, v, want[i])
		}
	}
}
