package vision

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"object-detector/internal/domain/entity"
)

func defaultSuppression() SuppressionOptions {
	opts := DefaultOptions()
	return NewPostprocessor(opts).opts
}

func TestPostprocess_ConfidenceFilterIsStrict(t *testing.T) {
	opts := defaultSuppression()
	opts.KeepThreshold = 0

	raw := []entity.RawDetection{
		{ClassID: 8, Confidence: 0.2, X1: 0.1, Y1: 0.1, X2: 0.2, Y2: 0.2},
		{ClassID: 8, Confidence: 0.21, X1: 0.5, Y1: 0.5, X2: 0.7, Y2: 0.7},
	}

	out := Postprocess(raw, 100, 100, opts)
	require.Len(t, out, 1)
	require.InDelta(t, 0.21, out[0].Confidence, 1e-6)
}

func TestPostprocess_RescaleAndClamp(t *testing.T) {
	opts := defaultSuppression()
	raw := []entity.RawDetection{
		{ClassID: 12, Confidence: 0.9, X1: -0.1, Y1: 0.25, X2: 1.2, Y2: 0.76},
	}

	out := Postprocess(raw, 200, 100, opts)
	require.Len(t, out, 1)
	require.Equal(t, image.Rect(0, 25, 199, 76), out[0].Box)
	require.Equal(t, "dog", out[0].Label)
	require.Equal(t, "dog: 0.90", out[0].Caption())
}

func TestPostprocess_EmptyAfterFilter(t *testing.T) {
	opts := defaultSuppression()

	out := Postprocess(nil, 100, 100, opts)
	require.NotNil(t, out)
	require.Empty(t, out)

	out = Postprocess([]entity.RawDetection{{ClassID: 1, Confidence: 0.01}}, 100, 100, opts)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestPostprocess_OverlappingDuplicatesKeepHighest(t *testing.T) {
	opts := defaultSuppression()
	raw := []entity.RawDetection{
		{ClassID: 12, Confidence: 0.6, X1: 0.126, Y1: 0.1, X2: 0.626, Y2: 0.6},
		{ClassID: 12, Confidence: 0.9, X1: 0.1, Y1: 0.1, X2: 0.6, Y2: 0.6},
	}

	a := toPixels(raw[0], 1000, 1000)
	b := toPixels(raw[1], 1000, 1000)
	require.InDelta(t, 0.9, entity.IoU(a, b), 0.01)

	out := Postprocess(raw, 1000, 1000, opts)
	require.Len(t, out, 1)
	require.InDelta(t, 0.9, out[0].Confidence, 1e-6)
}

func TestPostprocess_DuplicatesClampedToEdgeAreSuppressed(t *testing.T) {
	tests := []struct {
		name string
		raw  entity.RawDetection
		box  image.Rectangle
	}{
		{"past right edge", entity.RawDetection{ClassID: 12, X1: 1.05, Y1: 0.2, X2: 1.3, Y2: 0.6}, image.Rect(99, 20, 99, 60)},
		{"past bottom edge", entity.RawDetection{ClassID: 12, X1: 0.2, Y1: 1.1, X2: 0.6, Y2: 1.4}, image.Rect(20, 99, 60, 99)},
		{"before left edge", entity.RawDetection{ClassID: 12, X1: -0.4, Y1: 0.2, X2: -0.1, Y2: 0.6}, image.Rect(0, 20, 0, 60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := tt.raw, tt.raw
			first.Confidence, second.Confidence = 0.9, 0.8

			out := Postprocess([]entity.RawDetection{first, second}, 100, 100, defaultSuppression())
			require.Len(t, out, 1)
			require.InDelta(t, 0.9, out[0].Confidence, 1e-6)
			require.Equal(t, tt.box, out[0].Box)
		})
	}
}

func TestPostprocess_KeepThresholdIndependentOfEntryThreshold(t *testing.T) {
	opts := defaultSuppression()
	raw := []entity.RawDetection{
		{ClassID: 15, Confidence: 0.35, X1: 0.1, Y1: 0.1, X2: 0.3, Y2: 0.3},
		{ClassID: 15, Confidence: 0.55, X1: 0.6, Y1: 0.6, X2: 0.9, Y2: 0.9},
	}

	out := Postprocess(raw, 100, 100, opts)
	require.Len(t, out, 1)
	require.InDelta(t, 0.55, out[0].Confidence, 1e-6)

	opts.KeepThreshold = 0.3
	out = Postprocess(raw, 100, 100, opts)
	require.Len(t, out, 2)
}

func TestPostprocess_GlobalVersusPerClass(t *testing.T) {
	raw := []entity.RawDetection{
		{ClassID: 8, Confidence: 0.8, X1: 0.1, Y1: 0.1, X2: 0.5, Y2: 0.5},
		{ClassID: 12, Confidence: 0.7, X1: 0.1, Y1: 0.1, X2: 0.5, Y2: 0.52},
	}

	global := defaultSuppression()
	out := Postprocess(raw, 100, 100, global)
	require.Len(t, out, 1)
	require.Equal(t, "cat", out[0].Label)

	perClass := defaultSuppression()
	perClass.Mode = NMSPerClass
	out = Postprocess(raw, 100, 100, perClass)
	require.Len(t, out, 2)
	require.Equal(t, "cat", out[0].Label)
	require.Equal(t, "dog", out[1].Label)
}

func TestPostprocess_OrderedByConfidence(t *testing.T) {
	opts := defaultSuppression()
	raw := []entity.RawDetection{
		{ClassID: 1, Confidence: 0.6, X1: 0.0, Y1: 0.0, X2: 0.1, Y2: 0.1},
		{ClassID: 2, Confidence: 0.95, X1: 0.3, Y1: 0.3, X2: 0.4, Y2: 0.4},
		{ClassID: 3, Confidence: 0.75, X1: 0.6, Y1: 0.6, X2: 0.7, Y2: 0.7},
	}

	out := Postprocess(raw, 100, 100, opts)
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		require.GreaterOrEqual(t, out[i-1].Confidence, out[i].Confidence)
	}
}

// randomRaw генерирует воспроизводимый набор кандидатов вокруг нескольких объектов.
func randomRaw(seed int64, n int) []entity.RawDetection {
	rng := rand.New(rand.NewSource(seed))
	raw := make([]entity.RawDetection, 0, n)
	for i := 0; i < n; i++ {
		cx := float32(rng.Intn(4))*0.25 + 0.125 + float32(rng.NormFloat64())*0.02
		cy := float32(rng.Intn(2))*0.5 + 0.25 + float32(rng.NormFloat64())*0.02
		w := 0.1 + float32(rng.Float64())*0.1
		h := 0.1 + float32(rng.Float64())*0.1
		raw = append(raw, entity.RawDetection{
			ClassID:    1 + rng.Intn(20),
			Confidence: float32(rng.Float64()),
			X1:         cx - w/2,
			Y1:         cy - h/2,
			X2:         cx + w/2,
			Y2:         cy + h/2,
		})
	}
	return raw
}

func TestSuppress_Idempotent(t *testing.T) {
	for _, mode := range []NMSMode{NMSGlobal, NMSPerClass} {
		t.Run(string(mode), func(t *testing.T) {
			opts := defaultSuppression()
			opts.Mode = mode

			for seed := int64(1); seed <= 20; seed++ {
				once := Postprocess(randomRaw(seed, 200), 640, 480, opts)
				twice := Suppress(once, opts)
				require.Equal(t, once, twice, "seed %d", seed)
			}
		})
	}
}

func TestPostprocess_Deterministic(t *testing.T) {
	opts := defaultSuppression()
	raw := randomRaw(7, 300)

	require.Equal(t, Postprocess(raw, 640, 480, opts), Postprocess(raw, 640, 480, opts))
}

func TestPostprocess_RaisingThresholdOnlyShrinks(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		raw := randomRaw(seed, 200)
		opts := defaultSuppression()
		opts.KeepThreshold = 0

		prev := Postprocess(raw, 640, 480, opts)
		for _, th := range []float32{0.3, 0.45, 0.6, 0.75, 0.9} {
			opts.ConfidenceThreshold = th
			cur := Postprocess(raw, 640, 480, opts)
			require.LessOrEqual(t, len(cur), len(prev))
			for _, d := range cur {
				require.Contains(t, prev, d, "seed %d threshold %v", seed, th)
			}
			prev = cur
		}
	}
}

func TestSuppress_NoSurvivingPairAboveThreshold(t *testing.T) {
	opts := defaultSuppression()
	out := Postprocess(randomRaw(3, 500), 640, 480, opts)

	for i := range out {
		for j := i + 1; j < len(out); j++ {
			require.LessOrEqual(t, entity.IoU(out[i].Box, out[j].Box), float64(opts.IoUThreshold))
		}
	}
}
