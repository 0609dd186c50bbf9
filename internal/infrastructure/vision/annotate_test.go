package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"object-detector/internal/domain/entity"
)

func TestAnnotate_NoDetectionsMatchesPlainReencode(t *testing.T) {
	opts := DefaultOptions()
	src := solidImage(120, 80, color.NRGBA{R: 40, G: 90, B: 160, A: 255})
	img, err := DecodeImage(encodePNG(t, src), 0)
	require.NoError(t, err)

	out, err := NewAnnotator(opts).Annotate(img, nil)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", out.ContentType)

	want, err := EncodeJPEG(imaging.Clone(img.Pixels), opts.JPEGQuality)
	require.NoError(t, err)
	require.Equal(t, want, out.Data)

	decoded, err := DecodeImage(out.Data, 0)
	require.NoError(t, err)
	require.Equal(t, "jpeg", decoded.Format)
	require.Equal(t, 120, decoded.Width)
	require.Equal(t, 80, decoded.Height)
}

func TestAnnotate_DoesNotMutateSource(t *testing.T) {
	src := solidImage(60, 60, color.White)
	img := &entity.InputImage{Pixels: src, Width: 60, Height: 60, Channels: 3}

	dets := []entity.Detection{{ClassID: 8, Label: "cat", Confidence: 0.9, Box: image.Rect(10, 20, 50, 50)}}
	out, err := NewAnnotator(DefaultOptions()).Annotate(img, dets)
	require.NoError(t, err)
	require.NotEmpty(t, out.Data)
	require.Equal(t, 60, out.Width)

	require.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, src.NRGBAAt(10, 20))
}

func TestAnnotator_DrawBox(t *testing.T) {
	a := NewAnnotator(DefaultOptions())
	canvas := solidImage(40, 40, color.Black)
	green := color.NRGBA{G: 255, A: 255}
	black := color.NRGBA{A: 255}

	a.drawBox(canvas, image.Rect(5, 5, 30, 30))

	require.Equal(t, green, canvas.NRGBAAt(5, 5))
	require.Equal(t, green, canvas.NRGBAAt(30, 30))
	require.Equal(t, green, canvas.NRGBAAt(29, 17))
	require.Equal(t, green, canvas.NRGBAAt(17, 6))
	require.Equal(t, black, canvas.NRGBAAt(17, 17))
	require.Equal(t, black, canvas.NRGBAAt(31, 31))
	require.Equal(t, black, canvas.NRGBAAt(4, 4))
}

func TestAnnotator_DrawBoxClipsToCanvas(t *testing.T) {
	a := NewAnnotator(DefaultOptions())
	canvas := solidImage(20, 20, color.Black)

	require.NotPanics(t, func() {
		a.drawBox(canvas, image.Rect(0, 0, 19, 19))
	})
	require.Equal(t, color.NRGBA{G: 255, A: 255}, canvas.NRGBAAt(19, 19))
}

func TestAnnotator_LabelAtTopEdgeStaysOnCanvas(t *testing.T) {
	a := NewAnnotator(DefaultOptions())
	canvas := solidImage(100, 60, color.Black)

	face := a.newFace()
	defer face.Close()
	a.drawLabel(canvas, face, "dog: 0.99", image.Rect(0, 0, 90, 50))

	require.Positive(t, greenPixels(canvas))
}

func TestAnnotator_CyrillicLabels(t *testing.T) {
	a := NewAnnotator(DefaultOptions())
	require.NotNil(t, a.font)

	face := a.newFace()
	defer face.Close()
	for _, r := range "собака: 0.93" {
		_, ok := face.GlyphAdvance(r)
		require.True(t, ok, "no glyph for %q", r)
	}

	canvas := solidImage(160, 60, color.Black)
	a.drawLabel(canvas, face, "собака: 0.93", image.Rect(5, 30, 150, 55))
	require.Positive(t, greenPixels(canvas))
}

func greenPixels(img *image.NRGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).G > 0 {
				n++
			}
		}
	}
	return n
}
