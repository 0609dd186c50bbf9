package entity

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b image.Rectangle
		want float64
	}{
		{"identical", image.Rect(0, 0, 9, 9), image.Rect(0, 0, 9, 9), 1},
		{"disjoint", image.Rect(0, 0, 9, 9), image.Rect(20, 20, 29, 29), 0},
		{"half overlap", image.Rect(0, 0, 9, 9), image.Rect(5, 0, 14, 9), 50.0 / 150.0},
		{"contained", image.Rect(0, 0, 9, 9), image.Rect(0, 0, 4, 9), 0.5},
		{"shared edge column", image.Rect(0, 0, 9, 9), image.Rect(9, 0, 18, 9), 10.0 / 190.0},
		{"single pixel inside", image.Rect(5, 5, 5, 5), image.Rect(0, 0, 9, 9), 0.01},
		{"identical flat column", image.Rect(99, 20, 99, 60), image.Rect(99, 20, 99, 60), 1},
		{"identical flat row", image.Rect(10, 0, 40, 0), image.Rect(10, 0, 40, 0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, IoU(tt.a, tt.b), 1e-9)
			require.InDelta(t, tt.want, IoU(tt.b, tt.a), 1e-9)
		})
	}
}

func TestDetectionCaption(t *testing.T) {
	d := Detection{Label: "dog", Confidence: 0.876}
	require.Equal(t, "dog: 0.88", d.Caption())
}
