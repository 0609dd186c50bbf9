package entity

import (
	"fmt"
	"image"
)

// RawDetection одна строка выхода сети, координаты нормированы в [0,1].
type RawDetection struct {
	ClassID    int
	Confidence float32
	X1, Y1     float32
	X2, Y2     float32
}

// Detection найденный объект в пиксельных координатах исходного изображения.
type Detection struct {
	ClassID    int
	Label      string
	Confidence float32
	Box        image.Rectangle // Min левый верхний угол, Max правый нижний (включительно)
}

// Caption формирует подпись вида "dog: 0.87".
func (d Detection) Caption() string {
	return fmt.Sprintf("%s: %.2f", d.Label, d.Confidence)
}

// IoU считает отношение площади пересечения к площади объединения двух рамок.
// Max рамки включительный, поэтому рамка шириной в один пиксель имеет ненулевую площадь.
func IoU(a, b image.Rectangle) float64 {
	a, b = a.Canon(), b.Canon()

	inter := image.Rectangle{
		Min: image.Pt(max(a.Min.X, b.Min.X), max(a.Min.Y, b.Min.Y)),
		Max: image.Pt(min(a.Max.X, b.Max.X), min(a.Max.Y, b.Max.Y)),
	}
	interArea := area(inter)
	if interArea == 0 {
		return 0
	}
	union := area(a) + area(b) - interArea
	return float64(interArea) / float64(union)
}

// area площадь рамки с включительными границами, 0 если рамка пуста.
func area(r image.Rectangle) int {
	if r.Max.X < r.Min.X || r.Max.Y < r.Min.Y {
		return 0
	}
	return (r.Dx() + 1) * (r.Dy() + 1)
}
