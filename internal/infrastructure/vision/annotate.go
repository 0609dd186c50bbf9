package vision

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

const (
	boxThickness  = 2
	labelOffset   = 15 // подпись над верхней гранью рамки
	labelFontSize = 13
)

// Annotator рисует рамки и подписи и кодирует результат в JPEG.
// Шрифт Go Regular покрывает латиницу и кириллицу, так что метки
// классов можно задавать по-русски.
type Annotator struct {
	quality int
	color   color.Color
	font    *opentype.Font // nil, если шрифт не разобрался
}

// NewAnnotator создаёт аннотатор с зелёными рамками.
func NewAnnotator(opts Options) *Annotator {
	// встроенный шрифт; при ошибке разбора f == nil и подписи идут через basicfont
	f, _ := opentype.Parse(goregular.TTF)
	return &Annotator{
		quality: opts.JPEGQuality,
		color:   color.RGBA{G: 255, A: 255},
		font:    f,
	}
}

// newFace создаёт face на один вызов Annotate: opentype.Face
// не безопасен для конкурентного использования.
func (a *Annotator) newFace() font.Face {
	if a.font == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(a.font, &opentype.FaceOptions{
		Size:    labelFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// Annotate рисует детекции на копии изображения, оригинал не меняется.
func (a *Annotator) Annotate(img *entity.InputImage, detections []entity.Detection) (*entity.AnnotatedImage, error) {
	canvas := imaging.Clone(img.Pixels)

	if len(detections) > 0 {
		face := a.newFace()
		defer face.Close()

		for _, d := range detections {
			a.drawBox(canvas, d.Box)
			a.drawLabel(canvas, face, d.Caption(), d.Box)
		}
	}

	data, err := EncodeJPEG(canvas, a.quality)
	if err != nil {
		return nil, err
	}

	return &entity.AnnotatedImage{
		Data:        data,
		ContentType: "image/jpeg",
		Width:       canvas.Bounds().Dx(),
		Height:      canvas.Bounds().Dy(),
	}, nil
}

// drawBox рисует контур внутрь рамки; Max рамки включительный.
func (a *Annotator) drawBox(dst draw.Image, box image.Rectangle) {
	src := image.NewUniform(a.color)
	bounds := dst.Bounds()
	// верх, низ, лево, право
	edges := []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X+1, box.Min.Y+boxThickness),
		image.Rect(box.Min.X, box.Max.Y+1-boxThickness, box.Max.X+1, box.Max.Y+1),
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+boxThickness, box.Max.Y+1),
		image.Rect(box.Max.X+1-boxThickness, box.Min.Y, box.Max.X+1, box.Max.Y+1),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(bounds), src, image.Point{}, draw.Src)
	}
}

// drawLabel пишет подпись над рамкой, у верхнего края холста внутри рамки.
func (a *Annotator) drawLabel(dst draw.Image, face font.Face, text string, box image.Rectangle) {
	ascent := face.Metrics().Ascent.Ceil()
	y := box.Min.Y - labelOffset
	if y < ascent {
		y = box.Min.Y + boxThickness + ascent
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(a.color),
		Face: face,
		Dot:  fixed.P(box.Min.X+boxThickness, y),
	}
	d.DrawString(text)
}

// Проверка реализации интерфейса
var _ port.Annotator = (*Annotator)(nil)
