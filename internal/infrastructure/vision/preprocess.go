package vision

import (
	"image"

	"github.com/disintegration/imaging"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// Preprocessor готовит вход сети: декодирование, ресайз, масштаб и вычитание среднего.
type Preprocessor struct {
	width     int
	height    int
	scale     float32
	mean      [3]float32
	order     ChannelOrder
	maxPixels int
}

// NewPreprocessor создаёт препроцессор с калибровкой из opts.
func NewPreprocessor(opts Options) *Preprocessor {
	return &Preprocessor{
		width:     opts.InputWidth,
		height:    opts.InputHeight,
		scale:     opts.Scale,
		mean:      opts.Mean,
		order:     opts.ChannelOrder,
		maxPixels: opts.MaxPixels,
	}
}

// Preprocess декодирует байты и строит тензор.
// Исходное изображение возвращается без ресайза для последующей разметки.
func (p *Preprocessor) Preprocess(raw []byte) (*entity.InputImage, *entity.InputTensor, error) {
	img, err := DecodeImage(raw, p.maxPixels)
	if err != nil {
		return nil, nil, err
	}

	return img, p.Tensor(img.Pixels), nil
}

// Tensor строит NCHW-тензор из произвольного изображения.
func (p *Preprocessor) Tensor(src image.Image) *entity.InputTensor {
	resized := imaging.Resize(src, p.width, p.height, imaging.Linear)

	plane := p.width * p.height
	data := make([]float32, 3*plane)

	// Индексы каналов NRGBA в порядке тензора
	src0, src1, src2 := 2, 1, 0
	if p.order == ChannelsRGB {
		src0, src2 = 0, 2
	}

	for y := 0; y < p.height; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < p.width; x++ {
			px := row[x*4 : x*4+4]
			i := y*p.width + x
			data[i] = (float32(px[src0]) - p.mean[0]) * p.scale
			data[plane+i] = (float32(px[src1]) - p.mean[1]) * p.scale
			data[2*plane+i] = (float32(px[src2]) - p.mean[2]) * p.scale
		}
	}

	return &entity.InputTensor{
		Shape: [4]int{1, 3, p.height, p.width},
		Data:  data,
	}
}

// Проверка реализации интерфейса
var _ port.Preprocessor = (*Preprocessor)(nil)
