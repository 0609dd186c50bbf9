package entity

import "image"

// InputImage декодированное изображение в исходном разрешении.
type InputImage struct {
	Pixels   image.Image // пиксели после декодирования, не изменяются
	Format   string      // формат, определённый декодером (jpeg, png, ...)
	Width    int
	Height   int
	Channels int
}

// InputTensor входной буфер сети в раскладке NCHW.
type InputTensor struct {
	Shape [4]int // N, C, H, W
	Data  []float32
}

// Width возвращает ширину тензора.
func (t *InputTensor) Width() int { return t.Shape[3] }

// Height возвращает высоту тензора.
func (t *InputTensor) Height() int { return t.Shape[2] }

// Channels возвращает число каналов.
func (t *InputTensor) Channels() int { return t.Shape[1] }

// Len возвращает ожидаемую длину Data для Shape.
func (t *InputTensor) Len() int {
	return t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3]
}

// AnnotatedImage итоговое закодированное изображение с разметкой.
type AnnotatedImage struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}
