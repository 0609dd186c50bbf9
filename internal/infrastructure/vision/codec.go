package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	// Регистрация декодеров для image.Decode
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"object-detector/internal/domain/entity"
)

// DecodeImage превращает байты изображения в InputImage.
// maxPixels ограничивает размер до полного декодирования; 0 без ограничения.
func DecodeImage(data []byte, maxPixels int) (*entity.InputImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", entity.ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", entity.ErrDecode, cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: image %dx%d exceeds %d pixels", entity.ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecode, err)
	}

	b := img.Bounds()
	return &entity.InputImage{
		Pixels:   img,
		Format:   format,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: channelsOf(img),
	}, nil
}

// EncodeJPEG кодирует изображение в JPEG.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", entity.ErrEncode)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrEncode, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: %v", entity.ErrEncode, errors.New("encoder produced no output"))
	}

	return buf.Bytes(), nil
}

func channelsOf(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	default:
		return 3
	}
}
