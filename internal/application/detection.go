package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// DetectionService прогоняет изображение через весь конвейер:
// декодирование, тензор, прямой проход, фильтр и NMS, разметка.
// Запрос обрабатывается синхронно в вызывающей горутине.
type DetectionService struct {
	preprocessor  port.Preprocessor
	engine        port.InferenceEngine
	postprocessor port.Postprocessor
	annotator     port.Annotator
	log           logrus.FieldLogger
}

// DetectionOutput результат обработки одного изображения.
type DetectionOutput struct {
	Detections []entity.Detection
	Annotated  *entity.AnnotatedImage
	RawCount   int // сколько детекций вернула сеть до фильтрации
	Width      int
	Height     int
}

// NewDetectionService создаёт сервис детекции.
func NewDetectionService(
	preprocessor port.Preprocessor,
	engine port.InferenceEngine,
	postprocessor port.Postprocessor,
	annotator port.Annotator,
	log logrus.FieldLogger,
) *DetectionService {
	return &DetectionService{
		preprocessor:  preprocessor,
		engine:        engine,
		postprocessor: postprocessor,
		annotator:     annotator,
		log:           log,
	}
}

// Detect возвращает найденные объекты и размеченное изображение.
// Частичных результатов нет: либо полный результат, либо ошибка.
func (s *DetectionService) Detect(ctx context.Context, imageData []byte) (*DetectionOutput, error) {
	// Сам конвейер не прерывается, контекст проверяется только на входе
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	img, tensor, err := s.preprocessor.Preprocess(imageData)
	if err != nil {
		s.log.WithError(err).WithField("bytes", len(imageData)).Warn("rejecting undecodable image")
		return nil, err
	}
	preprocessed := time.Now()

	raw, err := s.engine.Infer(tensor)
	if err != nil {
		s.log.WithError(err).WithField("shape", tensor.Shape).Error("forward pass failed")
		return nil, err
	}
	inferred := time.Now()

	detections := s.postprocessor.Postprocess(raw, img.Width, img.Height)
	postprocessed := time.Now()

	annotated, err := s.annotator.Annotate(img, detections)
	if err != nil {
		s.log.WithError(err).Error("annotated image encoding failed")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"width":       img.Width,
		"height":      img.Height,
		"raw":         len(raw),
		"kept":        len(detections),
		"preprocess":  preprocessed.Sub(start),
		"inference":   inferred.Sub(preprocessed),
		"postprocess": postprocessed.Sub(inferred),
		"annotate":    time.Since(postprocessed),
	}).Debug("image processed")

	return &DetectionOutput{
		Detections: detections,
		Annotated:  annotated,
		RawCount:   len(raw),
		Width:      img.Width,
		Height:     img.Height,
	}, nil
}

// Annotate байты изображения на входе, байты JPEG с разметкой на выходе.
func (s *DetectionService) Annotate(ctx context.Context, imageData []byte) ([]byte, error) {
	out, err := s.Detect(ctx, imageData)
	if err != nil {
		return nil, err
	}
	return out.Annotated.Data, nil
}

// IsClientError сообщает, вызвана ли ошибка плохим входом, а не сбоем конвейера.
func IsClientError(err error) bool {
	return errors.Is(err, entity.ErrDecode)
}
