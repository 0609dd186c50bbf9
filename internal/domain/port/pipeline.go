package port

import "object-detector/internal/domain/entity"

// Preprocessor декодирует байты и строит входной тензор
type Preprocessor interface {
	Preprocess(raw []byte) (*entity.InputImage, *entity.InputTensor, error)
}

// InferenceEngine запускает загруженную модель
type InferenceEngine interface {
	Infer(tensor *entity.InputTensor) ([]entity.RawDetection, error)
}

// Postprocessor фильтрует детекции и убирает дубликаты
type Postprocessor interface {
	Postprocess(raw []entity.RawDetection, width, height int) []entity.Detection
}

// Annotator рисует рамки и кодирует результат
type Annotator interface {
	Annotate(img *entity.InputImage, detections []entity.Detection) (*entity.AnnotatedImage, error)
}
