package port

import "object-detector/internal/domain/entity"

// Network один проход сети по готовому тензору.
// Реализации бэкендов не обязаны быть реентерабельными.
type Network interface {
	// Forward возвращает сырые детекции в порядке выхода сети
	Forward(tensor *entity.InputTensor) ([]entity.RawDetection, error)

	// Close освобождает ресурсы бэкенда
	Close() error
}
