package entity

import "errors"

// Ошибки конвейера детекции. Конкретные причины оборачиваются через %w.
var (
	// ErrArtifactNotFound: файл топологии или весов отсутствует.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrArtifactCorrupt: файлы есть, но сеть из них не собирается.
	ErrArtifactCorrupt = errors.New("model artifact corrupt")
	// ErrBackendUnavailable: бинарник собран без нужного build tag.
	ErrBackendUnavailable = errors.New("inference backend unavailable")
	// ErrDecode: входные байты не являются изображением.
	ErrDecode = errors.New("image decode failed")
	// ErrInference: несовпадение формы тензора или выхода сети.
	ErrInference = errors.New("inference failed")
	// ErrEncode: не удалось закодировать результат.
	ErrEncode = errors.New("image encode failed")
)
