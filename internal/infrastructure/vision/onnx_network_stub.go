//go:build !onnx
// +build !onnx

package vision

import (
	"fmt"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// newONNXNetwork возвращает ошибку, если сборка без тега onnx.
func newONNXNetwork(manifest *Manifest, weightsPath, libraryPath string) (port.Network, error) {
	_ = manifest
	_ = weightsPath
	_ = libraryPath
	return nil, fmt.Errorf("%w: onnx build tag is not enabled", entity.ErrBackendUnavailable)
}
