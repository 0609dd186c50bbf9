//go:build !gocv
// +build !gocv

package vision

import (
	"fmt"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// newCaffeNetwork возвращает ошибку, если сборка без тега gocv.
func newCaffeNetwork(topologyPath, weightsPath string) (port.Network, error) {
	_ = topologyPath
	_ = weightsPath
	return nil, fmt.Errorf("%w: gocv build tag is not enabled", entity.ErrBackendUnavailable)
}
