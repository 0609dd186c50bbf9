//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"runtime"

	"gocv.io/x/gocv"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// caffeNetwork сеть OpenCV DNN. SetInput и Forward меняют состояние gocv.Net,
// поэтому снаружи она всегда обёрнута в SerialNetwork.
type caffeNetwork struct {
	net gocv.Net
}

// newCaffeNetwork читает prototxt и caffemodel.
func newCaffeNetwork(topologyPath, weightsPath string) (port.Network, error) {
	net := gocv.ReadNetFromCaffe(topologyPath, weightsPath)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("%w: opencv could not build network from %s and %s",
			entity.ErrArtifactCorrupt, topologyPath, weightsPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &caffeNetwork{net: net}, nil
}

// Forward копирует тензор в blob, выполняет проход и разбирает выход DetectionOutput.
func (c *caffeNetwork) Forward(tensor *entity.InputTensor) ([]entity.RawDetection, error) {
	buf := tensorBytes(tensor.Data)
	sizes := []int{tensor.Shape[0], tensor.Shape[1], tensor.Shape[2], tensor.Shape[3]}

	blob, err := gocv.NewMatWithSizesFromBytes(sizes, gocv.MatTypeCV32F, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: build blob: %v", entity.ErrInference, err)
	}
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()
	runtime.KeepAlive(buf)

	if output.Empty() {
		return nil, fmt.Errorf("%w: empty network output", entity.ErrInference)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", entity.ErrInference, err)
	}

	// Данные принадлежат Mat и освобождаются вместе с ним
	out := make([]float32, len(data))
	copy(out, data)

	return DecodeSSDOutput(out)
}

// Close освобождает gocv.Net.
func (c *caffeNetwork) Close() error {
	return c.net.Close()
}
