//go:build onnx
// +build onnx

package vision

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime инициализирует окружение ONNX Runtime один раз на процесс.
func initRuntime(libraryPath string) error {
	ortOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// onnxNetwork сессия с привязанными входным и выходным тензорами.
// Сессия не реентерабельна: тензоры общие, поэтому экземпляры живут в NetworkPool.
type onnxNetwork struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// newONNXNetwork создаёт одну сессию по манифесту.
func newONNXNetwork(manifest *Manifest, weightsPath, libraryPath string) (port.Network, error) {
	if err := initRuntime(libraryPath); err != nil {
		return nil, fmt.Errorf("%w: onnxruntime: %v", entity.ErrBackendUnavailable, err)
	}

	inputShape := ort.NewShape(1, 3, int64(manifest.Input.Height), int64(manifest.Input.Width))
	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, 1, int64(manifest.Output.Detections), ssdRowSize)
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		weightsPath,
		[]string{manifest.Input.Name},
		[]string{manifest.Output.Name},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("%w: create session for %s: %v", entity.ErrArtifactCorrupt, weightsPath, err)
	}

	return &onnxNetwork{session: session, input: input, output: output}, nil
}

// Forward копирует тензор во входной буфер сессии и выполняет проход.
func (n *onnxNetwork) Forward(tensor *entity.InputTensor) ([]entity.RawDetection, error) {
	dst := n.input.GetData()
	if len(dst) != len(tensor.Data) {
		return nil, fmt.Errorf("%w: session input holds %d values, tensor has %d", entity.ErrInference, len(dst), len(tensor.Data))
	}
	copy(dst, tensor.Data)

	if err := n.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: session run: %v", entity.ErrInference, err)
	}

	src := n.output.GetData()
	out := make([]float32, len(src))
	copy(out, src)

	return DecodeSSDOutput(out)
}

// Close уничтожает сессию и тензоры.
func (n *onnxNetwork) Close() error {
	n.session.Destroy()
	n.input.Destroy()
	n.output.Destroy()
	return nil
}
