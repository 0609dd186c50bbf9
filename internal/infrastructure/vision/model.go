package vision

import (
	"errors"
	"fmt"
	"os"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// Backend численный бэкенд для прямого прохода.
type Backend string

const (
	BackendGoCV Backend = "gocv" // Caffe prototxt + caffemodel через OpenCV DNN
	BackendONNX Backend = "onnx" // YAML-манифест + .onnx через ONNX Runtime
)

// ModelConfig пути к артефактам и параметры бэкенда.
type ModelConfig struct {
	Backend      Backend
	TopologyPath string
	WeightsPath  string
	InputWidth   int
	InputHeight  int
	Labels       entity.ClassLabels

	// ConfidenceThreshold совпадает с входным фильтром постпроцессора.
	// Строки не выше порога всё равно отбрасываются, их class id не проверяется.
	ConfidenceThreshold float32

	ONNXLibraryPath string
	ONNXSessions    int
}

// Model загруженная сеть. После загрузки только читается и
// безопасна для одновременных вызовов Infer.
type Model struct {
	net     port.Network
	backend Backend
	shape   [4]int
	labels  entity.ClassLabels
	minConf float32
}

// Load проверяет артефакты и один раз загружает сеть.
func Load(cfg ModelConfig) (*Model, error) {
	if err := checkArtifact("topology", cfg.TopologyPath); err != nil {
		return nil, err
	}
	if err := checkArtifact("weights", cfg.WeightsPath); err != nil {
		return nil, err
	}

	var (
		net port.Network
		err error
	)
	switch cfg.Backend {
	case BackendGoCV:
		net, err = openCaffe(cfg)
	case BackendONNX:
		net, err = openONNX(cfg)
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return NewModel(net, cfg), nil
}

// NewModel оборачивает уже открытую сеть.
func NewModel(net port.Network, cfg ModelConfig) *Model {
	return &Model{
		net:     net,
		backend: cfg.Backend,
		shape:   [4]int{1, 3, cfg.InputHeight, cfg.InputWidth},
		labels:  cfg.Labels,
		minConf: cfg.ConfidenceThreshold,
	}
}

// Backend возвращает имя бэкенда.
func (m *Model) Backend() Backend {
	return m.backend
}

// InputShape ожидаемая форма входного тензора.
func (m *Model) InputShape() [4]int {
	return m.shape
}

// Infer выполняет один прямой проход. Модель не изменяется.
func (m *Model) Infer(tensor *entity.InputTensor) ([]entity.RawDetection, error) {
	if tensor == nil {
		return nil, fmt.Errorf("%w: nil tensor", entity.ErrInference)
	}
	if tensor.Shape != m.shape {
		return nil, fmt.Errorf("%w: tensor shape %v, model expects %v", entity.ErrInference, tensor.Shape, m.shape)
	}
	if len(tensor.Data) != tensor.Len() {
		return nil, fmt.Errorf("%w: tensor holds %d values, shape needs %d", entity.ErrInference, len(tensor.Data), tensor.Len())
	}

	raw, err := m.net.Forward(tensor)
	if err != nil {
		if errors.Is(err, entity.ErrInference) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", entity.ErrInference, err)
	}

	if m.labels.Len() > 0 {
		for _, r := range raw {
			if r.Confidence <= m.minConf {
				continue
			}
			if !m.labels.Valid(r.ClassID) {
				return nil, fmt.Errorf("%w: class id %d outside label set of %d", entity.ErrInference, r.ClassID, m.labels.Len())
			}
		}
	}

	return raw, nil
}

// Close освобождает сеть. Вызывается один раз при остановке процесса.
func (m *Model) Close() error {
	return m.net.Close()
}

func checkArtifact(kind, path string) error {
	if path == "" {
		return fmt.Errorf("%w: %s path is empty", entity.ErrArtifactNotFound, kind)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", entity.ErrArtifactNotFound, kind, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s %s is a directory", entity.ErrArtifactNotFound, kind, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s %s is empty", entity.ErrArtifactCorrupt, kind, path)
	}

	return nil
}

func openCaffe(cfg ModelConfig) (port.Network, error) {
	net, err := newCaffeNetwork(cfg.TopologyPath, cfg.WeightsPath)
	if err != nil {
		return nil, err
	}
	return NewSerialNetwork(net), nil
}

func openONNX(cfg ModelConfig) (port.Network, error) {
	manifest, err := LoadManifest(cfg.TopologyPath)
	if err != nil {
		return nil, err
	}
	if manifest.Input.Width != cfg.InputWidth || manifest.Input.Height != cfg.InputHeight {
		return nil, fmt.Errorf("%w: manifest input %dx%d, pipeline configured for %dx%d",
			entity.ErrArtifactCorrupt, manifest.Input.Width, manifest.Input.Height, cfg.InputWidth, cfg.InputHeight)
	}

	sessions := cfg.ONNXSessions
	if sessions <= 0 {
		sessions = 1
	}

	return NewNetworkPool(sessions, func() (port.Network, error) {
		return newONNXNetwork(manifest, cfg.WeightsPath, cfg.ONNXLibraryPath)
	})
}

// Проверка реализации интерфейса
var _ port.InferenceEngine = (*Model)(nil)
