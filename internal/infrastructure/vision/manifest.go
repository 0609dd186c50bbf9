package vision

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"object-detector/internal/domain/entity"
)

// Manifest описание топологии ONNX-модели: имена и формы входа и выхода.
//
//	input:
//	  name: data
//	  width: 300
//	  height: 300
//	output:
//	  name: detection_out
//	  detections: 100
type Manifest struct {
	Input struct {
		Name   string `yaml:"name"`
		Width  int    `yaml:"width"`
		Height int    `yaml:"height"`
	} `yaml:"input"`
	Output struct {
		Name       string `yaml:"name"`
		Detections int    `yaml:"detections"`
	} `yaml:"output"`
}

// LoadManifest читает и проверяет манифест.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %v", entity.ErrArtifactCorrupt, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest %s: %v", entity.ErrArtifactCorrupt, path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: manifest %s: %v", entity.ErrArtifactCorrupt, path, err)
	}

	return &m, nil
}

func (m *Manifest) validate() error {
	var errs []error
	if m.Input.Name == "" {
		errs = append(errs, errors.New("input name is empty"))
	}
	if m.Output.Name == "" {
		errs = append(errs, errors.New("output name is empty"))
	}
	if m.Input.Width <= 0 || m.Input.Height <= 0 {
		errs = append(errs, fmt.Errorf("input size %dx%d must be positive", m.Input.Width, m.Input.Height))
	}
	if m.Output.Detections <= 0 {
		errs = append(errs, fmt.Errorf("output detections %d must be positive", m.Output.Detections))
	}
	return errors.Join(errs...)
}
