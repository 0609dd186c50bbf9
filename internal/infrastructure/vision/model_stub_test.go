//go:build !gocv && !onnx
// +build !gocv,!onnx

package vision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"object-detector/internal/domain/entity"
)

func TestLoad_BackendNotCompiledIn(t *testing.T) {
	dir := t.TempDir()
	prototxt := writeFile(t, dir, "deploy.prototxt", "name: \"MobileNet-SSD\"")
	caffemodel := writeFile(t, dir, "weights.caffemodel", "binary")
	manifest := writeFile(t, dir, "manifest.yaml", validManifest)
	onnxModel := writeFile(t, dir, "model.onnx", "onnx")

	_, err := Load(testModelConfig(BackendGoCV, prototxt, caffemodel))
	require.ErrorIs(t, err, entity.ErrBackendUnavailable)

	_, err = Load(testModelConfig(BackendONNX, manifest, onnxModel))
	require.ErrorIs(t, err, entity.ErrBackendUnavailable)
}
