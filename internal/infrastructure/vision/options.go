package vision

import (
	"errors"
	"fmt"

	"object-detector/internal/domain/entity"
)

// ChannelOrder порядок цветовых каналов во входном тензоре.
type ChannelOrder string

const (
	ChannelsBGR ChannelOrder = "bgr" // Caffe-модели обучены на BGR
	ChannelsRGB ChannelOrder = "rgb"
)

// NMSMode определяет, между какими рамками работает подавление.
type NMSMode string

const (
	NMSGlobal   NMSMode = "global"    // одна общая проходка по всем классам
	NMSPerClass NMSMode = "per_class" // рамки разных классов друг друга не подавляют
)

// Options все настраиваемые параметры конвейера.
// Значения фиксируются при создании конвейера и не меняются между запросами.
type Options struct {
	InputWidth   int
	InputHeight  int
	Scale        float32    // множитель после вычитания среднего
	Mean         [3]float32 // среднее по каналам в порядке ChannelOrder
	ChannelOrder ChannelOrder

	ConfidenceThreshold float32 // входной фильтр, строго больше
	NMSIoUThreshold     float32 // подавление при IoU строго больше
	NMSKeepThreshold    float32 // минимальная уверенность для участия в NMS
	NMSMode             NMSMode

	Labels      entity.ClassLabels
	JPEGQuality int
	MaxPixels   int // 0 без ограничения
}

// DefaultOptions калибровка эталонной MobileNet-SSD.
func DefaultOptions() Options {
	return Options{
		InputWidth:          300,
		InputHeight:         300,
		Scale:               0.007843,
		Mean:                [3]float32{127.5, 127.5, 127.5},
		ChannelOrder:        ChannelsBGR,
		ConfidenceThreshold: 0.2,
		NMSIoUThreshold:     0.4,
		NMSKeepThreshold:    0.5,
		NMSMode:             NMSGlobal,
		Labels:              entity.NewClassLabels(entity.VOCLabels),
		JPEGQuality:         90,
		MaxPixels:           40_000_000,
	}
}

// Validate проверяет согласованность параметров.
func (o Options) Validate() error {
	var errs []error

	if o.InputWidth <= 0 || o.InputHeight <= 0 {
		errs = append(errs, fmt.Errorf("input size must be positive, got %dx%d", o.InputWidth, o.InputHeight))
	}
	if o.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale must be positive, got %v", o.Scale))
	}
	if o.ChannelOrder != ChannelsBGR && o.ChannelOrder != ChannelsRGB {
		errs = append(errs, fmt.Errorf("unknown channel order %q", o.ChannelOrder))
	}
	if !inUnit(o.ConfidenceThreshold) {
		errs = append(errs, fmt.Errorf("confidence threshold %v outside [0,1]", o.ConfidenceThreshold))
	}
	if !inUnit(o.NMSIoUThreshold) {
		errs = append(errs, fmt.Errorf("nms iou threshold %v outside [0,1]", o.NMSIoUThreshold))
	}
	if !inUnit(o.NMSKeepThreshold) {
		errs = append(errs, fmt.Errorf("nms keep threshold %v outside [0,1]", o.NMSKeepThreshold))
	}
	if o.NMSMode != NMSGlobal && o.NMSMode != NMSPerClass {
		errs = append(errs, fmt.Errorf("unknown nms mode %q", o.NMSMode))
	}
	if o.Labels.Len() == 0 {
		errs = append(errs, errors.New("class label list is empty"))
	}
	if o.JPEGQuality < 1 || o.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality %d outside [1,100]", o.JPEGQuality))
	}
	if o.MaxPixels < 0 {
		errs = append(errs, fmt.Errorf("max pixels must not be negative, got %d", o.MaxPixels))
	}

	return errors.Join(errs...)
}

// TensorShape форма входного тензора для этих параметров.
func (o Options) TensorShape() [4]int {
	return [4]int{1, 3, o.InputHeight, o.InputWidth}
}

func inUnit(v float32) bool {
	return v >= 0 && v <= 1
}
