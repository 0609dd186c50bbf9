package vision

import (
	"image"
	"math"
	"sort"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

// SuppressionOptions пороги фильтрации и подавления.
// Входной порог и порог NMS независимы и намеренно не объединены.
type SuppressionOptions struct {
	ConfidenceThreshold float32
	IoUThreshold        float32
	KeepThreshold       float32
	Mode                NMSMode
	Labels              entity.ClassLabels
}

// Postprocessor применяет фильтр уверенности, пересчёт координат и NMS.
type Postprocessor struct {
	opts SuppressionOptions
}

// NewPostprocessor создаёт постпроцессор с порогами из opts.
func NewPostprocessor(opts Options) *Postprocessor {
	return &Postprocessor{opts: SuppressionOptions{
		ConfidenceThreshold: opts.ConfidenceThreshold,
		IoUThreshold:        opts.NMSIoUThreshold,
		KeepThreshold:       opts.NMSKeepThreshold,
		Mode:                opts.NMSMode,
		Labels:              opts.Labels,
	}}
}

// Postprocess см. функцию Postprocess.
func (p *Postprocessor) Postprocess(raw []entity.RawDetection, width, height int) []entity.Detection {
	return Postprocess(raw, width, height, p.opts)
}

// Postprocess отбрасывает детекции с уверенностью <= порога, переводит
// координаты в пиксели исходного изображения и запускает NMS.
// Результат упорядочен по убыванию уверенности.
func Postprocess(raw []entity.RawDetection, width, height int, opts SuppressionOptions) []entity.Detection {
	candidates := make([]entity.Detection, 0, len(raw))
	for _, r := range raw {
		if r.Confidence <= opts.ConfidenceThreshold {
			continue
		}
		candidates = append(candidates, entity.Detection{
			ClassID:    r.ClassID,
			Label:      opts.Labels.Name(r.ClassID),
			Confidence: r.Confidence,
			Box:        toPixels(r, width, height),
		})
	}

	if len(candidates) == 0 {
		return []entity.Detection{}
	}

	return Suppress(candidates, opts)
}

// Suppress жадный NMS: кандидаты идут от самой уверенной рамки,
// рамка отбрасывается, если её IoU с уже принятой больше IoUThreshold.
// В режиме NMSPerClass сравниваются только рамки одного класса.
// Повторный вызов на собственном результате ничего не меняет.
func Suppress(candidates []entity.Detection, opts SuppressionOptions) []entity.Detection {
	order := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if c.Confidence > opts.KeepThreshold {
			order = append(order, i)
		}
	}

	// Стабильная сортировка: при равной уверенности сохраняется порядок сети
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].Confidence > candidates[order[b]].Confidence
	})

	kept := make([]entity.Detection, 0, len(order))
	for _, idx := range order {
		c := candidates[idx]
		if overlapsKept(c, kept, opts) {
			continue
		}
		kept = append(kept, c)
	}

	return kept
}

func overlapsKept(c entity.Detection, kept []entity.Detection, opts SuppressionOptions) bool {
	for _, k := range kept {
		if opts.Mode == NMSPerClass && k.ClassID != c.ClassID {
			continue
		}
		if entity.IoU(k.Box, c.Box) > float64(opts.IoUThreshold) {
			return true
		}
	}
	return false
}

// toPixels переводит нормированную рамку в пиксели и прижимает её к холсту.
func toPixels(r entity.RawDetection, width, height int) image.Rectangle {
	x1 := scaleCoord(r.X1, width)
	y1 := scaleCoord(r.Y1, height)
	x2 := scaleCoord(r.X2, width)
	y2 := scaleCoord(r.Y2, height)
	return image.Rect(x1, y1, x2, y2)
}

func scaleCoord(v float32, size int) int {
	if size <= 0 {
		return 0
	}
	c := math.Round(float64(v) * float64(size))
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > float64(size-1) {
		return size - 1
	}
	return int(c)
}

// Проверка реализации интерфейса
var _ port.Postprocessor = (*Postprocessor)(nil)
