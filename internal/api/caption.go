package telegram

import (
	"fmt"
	"strings"

	"object-detector/internal/domain/entity"
)

// captionLimit ограничение Telegram на подпись к фото.
const captionLimit = 1024

// FormatCaption подпись к размеченному фото: число объектов и список
// "метка: уверенность" в порядке убывания уверенности.
func FormatCaption(detections []entity.Detection) string {
	if len(detections) == 0 {
		return msgNoObjects
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Найдено объектов: %d", len(detections))

	for i, d := range detections {
		line := "\n• " + d.Caption()
		rest := len(detections) - i
		tail := fmt.Sprintf("\n…и ещё %d", rest)
		// под хвост всегда остаётся место
		if b.Len()+len(line)+len(tail) > captionLimit {
			b.WriteString(tail)
			break
		}
		b.WriteString(line)
	}

	return b.String()
}

// SummarizeLabels сводка по классам: "2 × dog, 1 × person".
// Порядок по первому появлению в списке.
func SummarizeLabels(detections []entity.Detection) string {
	counts := make(map[string]int)
	var order []string
	for _, d := range detections {
		if counts[d.Label] == 0 {
			order = append(order, d.Label)
		}
		counts[d.Label]++
	}

	parts := make([]string, 0, len(order))
	for _, label := range order {
		parts = append(parts, fmt.Sprintf("%d × %s", counts[label], label))
	}
	return strings.Join(parts, ", ")
}
