package entity

import "fmt"

// VOCLabels классы PASCAL VOC, на которых обучена эталонная MobileNet-SSD.
var VOCLabels = []string{
	"background", "aeroplane", "bicycle", "bird", "boat",
	"bottle", "bus", "car", "cat", "chair",
	"cow", "diningtable", "dog", "horse", "motorbike",
	"person", "pottedplant", "sheep", "sofa", "train",
	"tvmonitor",
}

// ClassLabels неизменяемый упорядоченный список имён классов.
// Индекс в списке совпадает с class id на выходе сети.
type ClassLabels struct {
	names []string
}

// NewClassLabels копирует имена, чтобы внешние изменения среза не влияли на метки.
func NewClassLabels(names []string) ClassLabels {
	cp := make([]string, len(names))
	copy(cp, names)
	return ClassLabels{names: cp}
}

// Len возвращает количество классов.
func (l ClassLabels) Len() int {
	return len(l.names)
}

// Valid сообщает, является ли id допустимым индексом.
func (l ClassLabels) Valid(id int) bool {
	return id >= 0 && id < len(l.names)
}

// Name возвращает имя класса или "class_<id>" для неизвестного id.
func (l ClassLabels) Name(id int) string {
	if !l.Valid(id) {
		return fmt.Sprintf("class_%d", id)
	}
	return l.names[id]
}

// Names возвращает копию списка.
func (l ClassLabels) Names() []string {
	cp := make([]string, len(l.names))
	copy(cp, l.names)
	return cp
}
