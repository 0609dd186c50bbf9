package vision

import (
	"encoding/binary"
	"fmt"
	"math"

	"object-detector/internal/domain/entity"
)

// ssdRowSize строка DetectionOutput: [image_id, class_id, confidence, x1, y1, x2, y2]
const ssdRowSize = 7

// DecodeSSDOutput разбирает плоский выход слоя DetectionOutput (форма 1x1xNx7).
// Строки с отрицательным image_id это заполнитель Caffe при пустом выходе.
func DecodeSSDOutput(data []float32) ([]entity.RawDetection, error) {
	if len(data)%ssdRowSize != 0 {
		return nil, fmt.Errorf("%w: output length %d is not a multiple of %d", entity.ErrInference, len(data), ssdRowSize)
	}

	rows := len(data) / ssdRowSize
	detections := make([]entity.RawDetection, 0, rows)
	for i := 0; i < rows; i++ {
		row := data[i*ssdRowSize : (i+1)*ssdRowSize]
		if row[0] < 0 {
			continue
		}
		detections = append(detections, entity.RawDetection{
			ClassID:    int(row[1]),
			Confidence: row[2],
			X1:         row[3],
			Y1:         row[4],
			X2:         row[5],
			Y2:         row[6],
		})
	}

	return detections, nil
}

// tensorBytes сериализует данные тензора в little-endian float32.
func tensorBytes(data []float32) []byte {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
