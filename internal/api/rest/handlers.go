package rest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	app "object-detector/internal/application"
	"object-detector/internal/domain/entity"
)

type boxResponse struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type detectionResponse struct {
	ClassID    int         `json:"class_id"`
	Label      string      `json:"label"`
	Confidence float32     `json:"confidence"`
	Box        boxResponse `json:"box"`
}

type detectionsResponse struct {
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Count      int                 `json:"count"`
	Detections []detectionResponse `json:"detections"`
}

type healthResponse struct {
	Status  string      `json:"status"`
	Backend string      `json:"backend"`
	Uptime  string      `json:"uptime"`
	Users   *int        `json:"bot_users,omitempty"`
	System  interface{} `json:"system,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errEmptyBody = errors.New("request body is empty")

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	out, ok := s.run(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", out.Annotated.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Annotated.Data)))
	w.Header().Set("X-Detections-Count", strconv.Itoa(len(out.Detections)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Annotated.Data); err != nil {
		s.log.WithError(err).Debug("write annotated image")
	}
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	out, ok := s.run(w, r)
	if !ok {
		return
	}

	resp := detectionsResponse{
		Width:      out.Width,
		Height:     out.Height,
		Count:      len(out.Detections),
		Detections: make([]detectionResponse, 0, len(out.Detections)),
	}
	for _, d := range out.Detections {
		resp.Detections = append(resp.Detections, detectionResponse{
			ClassID:    d.ClassID,
			Label:      d.Label,
			Confidence: d.Confidence,
			Box:        boxResponse{X1: d.Box.Min.X, Y1: d.Box.Min.Y, X2: d.Box.Max.X, Y2: d.Box.Max.Y},
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Backend: s.opts.Backend,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}

	if s.opts.UserCount != nil {
		if n, err := s.opts.UserCount(r.Context()); err == nil {
			resp.Users = &n
		} else {
			s.log.WithError(err).Warn("count bot users")
		}
	}

	if s.stats != nil {
		stats, err := s.stats(r.Context())
		if err != nil {
			s.log.WithError(err).Warn("system stats are incomplete")
		}
		resp.System = stats
	}

	writeJSON(w, http.StatusOK, resp)
}

// run читает изображение из запроса и прогоняет конвейер.
// При ошибке ответ уже записан и ok == false.
func (s *Server) run(w http.ResponseWriter, r *http.Request) (*app.DetectionOutput, bool) {
	data, err := readImage(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			sendError(w, "too_large", fmt.Sprintf("image exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
		default:
			sendError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		}
		return nil, false
	}

	out, err := s.detect(r.Context(), data)
	if err != nil {
		s.writeDetectError(w, err)
		return nil, false
	}

	return out, true
}

func (s *Server) writeDetectError(w http.ResponseWriter, err error) {
	switch {
	case app.IsClientError(err):
		sendError(w, "invalid_image", err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		sendError(w, "timeout", "image processing timed out", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		s.log.Debug("client went away before processing finished")
		sendError(w, "cancelled", "request cancelled", http.StatusServiceUnavailable)
	case errors.Is(err, entity.ErrInference):
		sendError(w, "inference_error", "model failed to process the image", http.StatusInternalServerError)
	case errors.Is(err, entity.ErrEncode):
		sendError(w, "encode_error", "failed to encode the annotated image", http.StatusInternalServerError)
	default:
		s.log.WithError(err).Error("unexpected pipeline error")
		sendError(w, "processing_error", "image processing failed", http.StatusInternalServerError)
	}
}

// readImage принимает сырое тело, multipart-поле image (или file)
// и JSON вида {"image": "<base64>"}.
func readImage(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		data []byte
		err  error
	)
	switch mediaType {
	case "application/json":
		data, err = readJSON(r)
	case "multipart/form-data":
		data, err = readMultipart(r, limit)
	default:
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyBody
	}

	return data, nil
}

func readJSON(r *http.Request) ([]byte, error) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return data, nil
}

func readMultipart(r *http.Request, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = 32 << 20
	}
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		file, _, err = r.FormFile("file")
	}
	if err != nil {
		return nil, fmt.Errorf("multipart field image: %w", err)
	}
	defer file.Close()

	return io.ReadAll(file)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
