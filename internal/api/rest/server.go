package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	app "object-detector/internal/application"
	"object-detector/internal/infrastructure/system"
)

// Detector то, что HTTP-слою нужно от конвейера.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) (*app.DetectionOutput, error)
}

// StatsFunc источник статистики для /health.
type StatsFunc func(ctx context.Context) (system.Stats, error)

type Options struct {
	MaxUploadBytes int64
	MaxConcurrent  int64
	RequestTimeout time.Duration
	Backend        string

	// UserCount число пользователей бота для /health, nil если бот выключен
	UserCount func(ctx context.Context) (int, error)
}

// Server HTTP-адаптер конвейера детекции.
type Server struct {
	detector Detector
	stats    StatsFunc
	sem      *semaphore.Weighted
	opts     Options
	log      logrus.FieldLogger
	started  time.Time
}

func NewServer(detector Detector, stats StatsFunc, opts Options, log logrus.FieldLogger) *Server {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Server{
		detector: detector,
		stats:    stats,
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
		opts:     opts,
		log:      log,
		started:  time.Now(),
	}
}

// Router собирает маршруты.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/annotate", s.handleAnnotate).Methods(http.MethodPost)
	api.HandleFunc("/detections", s.handleDetections).Methods(http.MethodPost)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	return r
}

// detect ограничивает число одновременных прогонов и время ответа.
// По таймауту клиент получает ответ сразу, а прогон доезжает в фоне
// и только потом освобождает слот.
func (s *Server) detect(ctx context.Context, data []byte) (*app.DetectionOutput, error) {
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	type result struct {
		out *app.DetectionOutput
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer s.sem.Release(1)
		out, err := s.detector.Detect(ctx, data)
		done <- result{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
