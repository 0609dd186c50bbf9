package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"object-detector/config"
	telegram "object-detector/internal/api"
	"object-detector/internal/api/rest"
	"object-detector/internal/container"
	"object-detector/internal/infrastructure/storage"
	"object-detector/internal/infrastructure/system"
	"object-detector/internal/infrastructure/vision"
	"object-detector/internal/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, logFile, err := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	if err := run(cfg, logg); err != nil {
		logg.WithError(err).Error("detector stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Модель грузится один раз, до приёма первого запроса
	modelCfg := cfg.ModelLoad()
	model, err := vision.Load(modelCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := model.Close(); err != nil {
			logg.WithError(err).Warn("close model")
		}
	}()

	fields := logrus.Fields{
		"backend":  model.Backend(),
		"topology": modelCfg.TopologyPath,
		"weights":  modelCfg.WeightsPath,
		"input":    model.InputShape(),
	}
	if stats, err := system.Collect(ctx); err == nil {
		fields["num_cpu"] = stats.NumCPU
		fields["rss_bytes"] = stats.ProcessRSSBytes
	}
	logg.WithFields(fields).Info("model loaded")

	opts := cfg.Pipeline()
	appContainer := container.New(storage.NewMemoryUserRepository(), container.Pipeline{
		Preprocessor:  vision.NewPreprocessor(opts),
		Engine:        model,
		Postprocessor: vision.NewPostprocessor(opts),
		Annotator:     vision.NewAnnotator(opts),
	}, logg)

	restOpts := rest.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxConcurrent:  cfg.MaxConcurrent,
		RequestTimeout: cfg.RequestTimeout,
		Backend:        string(model.Backend()),
	}
	if cfg.TelegramToken != "" {
		restOpts.UserCount = appContainer.UserService.Count
	}
	api := rest.NewServer(appContainer.DetectionService, system.Collect, restOpts, logg.WithField("component", "http"))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout + 10*time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logg.WithField("addr", srv.Addr).Info("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, telegram.Options{
			MaxFileBytes:   cfg.MaxUploadBytes,
			RequestTimeout: cfg.RequestTimeout,
		}, logg.WithField("component", "telegram"))
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			return bot.Run(gctx)
		})
	} else {
		logg.Info("TELEGRAM_TOKEN is not set, bot is disabled")
	}

	return g.Wait()
}
