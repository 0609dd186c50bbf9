package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"object-detector/internal/domain/entity"
	"object-detector/internal/infrastructure/vision"
)

// Config единая поверхность настройки процесса.
type Config struct {
	TelegramToken string `yaml:"telegram_token"`

	HTTPAddr       string        `yaml:"http_addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	MaxConcurrent  int64         `yaml:"max_concurrent"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Model     ModelConfig     `yaml:"model"`
	Detection DetectionConfig `yaml:"detection"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// ModelConfig артефакты модели и бэкенд.
type ModelConfig struct {
	Backend         string `yaml:"backend"`
	Topology        string `yaml:"topology"`
	Weights         string `yaml:"weights"`
	ONNXLibraryPath string `yaml:"onnx_library"`
	ONNXSessions    int    `yaml:"onnx_sessions"`
}

// DetectionConfig калибровка сети и пороги постобработки.
type DetectionConfig struct {
	InputWidth          int        `yaml:"input_width"`
	InputHeight         int        `yaml:"input_height"`
	ScaleFactor         float64    `yaml:"scale_factor"`
	Mean                [3]float64 `yaml:"mean"`
	ChannelOrder        string     `yaml:"channel_order"`
	ConfidenceThreshold float64    `yaml:"confidence_threshold"`
	NMSIoUThreshold     float64    `yaml:"nms_iou_threshold"`
	NMSKeepThreshold    float64    `yaml:"nms_keep_threshold"`
	NMSMode             string     `yaml:"nms_mode"`
	ClassLabels         []string   `yaml:"class_labels"`
	JPEGQuality         int        `yaml:"jpeg_quality"`
	MaxPixels           int        `yaml:"max_pixels"`
}

// Default значения по умолчанию, совпадающие с эталонной MobileNet-SSD.
func Default() *Config {
	opts := vision.DefaultOptions()
	return &Config{
		HTTPAddr:       ":8080",
		MaxUploadBytes: 20 << 20,
		MaxConcurrent:  4,
		RequestTimeout: 30 * time.Second,
		Model: ModelConfig{
			Backend:      string(vision.BackendGoCV),
			Topology:     "models/mobilenet_ssd_deploy.prototxt",
			Weights:      "models/mobilenet_iter_73000.caffemodel",
			ONNXSessions: 2,
		},
		Detection: DetectionConfig{
			InputWidth:          opts.InputWidth,
			InputHeight:         opts.InputHeight,
			ScaleFactor:         0.007843,
			Mean:                [3]float64{127.5, 127.5, 127.5},
			ChannelOrder:        string(opts.ChannelOrder),
			ConfidenceThreshold: 0.2,
			NMSIoUThreshold:     0.4,
			NMSKeepThreshold:    0.5,
			NMSMode:             string(opts.NMSMode),
			ClassLabels:         opts.Labels.Names(),
			JPEGQuality:         opts.JPEGQuality,
			MaxPixels:           opts.MaxPixels,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load собирает конфигурацию: значения по умолчанию, затем YAML из CONFIG_FILE,
// затем переменные окружения (в том числе из .env).
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.TelegramToken, "TELEGRAM_TOKEN")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	errs = append(errs,
		setInt64(&c.MaxUploadBytes, "MAX_UPLOAD_BYTES"),
		setInt64(&c.MaxConcurrent, "MAX_CONCURRENT"),
		setDuration(&c.RequestTimeout, "REQUEST_TIMEOUT"),
	)

	setString(&c.Model.Backend, "MODEL_BACKEND")
	setString(&c.Model.Topology, "MODEL_TOPOLOGY")
	setString(&c.Model.Weights, "MODEL_WEIGHTS")
	setString(&c.Model.ONNXLibraryPath, "ONNX_LIBRARY")
	errs = append(errs, setInt(&c.Model.ONNXSessions, "ONNX_SESSIONS"))

	d := &c.Detection
	errs = append(errs,
		setInt(&d.InputWidth, "INPUT_WIDTH"),
		setInt(&d.InputHeight, "INPUT_HEIGHT"),
		setFloat(&d.ScaleFactor, "SCALE_FACTOR"),
		setMean(&d.Mean, "MEAN_VALUE"),
		setFloat(&d.ConfidenceThreshold, "CONFIDENCE_THRESHOLD"),
		setFloat(&d.NMSIoUThreshold, "NMS_IOU_THRESHOLD"),
		setFloat(&d.NMSKeepThreshold, "NMS_KEEP_THRESHOLD"),
		setInt(&d.JPEGQuality, "JPEG_QUALITY"),
		setInt(&d.MaxPixels, "MAX_PIXELS"),
	)
	setString(&d.ChannelOrder, "CHANNEL_ORDER")
	setString(&d.NMSMode, "NMS_MODE")
	if v := os.Getenv("CLASS_LABELS"); v != "" {
		d.ClassLabels = splitList(v)
	}

	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.LogFile, "LOG_FILE")

	return errors.Join(errs...)
}

// Validate проверяет значения, которые нельзя исправить молча.
func (c *Config) Validate() error {
	var errs []error

	switch vision.Backend(c.Model.Backend) {
	case vision.BackendGoCV, vision.BackendONNX:
	default:
		errs = append(errs, fmt.Errorf("unknown model backend %q", c.Model.Backend))
	}
	if c.Model.Topology == "" || c.Model.Weights == "" {
		errs = append(errs, errors.New("model topology and weights paths are required"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes))
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("max concurrent must be positive, got %d", c.MaxConcurrent))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if err := c.Pipeline().Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Pipeline параметры конвейера детекции.
func (c *Config) Pipeline() vision.Options {
	d := c.Detection
	return vision.Options{
		InputWidth:          d.InputWidth,
		InputHeight:         d.InputHeight,
		Scale:               float32(d.ScaleFactor),
		Mean:                [3]float32{float32(d.Mean[0]), float32(d.Mean[1]), float32(d.Mean[2])},
		ChannelOrder:        vision.ChannelOrder(d.ChannelOrder),
		ConfidenceThreshold: float32(d.ConfidenceThreshold),
		NMSIoUThreshold:     float32(d.NMSIoUThreshold),
		NMSKeepThreshold:    float32(d.NMSKeepThreshold),
		NMSMode:             vision.NMSMode(d.NMSMode),
		Labels:              entity.NewClassLabels(d.ClassLabels),
		JPEGQuality:         d.JPEGQuality,
		MaxPixels:           d.MaxPixels,
	}
}

// ModelLoad параметры загрузчика модели.
func (c *Config) ModelLoad() vision.ModelConfig {
	return vision.ModelConfig{
		Backend:         vision.Backend(c.Model.Backend),
		TopologyPath:    c.Model.Topology,
		WeightsPath:     c.Model.Weights,
		InputWidth:      c.Detection.InputWidth,
		InputHeight:     c.Detection.InputHeight,
		Labels:          entity.NewClassLabels(c.Detection.ClassLabels),
		ONNXLibraryPath: c.Model.ONNXLibraryPath,

		ConfidenceThreshold: float32(c.Detection.ConfidenceThreshold),
		ONNXSessions:    c.Model.ONNXSessions,
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// setMean принимает одно число для всех каналов или три через запятую.
func setMean(dst *[3]float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	parts := splitList(v)
	if len(parts) != 1 && len(parts) != 3 {
		return fmt.Errorf("%s: expected 1 or 3 values, got %d", key, len(parts))
	}

	var mean [3]float64
	for i := range mean {
		p := parts[0]
		if len(parts) == 3 {
			p = parts[i]
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		mean[i] = f
	}
	*dst = mean
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
