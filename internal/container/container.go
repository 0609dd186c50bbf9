package container

import (
	"github.com/sirupsen/logrus"

	app "object-detector/internal/application"
	"object-detector/internal/domain/port"
)

// Pipeline стадии конвейера детекции, собранные из одной конфигурации.
type Pipeline struct {
	Preprocessor  port.Preprocessor
	Engine        port.InferenceEngine
	Postprocessor port.Postprocessor
	Annotator     port.Annotator
}

type Container struct {
	UserService      *app.UserService
	DetectionService *app.DetectionService
}

func New(userRepo port.UserRepository, pipeline Pipeline, log logrus.FieldLogger) *Container {
	userService := app.NewUserService(userRepo)
	detectionService := app.NewDetectionService(
		pipeline.Preprocessor,
		pipeline.Engine,
		pipeline.Postprocessor,
		pipeline.Annotator,
		log.WithField("component", "pipeline"),
	)

	return &Container{
		UserService:      userService,
		DetectionService: detectionService,
	}
}
