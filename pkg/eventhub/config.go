package eventhub

import (
	"log/slog"
	"time"
)

// Config holds fan-out settings.
type Config struct {
	BatchSize   int           `env:"EVENTHUB_BATCH_SIZE" envDefault:"100"`
	Linger      time.Duration `env:"EVENTHUB_LINGER" envDefault:"10ms"`
	MaxInFlight int           `env:"EVENTHUB_MAX_IN_FLIGHT" envDefault:"1"`

	Platforms []string `env:"EVENTHUB_PLATFORMS" envDefault:"ios" envSeparator:","`
	Apps      []string `env:"EVENTHUB_APPS" envDefault:"cam.reaction.ReactionCam" envSeparator:","`
	AppName   string   `env:"EVENTHUB_APP_NAME" envDefault:"reaction.cam"`
}

// NewPipelineFromConfig creates a pipeline with a factory and an assembler
// configured from cfg. Later options win.
func NewPipelineFromConfig(cfg Config, repo Repository, pusher Pusher, log *slog.Logger, opts ...PipelineOption) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	base := []PipelineOption{
		WithBatchSize(cfg.BatchSize),
		WithLinger(cfg.Linger),
		WithMaxInFlight(cfg.MaxInFlight),
		WithPipelineLogger(log),
		WithFactory(NewFactory(WithFactoryLogger(log))),
		WithAssembler(NewAssembler(
			WithPlatforms(cfg.Platforms...),
			WithApps(cfg.Apps...),
			WithAppName(cfg.AppName),
			WithAssemblerLogger(log),
		)),
	}
	return NewPipeline(repo, pusher, append(base, opts...)...)
}
