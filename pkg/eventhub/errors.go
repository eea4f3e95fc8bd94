package eventhub

import "errors"

var (
	// ErrInvalidArgument is returned before anything is enqueued: unknown
	// event type, payload of the wrong shape, missing required field.
	ErrInvalidArgument = errors.New("eventhub: invalid argument")
	// ErrUnsupportedEvent marks events the pipeline cannot map. They are
	// logged at error level and skipped.
	ErrUnsupportedEvent = errors.New("eventhub: unsupported event")
	// ErrRegistryFrozen is returned by AddHandler after the first emission.
	ErrRegistryFrozen = errors.New("eventhub: handler registry is frozen")
	// ErrPipelineRequired is returned by NewHub without a pipeline.
	ErrPipelineRequired = errors.New("eventhub: pipeline is required")
)
