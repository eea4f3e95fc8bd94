package batcher

import "errors"

var (
	ErrClosed      = errors.New("batcher: closed")
	ErrFlushPanic  = errors.New("batcher: flush panicked")
	ErrResultCount = errors.New("batcher: flush returned wrong number of results")
)
