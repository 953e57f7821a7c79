package domain

import (
	"context"
	"time"
)

// Message is a conversion request as it arrives from the broker, before its
// payload is parsed. Commit acknowledges it; it may be nil.
type Message struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
