package contracts

import "context"

// AsyncWorker drains a channel's message stream into durable storage.
type AsyncWorker interface {
	// Run starts the consumer loop for one channel; it returns once the
	// subscription is established and stops when ctx is canceled.
	Run(ctx context.Context, chatID string) error
	// ProcessMessage persists one stream entry, broadcasts it, then acks
	// and deletes it from the stream.
	ProcessMessage(ctx context.Context, msgID string, rawData []byte) error
}
