package contracts

import "context"

// MessageQueue decouples the websocket ingest path from persistence.
type MessageQueue interface {
	// PublishToStream appends an accepted message to the channel's stream.
	PublishToStream(ctx context.Context, chatID string, payload []byte) error
	// SubscribeToStream starts the reliable consumer-group read loop for a
	// channel and hands each entry to the handler.
	SubscribeToStream(ctx context.Context, chatID string, conGroup string, handler func(ctx context.Context, messageID string, data []byte) error) error
	// AcknowledgeMessage marks a stream entry as processed.
	AcknowledgeMessage(ctx context.Context, chatID, conGroup, mesgID string) error
	// DeleteMessage removes a processed entry from the stream.
	DeleteMessage(ctx context.Context, chatID, mesgID string) error
	// DeleteStream drops the whole stream for a channel.
	DeleteStream(ctx context.Context, chatID string) error
}
