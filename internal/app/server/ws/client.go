package ws

import (
	"context"
	"errors"
	"sync"
)

type RuntimeClient struct {
	ctx       context.Context
	cancel    context.CancelFunc
	ws        *WebSocket
	sessionID string
	chatID    string
	out       chan []byte
	once      sync.Once
}

func NewClient(
	parent context.Context,
	ws *WebSocket,
	sessionID, chatID string,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:       ctx,
		cancel:    cancel,
		ws:        ws,
		sessionID: sessionID,
		chatID:    chatID,
		out:       make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) SessionID() string { return c.sessionID }
func (c *RuntimeClient) ChatID() string    { return c.chatID }

var errClientClosed = errors.New("client closed")

// Send queues a frame for the write loop. Safe to call concurrently with
// Close: the out channel is never closed, a closed client just stops
// draining it and the canceled context unblocks any pending sender.
func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	if c.ctx.Err() != nil {
		return errClientClosed
	}
	select {
	case <-c.ctx.Done():
		return errClientClosed
	case c.out <- data:
		return nil
	}
}

func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
