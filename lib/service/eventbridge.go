package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/amslabs/assethub.go/lib/ledger"
	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventBridge holds the session's single websocket connection to the ledger
// push channel and republishes every frame through the Pubsub. It reconnects
// forever with a constant backoff; there is no offline mode to fall back to.
type EventBridge struct {
	url       string
	token     string
	reconnect time.Duration
	pubsub    *Pubsub
	logger    zerolog.Logger

	mu        sync.RWMutex
	connected bool
}

func NewEventBridge(url, token string, reconnect time.Duration, pubsub *Pubsub, logger zerolog.Logger) *EventBridge {
	return &EventBridge{
		url:       url,
		token:     token,
		reconnect: reconnect,
		pubsub:    pubsub,
		logger:    logger,
	}
}

func (b *EventBridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// Start blocks until ctx is cancelled, holding the connection open and
// redialing after every drop. Run it in its own goroutine.
func (b *EventBridge) Start(ctx context.Context) error {
	policy := backoff.WithContext(backoff.NewConstantBackOff(b.reconnect), ctx)
	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := b.readPump(ctx)
		if err != nil && ctx.Err() == nil {
			b.logger.Warn().Err(err).Msg("push channel disconnected, reconnecting")
		}
		return err
	}, policy)
}

func (b *EventBridge) readPump(ctx context.Context) error {
	header := http.Header{}
	if b.token != "" {
		header.Set("Authorization", "Bearer "+b.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, b.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	b.setConnected(true)
	defer b.setConnected(false)
	b.logger.Info().Str("url", b.url).Msg("push channel connected")

	// unblock ReadMessage when the session shuts down
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var event ledger.PushEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			b.logger.Warn().Err(err).Msg("dropping malformed push frame")
			continue
		}
		if event.Type == "" {
			b.logger.Warn().Msg("dropping push frame without a type")
			continue
		}
		b.pubsub.Publish(event.Type, event)
	}
}

func (b *EventBridge) setConnected(connected bool) {
	b.mu.Lock()
	b.connected = connected
	b.mu.Unlock()
}
