package api

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/Lezek123/battleships-indexer/internal/api/handler"
)

// StreamConfig configures the game-update stream consumer.
type StreamConfig struct {
	RedisClient   redis.UniversalClient
	Topic         string
	ConsumerGroup string
	Hub           *handler.Hub
}

// Stream consumes game updates from the Redis stream and forwards them to
// the WebSocket hub.
type Stream struct {
	router *message.Router
	hub    *handler.Hub
}

// NewStream creates a new Stream.
func NewStream(cfg StreamConfig) (*Stream, error) {
	logger := watermill.NewSlogLogger(nil)

	sub, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        cfg.RedisClient,
			ConsumerGroup: cfg.ConsumerGroup,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	s := &Stream{router: router, hub: cfg.Hub}

	router.AddNoPublisherHandler(
		"broadcast-game-updates",
		cfg.Topic,
		sub,
		s.handleUpdate,
	)

	return s, nil
}

// handleUpdate forwards a single game update to connected clients. Updates
// are fire-and-forget: delivery problems never block the indexing path.
func (s *Stream) handleUpdate(msg *message.Message) error {
	s.hub.Broadcast(msg.Payload)
	slog.Debug("game update broadcast", "msg_uuid", msg.UUID, "len", len(msg.Payload))
	return nil
}

// Run starts the stream consumer. It blocks until the context is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	return s.router.Run(ctx)
}

// Close closes the stream consumer.
func (s *Stream) Close() error {
	return s.router.Close()
}
