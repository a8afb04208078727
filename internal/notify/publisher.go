package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/Lezek123/battleships-indexer/internal/domain"
)

// GameUpdate is published after every completed rebuild so downstream
// consumers (the API's live stream, external services) can react without
// polling.
type GameUpdate struct {
	GameIndex uint64 `json:"gameIndex"`
	Status    string `json:"status"` // projection status, or "deleted"
}

// StatusDeleted marks a game whose projection was removed.
const StatusDeleted = "deleted"

// Publisher publishes game updates to a Redis stream.
type Publisher struct {
	pub   message.Publisher
	topic string
}

// New creates a new Publisher.
func New(redisClient redis.UniversalClient, topic string) (*Publisher, error) {
	logger := watermill.NewSlogLogger(nil)

	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{pub: pub, topic: topic}, nil
}

// PublishGameUpdate publishes the outcome of one rebuild. A nil projection
// means the game no longer exists.
func (p *Publisher) PublishGameUpdate(ctx context.Context, gameIndex uint64, proj *domain.Projection) error {
	update := GameUpdate{GameIndex: gameIndex, Status: StatusDeleted}
	if proj != nil {
		update.Status = string(proj.Status)
	}

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode game update: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.pub.Publish(p.topic, msg); err != nil {
		slog.Error("game update publish failed",
			"game_index", gameIndex,
			"status", update.Status,
			"err", err,
		)
		return err
	}

	slog.Debug("game update published",
		"game_index", gameIndex,
		"status", update.Status,
	)
	return nil
}

// Close closes the publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}
