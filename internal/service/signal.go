package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/stitchweb/stitch/internal/domain"
)

// SignalService fans board change events out over redis pub/sub so
// every instance can push replacement fragments to its websocket
// subscribers.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event domain.BoardEvent) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, boardChannel(event.BoardSlug), jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Subscribe delivers events for one board on the returned channel until
// ctx is cancelled.
func (s *SignalService) Subscribe(ctx context.Context, boardSlug string) (<-chan domain.BoardEvent, error) {
	pubsub := s.rdb.Subscribe(ctx, boardChannel(boardSlug))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	events := make(chan domain.BoardEvent)
	go func() {
		defer close(events)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var event domain.BoardEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

func boardChannel(slug string) string {
	return "board:" + slug
}
