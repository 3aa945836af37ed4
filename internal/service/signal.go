package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beanvault/beanvault"
)

const eventChannel = "beanvault:events"

// SignalService fans catalog events out through redis pub/sub so every
// connected realtime socket sees them. It also serves as the notification
// sink for the assignment flow.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event beanvault.Event) error {
	if s.rdb == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, eventChannel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Notify implements the notification sink. Delivery is fire-and-forget;
// a failed publish is logged, never surfaced to the operation.
func (s *SignalService) Notify(ctx context.Context, level, message string) {
	err := s.Publish(ctx, beanvault.Event{
		Type:    beanvault.EventNotification,
		Level:   level,
		Message: message,
	})
	if err != nil {
		slog.ErrorContext(
			ctx, "Failed to publish notification",
			slog.String("error", err.Error()),
			slog.String("module", "signal"),
		)
	}
}

// Realtime relays published events to a socket. input carries event-type
// prefix subscriptions; output receives matching events until ctx ends.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- beanvault.Event) {
	if s.rdb == nil {
		<-ctx.Done()
		return
	}

	sub := s.rdb.Subscribe(ctx, eventChannel)
	defer sub.Close()

	var prefixes []string

	for {
		select {
		case <-ctx.Done():
			return
		case subscribed, ok := <-input:
			if !ok {
				return
			}
			prefixes = subscribed
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}

			var event beanvault.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(
					ctx, "Failed to decode event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}

			if !matchesPrefix(event.Type, prefixes) {
				continue
			}

			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func matchesPrefix(eventType string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}
	return false
}
