package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/eventbus"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicCampusEvents carries every domain event into the async pipeline.
const TopicCampusEvents = "campus-events"

type eventEnvelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// EventPublisher is the single producer-facing entry point for domain events.
// Every event goes two ways: synchronously onto the in-process bus (widgets
// react in registration order, same call stack) and asynchronously onto the
// watermill topic feeding the notification worker.
type EventPublisher struct {
	bus    *eventbus.Bus
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewEventPublisher(bus *eventbus.Bus, pubSub *gochannel.GoChannel, log logger.ILogger) *EventPublisher {
	return &EventPublisher{
		bus:    bus,
		pubSub: pubSub,
		logger: log,
	}
}

// Publish emits the event on both legs. The synchronous leg never fails; the
// returned error is from the async pipeline only.
func (p *EventPublisher) Publish(ctx context.Context, evt events.Event) error {
	if p.bus != nil {
		p.bus.Emit(evt.EventType(), evt.Payload())
	}

	if p.pubSub == nil {
		return nil
	}

	raw, err := json.Marshal(eventEnvelope{
		Type:       evt.EventType(),
		Data:       evt.Payload(),
		OccurredAt: evt.Timestamp(),
	})
	if err != nil {
		return err
	}

	if err := p.pubSub.Publish(TopicCampusEvents, message.NewMessage(watermill.NewUUID(), raw)); err != nil {
		p.logger.Error("EventPublisher", "Failed to publish event", map[string]interface{}{
			"event": evt.EventType(),
			"error": err.Error(),
		})
		return err
	}
	return nil
}
