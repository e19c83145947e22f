package handler

import (
	"context"
	"testing"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/eventbus"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/service"
	"github.com/nitishgupta522/CampusConnect-sub000/pkg/events"

	"github.com/stretchr/testify/assert"
)

func TestSessionLifecycleEventsReachTheBus(t *testing.T) {
	bus := eventbus.NewBus(logger.NewNopLogger())
	publisher := service.NewEventPublisher(bus, nil, logger.NewNopLogger())
	h := NewNotificationHandler(nil, publisher, nil, nil, logger.NewNopLogger())

	var seen []string
	bus.On(events.UserLogin, func(payload map[string]interface{}) {
		seen = append(seen, events.UserLogin)
		assert.Equal(t, "STU001", payload["userId"])
		assert.Equal(t, model.RoleStudent, payload["role"])
	})
	bus.On(events.UserLogout, func(payload map[string]interface{}) {
		seen = append(seen, events.UserLogout)
	})

	user := model.SessionUser{ID: "STU001", Role: model.RoleStudent, DisplayName: "Rahul Sharma"}
	h.announcePresence(context.Background(), user, events.UserLogin)
	h.announcePresence(context.Background(), user, events.UserLogout)

	assert.Equal(t, []string{events.UserLogin, events.UserLogout}, seen)
}
