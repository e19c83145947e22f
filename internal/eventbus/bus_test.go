package eventbus

import (
	"testing"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
)

func TestEmitDispatchesInRegistrationOrder(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())

	var order []string
	bus.On("fee.paid", func(payload map[string]interface{}) {
		order = append(order, "first")
	})
	bus.On("fee.paid", func(payload map[string]interface{}) {
		order = append(order, "second")
	})
	bus.On("fee.paid", func(payload map[string]interface{}) {
		order = append(order, "third")
	})

	bus.Emit("fee.paid", nil)

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("got %d handler invocations, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, order[i], want[i])
		}
	}
}

func TestEmitPassesPayload(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())

	var got map[string]interface{}
	bus.On("message.sent", func(payload map[string]interface{}) {
		got = payload
	})

	bus.Emit("message.sent", map[string]interface{}{"recipientId": "STU001"})

	if got == nil {
		t.Fatal("handler never invoked")
	}
	if got["recipientId"] != "STU001" {
		t.Errorf("got recipientId %v, want STU001", got["recipientId"])
	}
}

func TestOffRemovesHandler(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())

	calls := 0
	id := bus.On("user.login", func(payload map[string]interface{}) {
		calls++
	})

	bus.Emit("user.login", nil)
	bus.Off("user.login", id)
	bus.Emit("user.login", nil)

	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}

	// Unknown ids are a no-op.
	bus.Off("user.login", id)
	bus.Off("never.registered", 42)
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())

	var survived bool
	bus.On("result.published", func(payload map[string]interface{}) {
		panic("widget exploded")
	})
	bus.On("result.published", func(payload map[string]interface{}) {
		survived = true
	})

	bus.Emit("result.published", nil)

	if !survived {
		t.Error("handler after panicking one never ran")
	}
}

func TestEmitWithoutHandlersIsNoop(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())
	bus.Emit("nobody.listens", map[string]interface{}{"x": 1})
}
