package events

import "time"

// Domain event codes emitted by the dashboard modules.
const (
	StudentAdded          = "student.added"
	StudentUpdated        = "student.updated"
	StudentDeleted        = "student.deleted"
	FeePaid               = "fee.paid"
	AttendanceMarked      = "attendance.marked"
	MessageSent           = "message.sent"
	ResultPublished       = "result.published"
	AssignmentCreated     = "assignment.created"
	AnnouncementPublished = "announcement.published"
	SystemBroadcast       = "system.broadcast"
	UserLogin             = "user.login"
	UserLogout            = "user.logout"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "fee.paid").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the plain implementation used by all producers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// New builds a BaseEvent stamped with the current time.
func New(eventType string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}
