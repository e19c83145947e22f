package model

import "time"

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification types understood by the dashboard.
const (
	TypeInfo         = "info"
	TypeSuccess      = "success"
	TypeWarning      = "warning"
	TypeError        = "error"
	TypeAssignment   = "assignment"
	TypeFee          = "fee"
	TypeAttendance   = "attendance"
	TypeResult       = "result"
	TypeMessage      = "message"
	TypeAnnouncement = "announcement"
)

// Notification is persisted as one element of the recipient-shared set under
// the notifications storage key.
type Notification struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	Priority      string                 `json:"priority"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	RecipientID   string                 `json:"recipientId"`
	RecipientType string                 `json:"recipientType"`
	SenderID      string                 `json:"senderId,omitempty"`
	SenderName    string                 `json:"senderName,omitempty"`
	ActionURL     string                 `json:"actionUrl,omitempty"`
	ActionText    string                 `json:"actionText,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	Read          bool                   `json:"read"`
	Dismissed     bool                   `json:"dismissed"`
}

// ToastDuration scales with priority: urgent stays longest on screen.
func ToastDuration(priority string) time.Duration {
	switch priority {
	case PriorityUrgent:
		return 8 * time.Second
	case PriorityHigh:
		return 6 * time.Second
	case PriorityLow:
		return 3 * time.Second
	default:
		return 4 * time.Second
	}
}

// SoundFrequency returns the notification chime frequency in Hz per priority.
func SoundFrequency(priority string) int {
	switch priority {
	case PriorityUrgent:
		return 800
	case PriorityHigh:
		return 600
	case PriorityLow:
		return 300
	default:
		return 400
	}
}

// NotificationPreferences is process-wide display configuration, loaded once
// per session and persisted on every mutation.
type NotificationPreferences struct {
	ShowToasts           bool     `json:"showToasts"`
	PlaySound            bool     `json:"playSound"`
	BrowserNotifications bool     `json:"browserNotifications"`
	DisabledTypes        []string `json:"disabledTypes"`
	DisabledPriorities   []string `json:"disabledPriorities"`
}

// DefaultPreferences matches a fresh session with nothing persisted yet.
func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{
		ShowToasts:           true,
		PlaySound:            true,
		BrowserNotifications: false,
		DisabledTypes:        []string{},
		DisabledPriorities:   []string{},
	}
}

// TypeDisabled reports whether the given type is muted.
func (p NotificationPreferences) TypeDisabled(t string) bool {
	for _, d := range p.DisabledTypes {
		if d == t {
			return true
		}
	}
	return false
}

// PriorityDisabled reports whether the given priority is muted.
func (p NotificationPreferences) PriorityDisabled(pr string) bool {
	for _, d := range p.DisabledPriorities {
		if d == pr {
			return true
		}
	}
	return false
}
