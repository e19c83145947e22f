package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/notification"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/mailer"
	"github.com/nitishgupta522/CampusConnect-sub000/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Broadcaster pushes an ephemeral frame to every connected dashboard client.
// Satisfied by the websocket hub.
type Broadcaster interface {
	Broadcast(frameType string, data interface{})
}

type ruleTarget int

const (
	// targetSelf addresses the recipient named in the event payload.
	targetSelf ruleTarget = iota
	// targetStudents fans out to every student on record.
	targetStudents
	// targetBroadcast pushes to all connected clients without persisting.
	targetBroadcast
)

type notificationRule struct {
	Title    string
	Template string
	Type     string
	Priority string
	Target   ruleTarget
}

// notificationRules maps domain event codes to the notification they produce.
// Template placeholders like {amount} are filled from the event payload.
var notificationRules = map[string]notificationRule{
	events.FeePaid: {
		Title:    "Payment Received",
		Template: "Fee payment of {amount} has been recorded.",
		Type:     model.TypeFee,
		Priority: model.PriorityMedium,
		Target:   targetSelf,
	},
	events.AttendanceMarked: {
		Title:    "Attendance Updated",
		Template: "Attendance marked as {status} for {date}.",
		Type:     model.TypeAttendance,
		Priority: model.PriorityLow,
		Target:   targetSelf,
	},
	events.MessageSent: {
		Title:    "New Message",
		Template: "{senderName} sent you a message.",
		Type:     model.TypeMessage,
		Priority: model.PriorityMedium,
		Target:   targetSelf,
	},
	events.ResultPublished: {
		Title:    "Result Published",
		Template: "Your result for {examName} is now available.",
		Type:     model.TypeResult,
		Priority: model.PriorityHigh,
		Target:   targetSelf,
	},
	events.AssignmentCreated: {
		Title:    "New Assignment",
		Template: "{title} has been assigned. Due {dueDate}.",
		Type:     model.TypeAssignment,
		Priority: model.PriorityHigh,
		Target:   targetStudents,
	},
	events.AnnouncementPublished: {
		Title:    "Announcement",
		Template: "{title}",
		Type:     model.TypeAnnouncement,
		Priority: model.PriorityMedium,
		Target:   targetBroadcast,
	},
	events.SystemBroadcast: {
		Title:    "System Notice",
		Template: "{message}",
		Type:     model.TypeInfo,
		Priority: model.PriorityUrgent,
		Target:   targetBroadcast,
	},
}

type INotificationWorker interface {
	Consume(ctx context.Context) error
}

// notificationWorker turns domain events into dashboard notifications off the
// request path. Producers never wait on notification fan-out.
type notificationWorker struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	center      *notification.Center
	store       docstore.Store
	broadcaster Broadcaster
	mailer      mailer.IEmailService
	logger      logger.ILogger
}

func NewNotificationWorker(
	pubSub *gochannel.GoChannel,
	topicName string,
	center *notification.Center,
	store docstore.Store,
	broadcaster Broadcaster,
	emailService mailer.IEmailService,
	log logger.ILogger,
) INotificationWorker {
	return &notificationWorker{
		pubSub:      pubSub,
		topicName:   topicName,
		center:      center,
		store:       store,
		broadcaster: broadcaster,
		mailer:      emailService,
		logger:      log,
	}
}

func (w *notificationWorker) Consume(ctx context.Context) error {
	messages, err := w.pubSub.Subscribe(ctx, w.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			w.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (w *notificationWorker) processMessage(ctx context.Context, msg *message.Message) {
	var env eventEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		// Ack malformed messages to prevent infinite retry.
		w.logger.Error("NotificationWorker", "Failed to unmarshal event", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	rule, ok := notificationRules[env.Type]
	if !ok {
		// Events without a notification rule (logins, deletes) pass through.
		msg.Ack()
		return
	}

	if err := w.apply(ctx, rule, env); err != nil {
		w.logger.Error("NotificationWorker", "Failed to apply event", map[string]interface{}{
			"event": env.Type,
			"error": err.Error(),
		})
		msg.Nack()
		return
	}

	msg.Ack()
}

func (w *notificationWorker) apply(ctx context.Context, rule notificationRule, env eventEnvelope) error {
	body := fillTemplate(rule.Template, env.Data)
	priority := rule.Priority
	if p, ok := env.Data["priority"].(string); ok && p != "" {
		priority = p
	}

	switch rule.Target {
	case targetBroadcast:
		// Broadcasts are ephemeral pushes: every connected client sees the
		// toast, nothing is written to any recipient's history.
		if w.broadcaster != nil {
			n := model.Notification{
				Type:     rule.Type,
				Priority: priority,
				Title:    rule.Title,
				Message:  body,
			}
			w.broadcaster.Broadcast("toast", map[string]interface{}{
				"notification": n,
				"durationMs":   model.ToastDuration(priority).Milliseconds(),
			})
		}
		return nil

	case targetStudents:
		if w.store == nil {
			w.logger.Warn("NotificationWorker", "No document store, student fan-out skipped", map[string]interface{}{"event": env.Type})
			return nil
		}
		records, err := w.store.Query(ctx, model.CollectionStudents, docstore.Filters{}, docstore.QueryOptions{})
		if err != nil {
			return fmt.Errorf("resolve student recipients: %w", err)
		}
		for _, r := range records {
			if err := w.createFor(ctx, rule, env, body, priority, r.ID(), model.RoleStudent, r.String("email")); err != nil {
				return err
			}
		}
		return nil

	default:
		recipientID, _ := env.Data["recipientId"].(string)
		recipientType, _ := env.Data["recipientType"].(string)
		if recipientID == "" {
			// No recipient means nobody to notify; not a retriable condition.
			w.logger.Warn("NotificationWorker", "Event without recipient dropped", map[string]interface{}{"event": env.Type})
			return nil
		}
		email, _ := env.Data["email"].(string)
		return w.createFor(ctx, rule, env, body, priority, recipientID, recipientType, email)
	}
}

func (w *notificationWorker) createFor(ctx context.Context, rule notificationRule, env eventEnvelope, body, priority, recipientID, recipientType, email string) error {
	senderID, _ := env.Data["senderId"].(string)
	senderName, _ := env.Data["senderName"].(string)
	actionURL, _ := env.Data["actionUrl"].(string)
	actionText, _ := env.Data["actionText"].(string)

	_, err := w.center.Create(ctx, notification.CreateInput{
		Type:          rule.Type,
		Priority:      priority,
		Title:         rule.Title,
		Message:       body,
		RecipientID:   recipientID,
		RecipientType: recipientType,
		SenderID:      senderID,
		SenderName:    senderName,
		ActionURL:     actionURL,
		ActionText:    actionText,
		Metadata:      map[string]interface{}{"event": env.Type},
	})
	if err != nil {
		return err
	}

	// Urgent notifications also go out by email so they reach users who are
	// not looking at the dashboard. Best effort.
	if priority == model.PriorityUrgent && email != "" && w.mailer != nil {
		if mailErr := w.mailer.SendUrgentNotification(email, rule.Title, body); mailErr != nil {
			w.logger.Warn("NotificationWorker", "Urgent email failed", map[string]interface{}{
				"recipient": recipientID,
				"error":     mailErr.Error(),
			})
		}
	}
	return nil
}

// fillTemplate substitutes {key} placeholders with payload values. Missing
// keys render as empty strings so a sparse payload still produces a message.
func fillTemplate(template string, data map[string]interface{}) string {
	out := template
	for key, value := range data {
		out = strings.ReplaceAll(out, "{"+key+"}", fmt.Sprintf("%v", value))
	}
	// Strip placeholders the payload did not fill.
	for {
		start := strings.Index(out, "{")
		if start < 0 {
			break
		}
		end := strings.Index(out[start:], "}")
		if end < 0 {
			break
		}
		out = out[:start] + out[start+end+1:]
	}
	return strings.Join(strings.Fields(out), " ")
}
