package notify

import (
	"context"
	"fmt"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher is satisfied by broker.Producer
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// KafkaNotifier hands messages to the mail relay through the notifications topic
type KafkaNotifier struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewKafkaNotifier creates a notifier that publishes NotificationRequested events
func NewKafkaNotifier(publisher Publisher) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		logger:    util.ComponentLogger("notifier"),
	}
}

// Send publishes a notification request for recipient
func (n *KafkaNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("notification has no recipient")
	}

	event := &models.NotificationRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeNotificationRequested,
			Timestamp: time.Now(),
		},
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	}
	if err := n.publisher.PublishEvent(ctx, recipient, event); err != nil {
		return fmt.Errorf("failed to request notification: %w", err)
	}

	n.logger.Info("Notification requested", zap.String("recipient", recipient), zap.String("subject", subject))
	return nil
}

// LogNotifier only logs messages. Used when no notifications topic is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.ComponentLogger("notifier")}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	n.logger.Info("Notification (not delivered)",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}
