package service

import (
	"context"
	"time"

	"reservation-service/internal/models"

	"github.com/google/uuid"
)

// EventPublisher publishes reservation domain events after commit
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
	PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error
	PublishTicketsIssued(ctx context.Context, event *models.TicketsIssuedEvent) error
	PublishTicketCancelled(ctx context.Context, event *models.TicketCancelledEvent) error
}

func newBaseEvent(eventType string, now time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: now,
	}
}
