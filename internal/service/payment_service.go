package service

import (
	"context"
	"errors"
	"fmt"

	"reservation-service/internal/models"
	"reservation-service/internal/util"

	"go.uber.org/zap"
)

// PaymentStore is the persistence PaymentService depends on
type PaymentStore interface {
	MarkBookingPaid(ctx context.Context, bookingID int64) (bool, error)
	MarkTicketsPaid(ctx context.Context, ticketIDs []int64) (int64, error)
	GetBookingTransaction(ctx context.Context, id int64) (*models.BookingTransaction, error)
	GetTicketsByIDs(ctx context.Context, ids []int64) ([]models.TicketRecord, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// PaymentService applies out-of-band payment results to reservations.
// It never touches inventory: capacity is derived, so paying only flips is_paid.
type PaymentService struct {
	store  PaymentStore
	logger *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store PaymentStore) *PaymentService {
	return &PaymentService{
		store:  store,
		logger: util.ComponentLogger("payment"),
	}
}

// MarkBookingPaid sets is_paid on a pending booking transaction
func (ps *PaymentService) MarkBookingPaid(ctx context.Context, bookingID int64) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.MarkBookingPaid")
	defer span.End()

	updated, err := ps.store.MarkBookingPaid(ctx, bookingID)
	if err != nil {
		util.FailSpan(span, err)
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}
	if !updated {
		if _, err := ps.store.GetBookingTransaction(ctx, bookingID); err != nil {
			return notFound(err)
		}
		return fmt.Errorf("booking %d: %w", bookingID, ErrNotPending)
	}

	util.PaymentsAppliedTotal.WithLabelValues(models.PaymentTargetBooking).Inc()
	ps.logger.Info("Booking paid", zap.Int64("booking_id", bookingID))
	return nil
}

// MarkTicketsPaid sets is_paid on the pending tickets among ticketIDs
func (ps *PaymentService) MarkTicketsPaid(ctx context.Context, ticketIDs []int64) (int64, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.MarkTicketsPaid")
	defer span.End()

	if len(ticketIDs) == 0 {
		return 0, fmt.Errorf("%w: no tickets given", ErrInvalidRequest)
	}

	updated, err := ps.store.MarkTicketsPaid(ctx, ticketIDs)
	if err != nil {
		util.FailSpan(span, err)
		return 0, fmt.Errorf("failed to mark tickets paid: %w", err)
	}
	if updated == 0 {
		existing, err := ps.store.GetTicketsByIDs(ctx, ticketIDs)
		if err != nil {
			return 0, err
		}
		if len(existing) == 0 {
			return 0, fmt.Errorf("%w: tickets %v", ErrResourceNotFound, ticketIDs)
		}
		return 0, fmt.Errorf("tickets %v: %w", ticketIDs, ErrNotPending)
	}
	if updated < int64(len(ticketIDs)) {
		ps.logger.Warn("Some tickets were not pending",
			zap.Int64s("ticket_ids", ticketIDs), zap.Int64("updated", updated))
	}

	util.PaymentsAppliedTotal.WithLabelValues(models.PaymentTargetTickets).Inc()
	ps.logger.Info("Tickets paid", zap.Int64s("ticket_ids", ticketIDs))
	return updated, nil
}

// HandlePaymentSucceeded applies a payment event exactly once
func (ps *PaymentService) HandlePaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandlePaymentSucceeded")
	defer span.End()

	processed, err := ps.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		ps.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	switch event.Target {
	case models.PaymentTargetBooking:
		err = ps.MarkBookingPaid(ctx, event.BookingID)
	case models.PaymentTargetTickets:
		_, err = ps.MarkTicketsPaid(ctx, event.TicketIDs)
	default:
		err = fmt.Errorf("%w: unknown payment target %q", ErrInvalidRequest, event.Target)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrResourceNotFound):
		// Recorded as processed so redelivery does not loop; refunds happen elsewhere.
		ps.logger.Error("Payment could not be applied",
			zap.String("event_id", event.EventID),
			zap.String("tx_id", event.TxID),
			zap.Error(err))
	default:
		return err
	}

	if err := ps.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		ps.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
