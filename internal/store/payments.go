package store

import (
	"context"

	"reservation-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// MarkBookingPaid flips is_paid on a pending booking
func (s *Store) MarkBookingPaid(ctx context.Context, bookingID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE booking_transactions SET is_paid = true WHERE id = $1 AND status = $2",
		bookingID, models.BookingStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkTicketsPaid flips is_paid on pending tickets and returns how many changed
func (s *Store) MarkTicketsPaid(ctx context.Context, ticketIDs []int64) (int64, error) {
	if len(ticketIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"UPDATE flight_tickets SET is_paid = true WHERE id IN (?) AND state = ?",
		ticketIDs, models.TicketStatePending)
	if err != nil {
		return 0, err
	}
	query = s.db.Rebind(query)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
