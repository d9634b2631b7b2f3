package store

import (
	"context"
	"time"

	"reservation-service/internal/models"
)

// ListStaleHotelBookings returns unpaid pending bookings whose check-in is on or before cutoff
func (s *Store) ListStaleHotelBookings(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM booking_transactions
		WHERE status = $1 AND is_paid = false AND check_in <= $2
		ORDER BY id`,
		models.BookingStatusPending, cutoff)
	return ids, err
}

// CancelHotelBooking cancels a booking if it is still pending and unpaid.
// Returns false when a concurrent payment or status change got there first.
func (s *Store) CancelHotelBooking(ctx context.Context, bookingID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE booking_transactions SET status = $1
		WHERE id = $2 AND status = $3 AND is_paid = false`,
		models.BookingStatusCancelled, bookingID, models.BookingStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListPaymentReminders returns unpaid pending bookings with check-in in [from, before)
func (s *Store) ListPaymentReminders(ctx context.Context, from, before time.Time) ([]models.PendingBookingNotice, error) {
	var notices []models.PendingBookingNotice
	err := s.db.SelectContext(ctx, &notices, `
		SELECT b.id AS booking_id, u.email, u.first_name, h.name AS hotel_name, b.check_in, b.total_price_cents
		FROM booking_transactions b
		JOIN users u ON u.id = b.user_id
		JOIN hotels h ON h.id = b.hotel_id
		WHERE b.status = $1 AND b.is_paid = false AND b.check_in >= $2 AND b.check_in < $3
		ORDER BY b.id`,
		models.BookingStatusPending, from, before)
	return notices, err
}

// ListStaleTickets returns unpaid pending tickets created before the cutoff
func (s *Store) ListStaleTickets(ctx context.Context, createdBefore time.Time) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM flight_tickets
		WHERE state = $1 AND is_paid = false AND created_at < $2
		ORDER BY id`,
		models.TicketStatePending, createdBefore)
	return ids, err
}

// CancelTicket cancels a ticket if it is still pending and unpaid
func (s *Store) CancelTicket(ctx context.Context, ticketID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE flight_tickets SET state = $1
		WHERE id = $2 AND state = $3 AND is_paid = false`,
		models.TicketStateCancelled, ticketID, models.TicketStatePending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
