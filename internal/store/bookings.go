package store

import (
	"context"
	"database/sql"
	"fmt"

	"reservation-service/internal/models"
)

// LockRoomType reads a room type with an exclusive row lock (FOR UPDATE)
func (t *sqlTx) LockRoomType(ctx context.Context, roomTypeID int64) (*models.RoomType, error) {
	var rt models.RoomType
	err := t.tx.GetContext(ctx, &rt,
		"SELECT id, hotel_id, name, guest_capacity, quantity, price_cents FROM room_types WHERE id = $1 FOR UPDATE",
		roomTypeID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("room type %d: %w", roomTypeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock room type: %w", err)
	}
	return &rt, nil
}

// CreateBookingTransaction inserts the parent booking row
func (t *sqlTx) CreateBookingTransaction(ctx context.Context, booking *models.BookingTransaction) error {
	query := `
		INSERT INTO booking_transactions (user_id, hotel_id, check_in, check_out, guest_count, total_price_cents, is_paid, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return t.tx.QueryRowxContext(ctx, query,
		booking.UserID, booking.HotelID, booking.CheckIn, booking.CheckOut, booking.GuestCount,
		booking.TotalPriceCents, booking.IsPaid, booking.Status).
		Scan(&booking.ID, &booking.CreatedAt)
}

// CreateRoomBookingLine inserts a room line referencing its booking
func (t *sqlTx) CreateRoomBookingLine(ctx context.Context, line *models.RoomBookingLine) error {
	query := `
		INSERT INTO room_booking_lines (booking_transaction_id, room_type_id, room_count, check_in, check_out)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return t.tx.GetContext(ctx, &line.ID, query,
		line.BookingTransactionID, line.RoomTypeID, line.RoomCount, line.CheckIn, line.CheckOut)
}

// UpdateBookingTotal writes the final total price
func (t *sqlTx) UpdateBookingTotal(ctx context.Context, bookingID int64, totalPriceCents int64) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE booking_transactions SET total_price_cents = $1 WHERE id = $2",
		totalPriceCents, bookingID)
	return err
}

// GetBookingTransaction retrieves a booking by ID
func (s *Store) GetBookingTransaction(ctx context.Context, id int64) (*models.BookingTransaction, error) {
	var booking models.BookingTransaction
	err := s.db.GetContext(ctx, &booking, `
		SELECT id, user_id, hotel_id, check_in, check_out, guest_count, total_price_cents, is_paid, status, created_at
		FROM booking_transactions WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetRoomBookingLines retrieves all lines of a booking
func (s *Store) GetRoomBookingLines(ctx context.Context, bookingID int64) ([]models.RoomBookingLine, error) {
	var lines []models.RoomBookingLine
	err := s.db.SelectContext(ctx, &lines, `
		SELECT id, booking_transaction_id, room_type_id, room_count, check_in, check_out
		FROM room_booking_lines WHERE booking_transaction_id = $1 ORDER BY id`, bookingID)
	return lines, err
}
