package store

import (
	"context"
	"time"

	"reservation-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// Half-open overlap: an existing line [in, out) conflicts with [$2, $3)
// unless it ends on or before $2 or starts on or after $3.
const committedRoomsQuery = `
	SELECT COALESCE(SUM(l.room_count), 0)
	FROM room_booking_lines l
	JOIN booking_transactions b ON b.id = l.booking_transaction_id
	WHERE l.room_type_id = $1
	  AND b.status <> $4
	  AND NOT (l.check_out <= $2 OR l.check_in >= $3)`

const committedSeatsQuery = `SELECT COUNT(*) FROM flight_tickets WHERE trip_type_id = $1`

const committedSeatsExcludingCancelledQuery = `
	SELECT COUNT(*) FROM flight_tickets WHERE trip_type_id = $1 AND state <> $2`

func committedRooms(ctx context.Context, q sqlx.QueryerContext, roomTypeID int64, checkIn, checkOut time.Time) (int, error) {
	var committed int
	err := sqlx.GetContext(ctx, q, &committed, committedRoomsQuery,
		roomTypeID, checkIn, checkOut, models.BookingStatusCancelled)
	return committed, err
}

func committedSeats(ctx context.Context, q sqlx.QueryerContext, tripTypeID int64, excludeCancelled bool) (int, error) {
	var committed int
	var err error
	if excludeCancelled {
		err = sqlx.GetContext(ctx, q, &committed, committedSeatsExcludingCancelledQuery,
			tripTypeID, models.TicketStateCancelled)
	} else {
		err = sqlx.GetContext(ctx, q, &committed, committedSeatsQuery, tripTypeID)
	}
	return committed, err
}

// CommittedRooms sums rooms of a room type held by non-cancelled bookings
// overlapping [checkIn, checkOut). Runs inside the locking transaction.
func (t *sqlTx) CommittedRooms(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (int, error) {
	return committedRooms(ctx, t.tx, roomTypeID, checkIn, checkOut)
}

// CommittedSeats counts tickets issued against a trip type
func (t *sqlTx) CommittedSeats(ctx context.Context, tripTypeID int64, excludeCancelled bool) (int, error) {
	return committedSeats(ctx, t.tx, tripTypeID, excludeCancelled)
}

// CommittedRooms is the lock-free variant used for availability display
func (s *Store) CommittedRooms(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (int, error) {
	return committedRooms(ctx, s.db, roomTypeID, checkIn, checkOut)
}

// CommittedSeats is the lock-free variant used for availability display
func (s *Store) CommittedSeats(ctx context.Context, tripTypeID int64, excludeCancelled bool) (int, error) {
	return committedSeats(ctx, s.db, tripTypeID, excludeCancelled)
}
