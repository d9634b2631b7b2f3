package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reservation-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a referenced row does not exist
var ErrNotFound = errors.New("not found")

// Tx is the reservation surface available inside one database transaction.
// Lock* methods take an exclusive row lock held until commit or rollback.
type Tx interface {
	LockRoomType(ctx context.Context, roomTypeID int64) (*models.RoomType, error)
	CommittedRooms(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (int, error)
	CreateBookingTransaction(ctx context.Context, booking *models.BookingTransaction) error
	CreateRoomBookingLine(ctx context.Context, line *models.RoomBookingLine) error
	UpdateBookingTotal(ctx context.Context, bookingID int64, totalPriceCents int64) error

	LockTripType(ctx context.Context, tripTypeID int64) (*models.TripType, error)
	CommittedSeats(ctx context.Context, tripTypeID int64, excludeCancelled bool) (int, error)
	CreateTicket(ctx context.Context, ticket *models.TicketRecord) error
}

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn inside a single database transaction. The transaction
// commits only if fn returns nil; every other path rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx *sqlx.Tx
}

var _ Tx = (*sqlTx)(nil)

// GetHotel retrieves a hotel by ID
func (s *Store) GetHotel(ctx context.Context, id int64) (*models.Hotel, error) {
	var hotel models.Hotel
	err := s.db.GetContext(ctx, &hotel, "SELECT id, name FROM hotels WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("hotel %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &hotel, nil
}

// GetRoomTypesByIDs retrieves multiple room types by IDs without locking
func (s *Store) GetRoomTypesByIDs(ctx context.Context, ids []int64) ([]models.RoomType, error) {
	if len(ids) == 0 {
		return []models.RoomType{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT id, hotel_id, name, guest_capacity, quantity, price_cents FROM room_types WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var roomTypes []models.RoomType
	err = s.db.SelectContext(ctx, &roomTypes, query, args...)
	return roomTypes, err
}

// GetRoomType retrieves a room type by ID without locking
func (s *Store) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	var rt models.RoomType
	err := s.db.GetContext(ctx, &rt,
		"SELECT id, hotel_id, name, guest_capacity, quantity, price_cents FROM room_types WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("room type %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// GetFlight retrieves a flight by ID
func (s *Store) GetFlight(ctx context.Context, id int64) (*models.Flight, error) {
	var flight models.Flight
	err := s.db.GetContext(ctx, &flight,
		"SELECT id, airline_id, departure_time FROM flights WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("flight %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &flight, nil
}

// GetTripType retrieves a trip type by ID without locking
func (s *Store) GetTripType(ctx context.Context, id int64) (*models.TripType, error) {
	var tt models.TripType
	err := s.db.GetContext(ctx, &tt,
		"SELECT id, flight_id, fare_class, quantity, price_cents FROM trip_types WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trip type %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tt, nil
}
