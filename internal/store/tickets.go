package store

import (
	"context"
	"database/sql"
	"fmt"

	"reservation-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// LockTripType reads a trip type with an exclusive row lock (FOR UPDATE)
func (t *sqlTx) LockTripType(ctx context.Context, tripTypeID int64) (*models.TripType, error) {
	var tt models.TripType
	err := t.tx.GetContext(ctx, &tt,
		"SELECT id, flight_id, fare_class, quantity, price_cents FROM trip_types WHERE id = $1 FOR UPDATE",
		tripTypeID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trip type %d: %w", tripTypeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock trip type: %w", err)
	}
	return &tt, nil
}

// CreateTicket inserts a single seat ticket
func (t *sqlTx) CreateTicket(ctx context.Context, ticket *models.TicketRecord) error {
	query := `
		INSERT INTO flight_tickets (flight_id, trip_type_id, user_id, price_cents, is_paid, state, flight_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return t.tx.QueryRowxContext(ctx, query,
		ticket.FlightID, ticket.TripTypeID, ticket.UserID, ticket.PriceCents,
		ticket.IsPaid, ticket.State, ticket.FlightDate).
		Scan(&ticket.ID, &ticket.CreatedAt)
}

// GetTicketsByIDs retrieves tickets in id order
func (s *Store) GetTicketsByIDs(ctx context.Context, ids []int64) ([]models.TicketRecord, error) {
	if len(ids) == 0 {
		return []models.TicketRecord{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, flight_id, trip_type_id, user_id, price_cents, is_paid, state, flight_date, created_at
		FROM flight_tickets WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var tickets []models.TicketRecord
	err = s.db.SelectContext(ctx, &tickets, query, args...)
	return tickets, err
}
