package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SeatStore is the persistence TicketBookingService depends on
type SeatStore interface {
	WithTx(ctx context.Context, fn func(store.Tx) error) error
	GetFlight(ctx context.Context, id int64) (*models.Flight, error)
	GetTripType(ctx context.Context, id int64) (*models.TripType, error)
	CommittedSeats(ctx context.Context, tripTypeID int64, excludeCancelled bool) (int, error)
}

// TicketBookingService issues one ticket row per seat against derived trip-type capacity
type TicketBookingService struct {
	store                 SeatStore
	eventPublisher        EventPublisher
	idempotency           IdempotencyStore
	idempotencyTTL        time.Duration
	releaseCancelledSeats bool
	now                   func() time.Time
	logger                *zap.Logger
}

// TicketBookingOption customizes a TicketBookingService
type TicketBookingOption func(*TicketBookingService)

// WithReleasedCancelledSeats stops counting CANCELLED tickets as committed seats
func WithReleasedCancelledSeats(release bool) TicketBookingOption {
	return func(s *TicketBookingService) {
		s.releaseCancelledSeats = release
	}
}

// NewTicketBookingService creates a new ticket booking service
func NewTicketBookingService(
	store SeatStore,
	eventPublisher EventPublisher,
	idempotency IdempotencyStore,
	idempotencyTTL time.Duration,
	opts ...TicketBookingOption,
) *TicketBookingService {
	s := &TicketBookingService{
		store:          store,
		eventPublisher: eventPublisher,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		now:            time.Now,
		logger:         util.ComponentLogger("ticket-booking"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTicketsRequest asks for Quantity seats of one trip type on one flight
type CreateTicketsRequest struct {
	UserID         int64
	FlightID       int64
	TripTypeID     int64
	Quantity       int
	IdempotencyKey string
}

// TicketBookingResult lists created ticket ids in creation order
type TicketBookingResult struct {
	TicketIDs       []int64 `json:"ticket_ids"`
	PriceCents      int64   `json:"price_cents"`
	TotalPriceCents int64   `json:"total_price_cents"`
}

// CreateTickets issues all requested tickets or none
func (s *TicketBookingService) CreateTickets(ctx context.Context, req *CreateTicketsRequest) (*TicketBookingResult, error) {
	ctx, span := util.StartSpan(ctx, "TicketBookingService.CreateTickets",
		trace.WithAttributes(
			attribute.Int64("flight.id", req.FlightID),
			attribute.Int64("trip_type.id", req.TripTypeID),
			attribute.Int("quantity", req.Quantity)))
	defer span.End()

	key := ""
	if req.IdempotencyKey != "" {
		key = fmt.Sprintf("tickets:%d:%s", req.UserID, req.IdempotencyKey)
	}

	result, err := withIdempotency(ctx, s.idempotency, s.logger, key, s.idempotencyTTL,
		func() (*TicketBookingResult, error) {
			return s.issue(ctx, req)
		})
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	return result, nil
}

func (s *TicketBookingService) issue(ctx context.Context, req *CreateTicketsRequest) (*TicketBookingResult, error) {
	if err := validateTicketRequest(req); err != nil {
		util.ReservationsTotal.WithLabelValues(models.ResourceTripType, "invalid").Inc()
		return nil, err
	}

	flight, err := s.store.GetFlight(ctx, req.FlightID)
	if err != nil {
		util.ReservationsTotal.WithLabelValues(models.ResourceTripType, "not_found").Inc()
		return nil, notFound(err)
	}
	tripType, err := s.store.GetTripType(ctx, req.TripTypeID)
	if err != nil {
		util.ReservationsTotal.WithLabelValues(models.ResourceTripType, "not_found").Inc()
		return nil, notFound(err)
	}
	if tripType.FlightID != flight.ID {
		util.ReservationsTotal.WithLabelValues(models.ResourceTripType, "not_found").Inc()
		return nil, fmt.Errorf("%w: trip type %d on flight %d", ErrResourceNotFound, req.TripTypeID, req.FlightID)
	}

	flightDate := truncateDay(flight.DepartureTime)
	var ticketIDs []int64
	var price int64

	start := time.Now()
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		ticketIDs = make([]int64, 0, req.Quantity)

		locked, err := tx.LockTripType(ctx, req.TripTypeID)
		if err != nil {
			return notFound(err)
		}

		committed, err := tx.CommittedSeats(ctx, locked.ID, s.releaseCancelledSeats)
		if err != nil {
			return fmt.Errorf("failed to count committed seats: %w", err)
		}
		if avail := available(locked.Quantity, committed); avail < req.Quantity {
			return &CapacityError{
				Kind:       models.ResourceTripType,
				ResourceID: locked.ID,
				Requested:  req.Quantity,
				Available:  avail,
			}
		}

		price = locked.PriceCents
		for i := 0; i < req.Quantity; i++ {
			ticket := &models.TicketRecord{
				FlightID:   flight.ID,
				TripTypeID: locked.ID,
				UserID:     req.UserID,
				PriceCents: price,
				IsPaid:     false,
				State:      models.TicketStatePending,
				FlightDate: flightDate,
			}
			if err := tx.CreateTicket(ctx, ticket); err != nil {
				return fmt.Errorf("failed to create ticket: %w", err)
			}
			ticketIDs = append(ticketIDs, ticket.ID)
		}
		return nil
	})
	util.ReservationTxLatency.WithLabelValues(models.ResourceTripType).Observe(time.Since(start).Seconds())

	if err != nil {
		s.recordFailure(req, err)
		return nil, err
	}

	util.ReservationsTotal.WithLabelValues(models.ResourceTripType, "reserved").Inc()
	util.UnitsReservedTotal.WithLabelValues(models.ResourceTripType).Add(float64(len(ticketIDs)))
	s.logger.Info("Tickets issued",
		zap.Int64("flight_id", flight.ID),
		zap.Int64("trip_type_id", req.TripTypeID),
		zap.Int64("user_id", req.UserID),
		zap.Int("quantity", len(ticketIDs)))

	s.publishIssued(ctx, req, ticketIDs, price)

	return &TicketBookingResult{
		TicketIDs:       ticketIDs,
		PriceCents:      price,
		TotalPriceCents: price * int64(len(ticketIDs)),
	}, nil
}

func validateTicketRequest(req *CreateTicketsRequest) error {
	if req.UserID <= 0 {
		return fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}
	if req.FlightID <= 0 || req.TripTypeID <= 0 {
		return fmt.Errorf("%w: flight and trip type are required", ErrInvalidRequest)
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	return nil
}

func (s *TicketBookingService) recordFailure(req *CreateTicketsRequest, err error) {
	var capErr *CapacityError
	switch {
	case errors.As(err, &capErr):
		util.ReservationsTotal.WithLabelValues(models.ResourceTripType, "capacity").Inc()
		util.CapacityRejectionsTotal.WithLabelValues(models.ResourceTripType).Inc()
		s.logger.Info("Ticket booking rejected",
			zap.Int64("trip_type_id", capErr.ResourceID),
			zap.Int("requested", capErr.Requested),
			zap.Int("available", capErr.Available))
	case errors.Is(err, ErrResourceNotFound):
		util.ReservationsTotal.WithLabelValues(models.ResourceTripType, "not_found").Inc()
	default:
		util.ReservationsTotal.WithLabelValues(models.ResourceTripType, "error").Inc()
		s.logger.Error("Ticket booking failed", zap.Int64("trip_type_id", req.TripTypeID), zap.Error(err))
	}
}

func (s *TicketBookingService) publishIssued(ctx context.Context, req *CreateTicketsRequest, ticketIDs []int64, price int64) {
	if s.eventPublisher == nil {
		return
	}
	event := &models.TicketsIssuedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeTicketsIssued, s.now()),
		FlightID:   req.FlightID,
		TripTypeID: req.TripTypeID,
		UserID:     req.UserID,
		TicketIDs:  ticketIDs,
		PriceCents: price,
	}
	if err := s.eventPublisher.PublishTicketsIssued(ctx, event); err != nil {
		s.logger.Error("Failed to publish TicketsIssued event",
			zap.Int64("trip_type_id", req.TripTypeID), zap.Error(err))
	}
}

// SeatAvailability reports derived availability of a trip type without locking
func (s *TicketBookingService) SeatAvailability(ctx context.Context, tripTypeID int64) (*models.Availability, error) {
	ctx, span := util.StartSpan(ctx, "TicketBookingService.SeatAvailability")
	defer span.End()

	tt, err := s.store.GetTripType(ctx, tripTypeID)
	if err != nil {
		return nil, notFound(err)
	}

	committed, err := s.store.CommittedSeats(ctx, tripTypeID, s.releaseCancelledSeats)
	if err != nil {
		util.FailSpan(span, err)
		return nil, fmt.Errorf("failed to count committed seats: %w", err)
	}

	return &models.Availability{
		ResourceKind: models.ResourceTripType,
		ResourceID:   tripTypeID,
		Total:        tt.Quantity,
		Committed:    committed,
		Available:    available(tt.Quantity, committed),
	}, nil
}
