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

// RoomStore is the persistence RoomBookingService depends on
type RoomStore interface {
	WithTx(ctx context.Context, fn func(store.Tx) error) error
	GetHotel(ctx context.Context, id int64) (*models.Hotel, error)
	GetRoomType(ctx context.Context, id int64) (*models.RoomType, error)
	GetRoomTypesByIDs(ctx context.Context, ids []int64) ([]models.RoomType, error)
	CommittedRooms(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (int, error)
}

// RoomBookingService reserves hotel rooms against derived room-type capacity
type RoomBookingService struct {
	store          RoomStore
	eventPublisher EventPublisher
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// NewRoomBookingService creates a new room booking service
func NewRoomBookingService(
	store RoomStore,
	eventPublisher EventPublisher,
	idempotency IdempotencyStore,
	idempotencyTTL time.Duration,
) *RoomBookingService {
	return &RoomBookingService{
		store:          store,
		eventPublisher: eventPublisher,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		now:            time.Now,
		logger:         util.ComponentLogger("room-booking"),
	}
}

// CreateRoomBookingRequest is one guest stay over one or more room types
type CreateRoomBookingRequest struct {
	UserID         int64
	HotelID        int64
	GuestCount     int
	CheckIn        time.Time
	CheckOut       time.Time
	Lines          []RoomLineRequest
	IdempotencyKey string
}

// RoomLineRequest asks for RoomCount rooms of one room type
type RoomLineRequest struct {
	RoomTypeID int64 `json:"room_type_id" binding:"required"`
	RoomCount  int   `json:"room_count" binding:"required,min=1"`
}

// RoomBookingResult is returned for a committed booking
type RoomBookingResult struct {
	BookingTransactionID int64 `json:"booking_transaction_id"`
	TotalPriceCents      int64 `json:"total_price_cents"`
	Nights               int   `json:"nights"`
}

// CreateRoomBooking reserves every requested line in one transaction or none of them
func (s *RoomBookingService) CreateRoomBooking(ctx context.Context, req *CreateRoomBookingRequest) (*RoomBookingResult, error) {
	ctx, span := util.StartSpan(ctx, "RoomBookingService.CreateRoomBooking",
		trace.WithAttributes(
			attribute.Int64("hotel.id", req.HotelID),
			attribute.Int("lines", len(req.Lines))))
	defer span.End()

	key := ""
	if req.IdempotencyKey != "" {
		key = fmt.Sprintf("room:%d:%s", req.UserID, req.IdempotencyKey)
	}

	result, err := withIdempotency(ctx, s.idempotency, s.logger, key, s.idempotencyTTL,
		func() (*RoomBookingResult, error) {
			return s.reserve(ctx, req)
		})
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	return result, nil
}

func (s *RoomBookingService) reserve(ctx context.Context, req *CreateRoomBookingRequest) (*RoomBookingResult, error) {
	checkIn, checkOut, err := s.validate(req)
	if err != nil {
		util.ReservationsTotal.WithLabelValues(models.ResourceRoomType, "invalid").Inc()
		return nil, err
	}
	stayNights := nights(checkIn, checkOut)

	if err := s.checkResources(ctx, req); err != nil {
		util.ReservationsTotal.WithLabelValues(models.ResourceRoomType, "not_found").Inc()
		return nil, err
	}

	booking := &models.BookingTransaction{
		UserID:     req.UserID,
		HotelID:    req.HotelID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		GuestCount: req.GuestCount,
		IsPaid:     false,
		Status:     models.BookingStatusPending,
	}
	var lines []models.BookingLineData

	start := time.Now()
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		lines = lines[:0]

		if err := tx.CreateBookingTransaction(ctx, booking); err != nil {
			return fmt.Errorf("failed to create booking transaction: %w", err)
		}

		ids := make([]int64, len(req.Lines))
		for i, line := range req.Lines {
			ids[i] = line.RoomTypeID
		}
		locked := make(map[int64]*models.RoomType, len(ids))
		for _, id := range lockOrder(ids) {
			rt, err := tx.LockRoomType(ctx, id)
			if err != nil {
				return notFound(err)
			}
			locked[id] = rt
		}

		var total int64
		for _, line := range req.Lines {
			rt := locked[line.RoomTypeID]

			committed, err := tx.CommittedRooms(ctx, rt.ID, checkIn, checkOut)
			if err != nil {
				return fmt.Errorf("failed to compute committed rooms: %w", err)
			}
			if avail := available(rt.Quantity, committed); avail < line.RoomCount {
				return &CapacityError{
					Kind:       models.ResourceRoomType,
					ResourceID: rt.ID,
					Requested:  line.RoomCount,
					Available:  avail,
				}
			}

			if err := tx.CreateRoomBookingLine(ctx, &models.RoomBookingLine{
				BookingTransactionID: booking.ID,
				RoomTypeID:           rt.ID,
				RoomCount:            line.RoomCount,
				CheckIn:              checkIn,
				CheckOut:             checkOut,
			}); err != nil {
				return fmt.Errorf("failed to create room booking line: %w", err)
			}

			total += int64(line.RoomCount) * rt.PriceCents * int64(stayNights)
			lines = append(lines, models.BookingLineData{RoomTypeID: rt.ID, RoomCount: line.RoomCount})
		}

		if err := tx.UpdateBookingTotal(ctx, booking.ID, total); err != nil {
			return fmt.Errorf("failed to update booking total: %w", err)
		}
		booking.TotalPriceCents = total
		return nil
	})
	util.ReservationTxLatency.WithLabelValues(models.ResourceRoomType).Observe(time.Since(start).Seconds())

	if err != nil {
		s.recordFailure(req, err)
		return nil, err
	}

	reserved := 0
	for _, line := range req.Lines {
		reserved += line.RoomCount
	}
	util.ReservationsTotal.WithLabelValues(models.ResourceRoomType, "reserved").Inc()
	util.UnitsReservedTotal.WithLabelValues(models.ResourceRoomType).Add(float64(reserved))
	s.logger.Info("Room booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", booking.UserID),
		zap.Int64("hotel_id", booking.HotelID),
		zap.Int64("total_price_cents", booking.TotalPriceCents))

	s.publishCreated(ctx, booking, lines)

	return &RoomBookingResult{
		BookingTransactionID: booking.ID,
		TotalPriceCents:      booking.TotalPriceCents,
		Nights:               stayNights,
	}, nil
}

func (s *RoomBookingService) validate(req *CreateRoomBookingRequest) (time.Time, time.Time, error) {
	if req.UserID <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}
	if req.HotelID <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: hotel is required", ErrInvalidRequest)
	}
	if req.GuestCount < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: guest count must be at least 1", ErrInvalidRequest)
	}
	if len(req.Lines) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: at least one room line is required", ErrInvalidRequest)
	}
	for _, line := range req.Lines {
		if line.RoomTypeID <= 0 || line.RoomCount <= 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: room line needs a room type and a positive room count", ErrInvalidRequest)
		}
	}
	return normalizeStay(req.CheckIn, req.CheckOut)
}

// checkResources rejects unknown hotels and room types before any lock is taken
func (s *RoomBookingService) checkResources(ctx context.Context, req *CreateRoomBookingRequest) error {
	if _, err := s.store.GetHotel(ctx, req.HotelID); err != nil {
		return notFound(err)
	}

	ids := make([]int64, len(req.Lines))
	for i, line := range req.Lines {
		ids[i] = line.RoomTypeID
	}
	distinct := lockOrder(ids)

	roomTypes, err := s.store.GetRoomTypesByIDs(ctx, distinct)
	if err != nil {
		return err
	}
	byID := make(map[int64]models.RoomType, len(roomTypes))
	for _, rt := range roomTypes {
		byID[rt.ID] = rt
	}
	for _, id := range distinct {
		rt, ok := byID[id]
		if !ok || rt.HotelID != req.HotelID {
			return fmt.Errorf("%w: room type %d in hotel %d", ErrResourceNotFound, id, req.HotelID)
		}
	}
	return nil
}

func (s *RoomBookingService) recordFailure(req *CreateRoomBookingRequest, err error) {
	var capErr *CapacityError
	switch {
	case errors.As(err, &capErr):
		util.ReservationsTotal.WithLabelValues(models.ResourceRoomType, "capacity").Inc()
		util.CapacityRejectionsTotal.WithLabelValues(models.ResourceRoomType).Inc()
		s.logger.Info("Room booking rejected",
			zap.Int64("hotel_id", req.HotelID),
			zap.Int64("room_type_id", capErr.ResourceID),
			zap.Int("requested", capErr.Requested),
			zap.Int("available", capErr.Available))
	case errors.Is(err, ErrResourceNotFound):
		util.ReservationsTotal.WithLabelValues(models.ResourceRoomType, "not_found").Inc()
	default:
		util.ReservationsTotal.WithLabelValues(models.ResourceRoomType, "error").Inc()
		s.logger.Error("Room booking failed", zap.Int64("hotel_id", req.HotelID), zap.Error(err))
	}
}

func (s *RoomBookingService) publishCreated(ctx context.Context, booking *models.BookingTransaction, lines []models.BookingLineData) {
	if s.eventPublisher == nil {
		return
	}
	event := &models.BookingCreatedEvent{
		BaseEvent:       newBaseEvent(models.EventTypeBookingCreated, s.now()),
		BookingID:       booking.ID,
		UserID:          booking.UserID,
		HotelID:         booking.HotelID,
		CheckIn:         booking.CheckIn,
		CheckOut:        booking.CheckOut,
		TotalPriceCents: booking.TotalPriceCents,
		Lines:           lines,
	}
	if err := s.eventPublisher.PublishBookingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCreated event",
			zap.Int64("booking_id", booking.ID), zap.Error(err))
	}
}

// RoomAvailability reports derived availability of a room type for a stay.
// It takes no lock and is for display only.
func (s *RoomBookingService) RoomAvailability(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (*models.Availability, error) {
	ctx, span := util.StartSpan(ctx, "RoomBookingService.RoomAvailability")
	defer span.End()

	in, out, err := normalizeStay(checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	rt, err := s.store.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, notFound(err)
	}

	committed, err := s.store.CommittedRooms(ctx, roomTypeID, in, out)
	if err != nil {
		util.FailSpan(span, err)
		return nil, fmt.Errorf("failed to compute committed rooms: %w", err)
	}

	return &models.Availability{
		ResourceKind: models.ResourceRoomType,
		ResourceID:   roomTypeID,
		Total:        rt.Quantity,
		Committed:    committed,
		Available:    available(rt.Quantity, committed),
	}, nil
}
