package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/service"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// UserIDHeader carries the caller identity established by the gateway
const UserIDHeader = "X-User-ID"

type RoomBooker interface {
	CreateRoomBooking(ctx context.Context, req *service.CreateRoomBookingRequest) (*service.RoomBookingResult, error)
	RoomAvailability(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (*models.Availability, error)
}

type TicketBooker interface {
	CreateTickets(ctx context.Context, req *service.CreateTicketsRequest) (*service.TicketBookingResult, error)
	SeatAvailability(ctx context.Context, tripTypeID int64) (*models.Availability, error)
}

type PaymentApplier interface {
	MarkBookingPaid(ctx context.Context, bookingID int64) error
	MarkTicketsPaid(ctx context.Context, ticketIDs []int64) (int64, error)
}

// ReservationReader serves read-only lookups of stored reservations
type ReservationReader interface {
	GetBookingTransaction(ctx context.Context, id int64) (*models.BookingTransaction, error)
	GetRoomBookingLines(ctx context.Context, bookingID int64) ([]models.RoomBookingLine, error)
	GetTicketsByIDs(ctx context.Context, ids []int64) ([]models.TicketRecord, error)
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	rooms    RoomBooker
	tickets  TicketBooker
	payments PaymentApplier
	reader   ReservationReader
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(rooms RoomBooker, tickets TicketBooker, payments PaymentApplier, reader ReservationReader) *Handler {
	return &Handler{
		rooms:    rooms,
		tickets:  tickets,
		payments: payments,
		reader:   reader,
		logger:   util.ComponentLogger("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/hotel-bookings", h.createRoomBooking)
		v1.GET("/hotel-bookings/:id", h.getRoomBooking)
		v1.GET("/room-types/:id/availability", h.roomAvailability)

		v1.POST("/flight-tickets", h.createTickets)
		v1.GET("/flight-tickets", h.getTickets)
		v1.GET("/trip-types/:id/availability", h.seatAvailability)
	}

	// Called by the payment provider adapter, not exposed through the gateway
	internal := router.Group("/internal/payments")
	{
		internal.POST("/hotel-bookings/:id", h.bookingPaid)
		internal.POST("/flight-tickets", h.ticketsPaid)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the database answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.reader.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type createRoomBookingBody struct {
	HotelID    int64                     `json:"hotel_id" binding:"required"`
	GuestCount int                       `json:"guest_count" binding:"required"`
	CheckIn    string                    `json:"check_in" binding:"required"`
	CheckOut   string                    `json:"check_out" binding:"required"`
	Lines      []service.RoomLineRequest `json:"lines" binding:"required,min=1,dive"`
}

func (h *Handler) createRoomBooking(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var body createRoomBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	checkIn, checkOut, err := parseStay(body.CheckIn, body.CheckOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.rooms.CreateRoomBooking(c.Request.Context(), &service.CreateRoomBookingRequest{
		UserID:         userID,
		HotelID:        body.HotelID,
		GuestCount:     body.GuestCount,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		Lines:          body.Lines,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) getRoomBooking(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.reader.GetBookingTransaction(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	// Other users' bookings are reported as missing
	if booking.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	lines, err := h.reader.GetRoomBookingLines(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking": booking,
		"lines":   lines,
	})
}

func (h *Handler) roomAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	checkIn, checkOut, err := parseStay(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	avail, err := h.rooms.RoomAvailability(c.Request.Context(), id, checkIn, checkOut)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

type createTicketsBody struct {
	FlightID   int64 `json:"flight_id" binding:"required"`
	TripTypeID int64 `json:"trip_type_id" binding:"required"`
	Quantity   int   `json:"quantity" binding:"required"`
}

func (h *Handler) createTickets(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var body createTicketsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.tickets.CreateTickets(c.Request.Context(), &service.CreateTicketsRequest{
		UserID:         userID,
		FlightID:       body.FlightID,
		TripTypeID:     body.TripTypeID,
		Quantity:       body.Quantity,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getTickets returns the caller's tickets among ?ids=1,2,3
func (h *Handler) getTickets(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ids, err := parseIDList(c.Query("ids"))
	if err != nil || len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids must be a comma separated list of ticket ids"})
		return
	}

	tickets, err := h.reader.GetTicketsByIDs(c.Request.Context(), ids)
	if err != nil {
		h.writeError(c, err)
		return
	}

	owned := make([]models.TicketRecord, 0, len(tickets))
	for _, t := range tickets {
		if t.UserID == userID {
			owned = append(owned, t)
		}
	}
	c.JSON(http.StatusOK, gin.H{"tickets": owned})
}

func (h *Handler) seatAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	avail, err := h.tickets.SeatAvailability(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

func (h *Handler) bookingPaid(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.payments.MarkBookingPaid(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_transaction_id": id, "is_paid": true})
}

type ticketsPaidBody struct {
	TicketIDs []int64 `json:"ticket_ids" binding:"required,min=1"`
}

func (h *Handler) ticketsPaid(c *gin.Context) {
	var body ticketsPaidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.payments.MarkTicketsPaid(c.Request.Context(), body.TicketIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// writeError maps service errors onto HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrCapacityExceeded):
		status = http.StatusConflict
	case errors.Is(err, service.ErrDuplicateRequest):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotPending):
		status = http.StatusConflict
	case errors.Is(err, service.ErrResourceNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidDateRange), errors.Is(err, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requireUser(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.GetHeader(UserIDHeader), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid " + UserIDHeader})
		return 0, false
	}
	return userID, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := time.Parse(time.DateOnly, checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("check_in must be YYYY-MM-DD")
	}
	out, err := time.Parse(time.DateOnly, checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("check_out must be YYYY-MM-DD")
	}
	return in, out, nil
}

func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
