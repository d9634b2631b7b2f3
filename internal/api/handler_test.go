package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/service"
	"reservation-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRooms struct{ mock.Mock }

func (m *mockRooms) CreateRoomBooking(ctx context.Context, req *service.CreateRoomBookingRequest) (*service.RoomBookingResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*service.RoomBookingResult)
	return res, args.Error(1)
}

func (m *mockRooms) RoomAvailability(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (*models.Availability, error) {
	args := m.Called(ctx, roomTypeID, checkIn, checkOut)
	res, _ := args.Get(0).(*models.Availability)
	return res, args.Error(1)
}

type mockTickets struct{ mock.Mock }

func (m *mockTickets) CreateTickets(ctx context.Context, req *service.CreateTicketsRequest) (*service.TicketBookingResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*service.TicketBookingResult)
	return res, args.Error(1)
}

func (m *mockTickets) SeatAvailability(ctx context.Context, tripTypeID int64) (*models.Availability, error) {
	args := m.Called(ctx, tripTypeID)
	res, _ := args.Get(0).(*models.Availability)
	return res, args.Error(1)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) MarkBookingPaid(ctx context.Context, bookingID int64) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockPayments) MarkTicketsPaid(ctx context.Context, ticketIDs []int64) (int64, error) {
	args := m.Called(ctx, ticketIDs)
	return args.Get(0).(int64), args.Error(1)
}

type mockReader struct{ mock.Mock }

func (m *mockReader) GetBookingTransaction(ctx context.Context, id int64) (*models.BookingTransaction, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.BookingTransaction)
	return res, args.Error(1)
}

func (m *mockReader) GetRoomBookingLines(ctx context.Context, bookingID int64) ([]models.RoomBookingLine, error) {
	args := m.Called(ctx, bookingID)
	res, _ := args.Get(0).([]models.RoomBookingLine)
	return res, args.Error(1)
}

func (m *mockReader) GetTicketsByIDs(ctx context.Context, ids []int64) ([]models.TicketRecord, error) {
	args := m.Called(ctx, ids)
	res, _ := args.Get(0).([]models.TicketRecord)
	return res, args.Error(1)
}

func (m *mockReader) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixture struct {
	rooms    *mockRooms
	tickets  *mockTickets
	payments *mockPayments
	reader   *mockReader
	router   *gin.Engine
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		rooms:    &mockRooms{},
		tickets:  &mockTickets{},
		payments: &mockPayments{},
		reader:   &mockReader{},
		router:   gin.New(),
	}
	NewHandler(f.rooms, f.tickets, f.payments, f.reader).SetupRoutes(f.router)
	return f
}

func (f *fixture) do(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

var bookingBody = gin.H{
	"hotel_id":    1,
	"guest_count": 2,
	"check_in":    "2025-06-01",
	"check_out":   "2025-06-03",
	"lines":       []gin.H{{"room_type_id": 10, "room_count": 2}},
}

func TestCreateRoomBooking(t *testing.T) {
	f := newFixture()

	f.rooms.On("CreateRoomBooking", mock.Anything, mock.MatchedBy(func(r *service.CreateRoomBookingRequest) bool {
		return r.UserID == 100 &&
			r.HotelID == 1 &&
			r.CheckIn.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) &&
			len(r.Lines) == 1 && r.Lines[0].RoomCount == 2 &&
			r.IdempotencyKey == ""
	})).Return(&service.RoomBookingResult{BookingTransactionID: 55, TotalPriceCents: 40000, Nights: 2}, nil)

	w := f.do(http.MethodPost, "/api/v1/hotel-bookings", "100", bookingBody)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"booking_transaction_id":55,"total_price_cents":40000,"nights":2}`, w.Body.String())
}

func TestCreateRoomBookingRequiresUser(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/v1/hotel-bookings", "", bookingBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	f.rooms.AssertNotCalled(t, "CreateRoomBooking", mock.Anything, mock.Anything)
}

func TestCreateRoomBookingBadDate(t *testing.T) {
	f := newFixture()

	body := gin.H{
		"hotel_id":    1,
		"guest_count": 2,
		"check_in":    "06/01/2025",
		"check_out":   "2025-06-03",
		"lines":       []gin.H{{"room_type_id": 10, "room_count": 1}},
	}
	w := f.do(http.MethodPost, "/api/v1/hotel-bookings", "100", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"capacity", &service.CapacityError{Kind: models.ResourceRoomType, ResourceID: 10, Requested: 2, Available: 1}, http.StatusConflict},
		{"not found", fmt.Errorf("%w: room type 10", service.ErrResourceNotFound), http.StatusNotFound},
		{"dates", service.ErrInvalidDateRange, http.StatusBadRequest},
		{"duplicate", service.ErrDuplicateRequest, http.StatusConflict},
		{"infrastructure", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.rooms.On("CreateRoomBooking", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := f.do(http.MethodPost, "/api/v1/hotel-bookings", "100", bookingBody)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCapacityMessageIsReturned(t *testing.T) {
	f := newFixture()
	f.tickets.On("CreateTickets", mock.Anything, mock.Anything).
		Return(nil, &service.CapacityError{Kind: models.ResourceTripType, ResourceID: 5, Requested: 3, Available: 2})

	w := f.do(http.MethodPost, "/api/v1/flight-tickets", "200", gin.H{"flight_id": 1, "trip_type_id": 5, "quantity": 3})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "not enough seats available for trip type 5")
}

func TestCreateTicketsPassesIdempotencyKey(t *testing.T) {
	f := newFixture()
	f.tickets.On("CreateTickets", mock.Anything, mock.MatchedBy(func(r *service.CreateTicketsRequest) bool {
		return r.UserID == 200 && r.Quantity == 2 && r.IdempotencyKey == "abc"
	})).Return(&service.TicketBookingResult{TicketIDs: []int64{1, 2}, PriceCents: 100, TotalPriceCents: 200}, nil)

	body, _ := json.Marshal(gin.H{"flight_id": 1, "trip_type_id": 5, "quantity": 2})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flight-tickets", bytes.NewReader(body))
	req.Header.Set(UserIDHeader, "200")
	req.Header.Set("Idempotency-Key", "abc")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	f.tickets.AssertExpectations(t)
}

func TestGetRoomBookingHidesOtherUsers(t *testing.T) {
	f := newFixture()
	f.reader.On("GetBookingTransaction", mock.Anything, int64(9)).
		Return(&models.BookingTransaction{ID: 9, UserID: 100}, nil)
	f.reader.On("GetRoomBookingLines", mock.Anything, int64(9)).
		Return([]models.RoomBookingLine{{ID: 1, BookingTransactionID: 9, RoomTypeID: 10, RoomCount: 1}}, nil)

	w := f.do(http.MethodGet, "/api/v1/hotel-bookings/9", "100", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/v1/hotel-bookings/9", "101", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRoomBookingMissing(t *testing.T) {
	f := newFixture()
	f.reader.On("GetBookingTransaction", mock.Anything, int64(404)).
		Return(nil, fmt.Errorf("booking 404: %w", store.ErrNotFound))

	w := f.do(http.MethodGet, "/api/v1/hotel-bookings/404", "100", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTicketsFiltersByOwner(t *testing.T) {
	f := newFixture()
	f.reader.On("GetTicketsByIDs", mock.Anything, []int64{1, 2}).Return([]models.TicketRecord{
		{ID: 1, UserID: 200},
		{ID: 2, UserID: 201},
	}, nil)

	w := f.do(http.MethodGet, "/api/v1/flight-tickets?ids=1,2", "200", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tickets []models.TicketRecord `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Tickets, 1)
	assert.Equal(t, int64(1), resp.Tickets[0].ID)

	w = f.do(http.MethodGet, "/api/v1/flight-tickets?ids=x", "200", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityRoutes(t *testing.T) {
	f := newFixture()
	f.rooms.On("RoomAvailability", mock.Anything, int64(10), mock.Anything, mock.Anything).
		Return(&models.Availability{ResourceKind: models.ResourceRoomType, ResourceID: 10, Total: 5, Committed: 3, Available: 2}, nil)
	f.tickets.On("SeatAvailability", mock.Anything, int64(5)).
		Return(&models.Availability{ResourceKind: models.ResourceTripType, ResourceID: 5, Total: 2, Committed: 2, Available: 0}, nil)

	w := f.do(http.MethodGet, "/api/v1/room-types/10/availability?check_in=2025-06-01&check_out=2025-06-02", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":2`)

	w = f.do(http.MethodGet, "/api/v1/trip-types/5/availability", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":0`)

	w = f.do(http.MethodGet, "/api/v1/room-types/10/availability", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentCallbacks(t *testing.T) {
	f := newFixture()
	f.payments.On("MarkBookingPaid", mock.Anything, int64(7)).Return(nil)
	f.payments.On("MarkBookingPaid", mock.Anything, int64(8)).Return(fmt.Errorf("booking 8: %w", service.ErrNotPending))
	f.payments.On("MarkBookingPaid", mock.Anything, int64(9)).Return(fmt.Errorf("%w: booking 9", service.ErrResourceNotFound))
	f.payments.On("MarkTicketsPaid", mock.Anything, []int64{3, 4}).Return(int64(2), nil)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/internal/payments/hotel-bookings/7", "", nil).Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/internal/payments/hotel-bookings/8", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/internal/payments/hotel-bookings/9", "", nil).Code)

	w := f.do(http.MethodPost, "/internal/payments/flight-tickets", "", gin.H{"ticket_ids": []int64{3, 4}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":2}`, w.Body.String())
}

func TestReadiness(t *testing.T) {
	f := newFixture()
	f.reader.On("Ping", mock.Anything).Return(nil).Once()
	f.reader.On("Ping", mock.Anything).Return(errors.New("dial tcp: refused"))

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "", nil).Code)
}
