package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/store"
)

// fakeStore is an in-memory reservation store. Row locks are per-resource
// mutexes held until the fake transaction commits or rolls back, and writes
// are staged so that a failed transaction leaves nothing behind.
type fakeStore struct {
	mu        sync.Mutex
	rowLocks  map[string]*sync.Mutex
	lockOrder []string

	hotels    map[int64]models.Hotel
	roomTypes map[int64]models.RoomType
	flights   map[int64]models.Flight
	tripTypes map[int64]models.TripType

	bookings map[int64]models.BookingTransaction
	lines    []models.RoomBookingLine
	tickets  []models.TicketRecord
	nextID   int64

	failLineInsert error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rowLocks:  make(map[string]*sync.Mutex),
		hotels:    make(map[int64]models.Hotel),
		roomTypes: make(map[int64]models.RoomType),
		flights:   make(map[int64]models.Flight),
		tripTypes: make(map[int64]models.TripType),
		bookings:  make(map[int64]models.BookingTransaction),
	}
}

func (f *fakeStore) addHotel(id int64) {
	f.hotels[id] = models.Hotel{ID: id, Name: fmt.Sprintf("Hotel %d", id)}
}

func (f *fakeStore) addRoomType(id, hotelID int64, quantity int, price int64) {
	f.roomTypes[id] = models.RoomType{ID: id, HotelID: hotelID, Name: "Double", GuestCapacity: 2, Quantity: quantity, PriceCents: price}
}

func (f *fakeStore) addFlight(id int64, departure time.Time) {
	f.flights[id] = models.Flight{ID: id, AirlineID: 1, DepartureTime: departure}
}

func (f *fakeStore) addTripType(id, flightID int64, quantity int, price int64) {
	f.tripTypes[id] = models.TripType{ID: id, FlightID: flightID, FareClass: "ECONOMY", Quantity: quantity, PriceCents: price}
}

func (f *fakeStore) setTripTypePrice(id int64, price int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt := f.tripTypes[id]
	tt.PriceCents = price
	f.tripTypes[id] = tt
}

func (f *fakeStore) rowLock(key string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rowLocks[key]
	if !ok {
		l = &sync.Mutex{}
		f.rowLocks[key] = l
	}
	f.lockOrder = append(f.lockOrder, key)
	return l
}

func (f *fakeStore) allocID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

func (f *fakeStore) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

func (f *fakeStore) lineCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

func (f *fakeStore) ticketCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickets)
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	tx := &fakeTx{store: f, bookings: make(map[int64]models.BookingTransaction)}
	defer tx.releaseLocks()

	if err := fn(tx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for id, b := range tx.bookings {
		f.bookings[id] = b
	}
	f.lines = append(f.lines, tx.lines...)
	f.tickets = append(f.tickets, tx.tickets...)
	return nil
}

func (f *fakeStore) GetHotel(ctx context.Context, id int64) (*models.Hotel, error) {
	h, ok := f.hotels[id]
	if !ok {
		return nil, fmt.Errorf("hotel %d: %w", id, store.ErrNotFound)
	}
	return &h, nil
}

func (f *fakeStore) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.roomTypes[id]
	if !ok {
		return nil, fmt.Errorf("room type %d: %w", id, store.ErrNotFound)
	}
	return &rt, nil
}

func (f *fakeStore) GetRoomTypesByIDs(ctx context.Context, ids []int64) ([]models.RoomType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RoomType
	for _, id := range ids {
		if rt, ok := f.roomTypes[id]; ok {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (f *fakeStore) CommittedRooms(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sumOverlapping(f.lines, f.bookings, nil, roomTypeID, checkIn, checkOut), nil
}

func (f *fakeStore) GetFlight(ctx context.Context, id int64) (*models.Flight, error) {
	fl, ok := f.flights[id]
	if !ok {
		return nil, fmt.Errorf("flight %d: %w", id, store.ErrNotFound)
	}
	return &fl, nil
}

func (f *fakeStore) GetTripType(ctx context.Context, id int64) (*models.TripType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.tripTypes[id]
	if !ok {
		return nil, fmt.Errorf("trip type %d: %w", id, store.ErrNotFound)
	}
	return &tt, nil
}

func (f *fakeStore) CommittedSeats(ctx context.Context, tripTypeID int64, excludeCancelled bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return countSeats(f.tickets, tripTypeID, excludeCancelled), nil
}

func sumOverlapping(lines []models.RoomBookingLine, bookings, staged map[int64]models.BookingTransaction, roomTypeID int64, checkIn, checkOut time.Time) int {
	total := 0
	for _, l := range lines {
		if l.RoomTypeID != roomTypeID {
			continue
		}
		b, ok := bookings[l.BookingTransactionID]
		if !ok {
			b = staged[l.BookingTransactionID]
		}
		if b.Status == models.BookingStatusCancelled {
			continue
		}
		if !l.CheckOut.After(checkIn) || !l.CheckIn.Before(checkOut) {
			continue
		}
		total += l.RoomCount
	}
	return total
}

func countSeats(tickets []models.TicketRecord, tripTypeID int64, excludeCancelled bool) int {
	n := 0
	for _, t := range tickets {
		if t.TripTypeID != tripTypeID {
			continue
		}
		if excludeCancelled && t.State == models.TicketStateCancelled {
			continue
		}
		n++
	}
	return n
}

type fakeTx struct {
	store    *fakeStore
	held     []*sync.Mutex
	bookings map[int64]models.BookingTransaction
	lines    []models.RoomBookingLine
	tickets  []models.TicketRecord
}

func (t *fakeTx) releaseLocks() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
}

func (t *fakeTx) LockRoomType(ctx context.Context, roomTypeID int64) (*models.RoomType, error) {
	l := t.store.rowLock(fmt.Sprintf("room_type:%d", roomTypeID))
	l.Lock()
	t.held = append(t.held, l)
	return t.store.GetRoomType(ctx, roomTypeID)
}

func (t *fakeTx) CommittedRooms(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	all := append(append([]models.RoomBookingLine{}, t.store.lines...), t.lines...)
	return sumOverlapping(all, t.store.bookings, t.bookings, roomTypeID, checkIn, checkOut), nil
}

func (t *fakeTx) CreateBookingTransaction(ctx context.Context, booking *models.BookingTransaction) error {
	booking.ID = t.store.allocID()
	booking.CreatedAt = time.Now()
	t.bookings[booking.ID] = *booking
	return nil
}

func (t *fakeTx) CreateRoomBookingLine(ctx context.Context, line *models.RoomBookingLine) error {
	if t.store.failLineInsert != nil {
		return t.store.failLineInsert
	}
	line.ID = t.store.allocID()
	t.lines = append(t.lines, *line)
	return nil
}

func (t *fakeTx) UpdateBookingTotal(ctx context.Context, bookingID int64, totalPriceCents int64) error {
	b := t.bookings[bookingID]
	b.TotalPriceCents = totalPriceCents
	t.bookings[bookingID] = b
	return nil
}

func (t *fakeTx) LockTripType(ctx context.Context, tripTypeID int64) (*models.TripType, error) {
	l := t.store.rowLock(fmt.Sprintf("trip_type:%d", tripTypeID))
	l.Lock()
	t.held = append(t.held, l)
	return t.store.GetTripType(ctx, tripTypeID)
}

func (t *fakeTx) CommittedSeats(ctx context.Context, tripTypeID int64, excludeCancelled bool) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return countSeats(t.store.tickets, tripTypeID, excludeCancelled) + countSeats(t.tickets, tripTypeID, excludeCancelled), nil
}

func (t *fakeTx) CreateTicket(ctx context.Context, ticket *models.TicketRecord) error {
	ticket.ID = t.store.allocID()
	ticket.CreatedAt = time.Now()
	t.tickets = append(t.tickets, *ticket)
	return nil
}

var _ store.Tx = (*fakeTx)(nil)
var _ RoomStore = (*fakeStore)(nil)
var _ SeatStore = (*fakeStore)(nil)

// memoryIdempotency is an in-memory IdempotencyStore
type memoryIdempotency struct {
	mu      sync.Mutex
	results map[string][]byte
	locks   map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{results: make(map[string][]byte), locks: make(map[string]bool)}
}

func (m *memoryIdempotency) GetIdempotentResult(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.results[key]
	return v, ok, nil
}

func (m *memoryIdempotency) SetIdempotentResult(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = value
	return nil
}

func (m *memoryIdempotency) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[lockKey] {
		return false, nil
	}
	m.locks[lockKey] = true
	return true, nil
}

func (m *memoryIdempotency) ReleaseLock(ctx context.Context, lockKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, lockKey)
	return nil
}
