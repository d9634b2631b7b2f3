package models

import "time"

// Hotel owns room types
type Hotel struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// RoomType is the room inventory resource of a hotel
type RoomType struct {
	ID            int64  `db:"id" json:"id"`
	HotelID       int64  `db:"hotel_id" json:"hotel_id"`
	Name          string `db:"name" json:"name"`
	GuestCapacity int    `db:"guest_capacity" json:"guest_capacity"`
	Quantity      int    `db:"quantity" json:"quantity"`
	PriceCents    int64  `db:"price_cents" json:"price_cents"`
}

// Flight owns trip types
type Flight struct {
	ID            int64     `db:"id" json:"id"`
	AirlineID     int64     `db:"airline_id" json:"airline_id"`
	DepartureTime time.Time `db:"departure_time" json:"departure_time"`
}

// TripType is the seat inventory resource of a flight
type TripType struct {
	ID         int64  `db:"id" json:"id"`
	FlightID   int64  `db:"flight_id" json:"flight_id"`
	FareClass  string `db:"fare_class" json:"fare_class"`
	Quantity   int    `db:"quantity" json:"quantity"`
	PriceCents int64  `db:"price_cents" json:"price_cents"`
}

// BookingTransaction is the aggregate root of a hotel stay
type BookingTransaction struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	HotelID         int64     `db:"hotel_id" json:"hotel_id"`
	CheckIn         time.Time `db:"check_in" json:"check_in"`
	CheckOut        time.Time `db:"check_out" json:"check_out"`
	GuestCount      int       `db:"guest_count" json:"guest_count"`
	TotalPriceCents int64     `db:"total_price_cents" json:"total_price_cents"`
	IsPaid          bool      `db:"is_paid" json:"is_paid"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// RoomBookingLine is one room type line of a booking transaction
type RoomBookingLine struct {
	ID                   int64     `db:"id" json:"id"`
	BookingTransactionID int64     `db:"booking_transaction_id" json:"booking_transaction_id"`
	RoomTypeID           int64     `db:"room_type_id" json:"room_type_id"`
	RoomCount            int       `db:"room_count" json:"room_count"`
	CheckIn              time.Time `db:"check_in" json:"check_in"`
	CheckOut             time.Time `db:"check_out" json:"check_out"`
}

// TicketRecord is a single seat on a flight
type TicketRecord struct {
	ID         int64     `db:"id" json:"id"`
	FlightID   int64     `db:"flight_id" json:"flight_id"`
	TripTypeID int64     `db:"trip_type_id" json:"trip_type_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	PriceCents int64     `db:"price_cents" json:"price_cents"`
	IsPaid     bool      `db:"is_paid" json:"is_paid"`
	State      string    `db:"state" json:"state"`
	FlightDate time.Time `db:"flight_date" json:"flight_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// PendingBookingNotice is what the reminder pass needs to address a guest
type PendingBookingNotice struct {
	BookingID       int64     `db:"booking_id"`
	Email           string    `db:"email"`
	FirstName       string    `db:"first_name"`
	HotelName       string    `db:"hotel_name"`
	CheckIn         time.Time `db:"check_in"`
	TotalPriceCents int64     `db:"total_price_cents"`
}

// Booking transaction statuses
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusCompleted = "COMPLETED"
)

// Ticket states
const (
	TicketStatePending   = "PENDING"
	TicketStateCompleted = "COMPLETED"
	TicketStateCancelled = "CANCELLED"
)

// Inventory resource kinds
const (
	ResourceRoomType = "room_type"
	ResourceTripType = "trip_type"
)

// Availability is derived capacity of one inventory resource
type Availability struct {
	ResourceKind string `json:"resource_kind"`
	ResourceID   int64  `json:"resource_id"`
	Total        int    `json:"total"`
	Committed    int    `json:"committed"`
	Available    int    `json:"available"`
}
