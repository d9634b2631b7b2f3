package models

import "time"

// Event types
const (
	EventTypeBookingCreated        = "BOOKING_CREATED"
	EventTypeBookingCancelled      = "BOOKING_CANCELLED"
	EventTypeTicketsIssued         = "TICKETS_ISSUED"
	EventTypeTicketCancelled       = "TICKET_CANCELLED"
	EventTypePaymentSucceeded      = "PAYMENT_SUCCEEDED"
	EventTypeNotificationRequested = "NOTIFICATION_REQUESTED"
)

// Payment targets
const (
	PaymentTargetBooking = "BOOKING"
	PaymentTargetTickets = "TICKETS"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published after a hotel booking commits
type BookingCreatedEvent struct {
	BaseEvent
	BookingID       int64             `json:"booking_id"`
	UserID          int64             `json:"user_id"`
	HotelID         int64             `json:"hotel_id"`
	CheckIn         time.Time         `json:"check_in"`
	CheckOut        time.Time         `json:"check_out"`
	TotalPriceCents int64             `json:"total_price_cents"`
	Lines           []BookingLineData `json:"lines"`
}

// BookingLineData represents a room line in events
type BookingLineData struct {
	RoomTypeID int64 `json:"room_type_id"`
	RoomCount  int   `json:"room_count"`
}

// BookingCancelledEvent published when the expiry pass cancels a booking
type BookingCancelledEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	Reason    string `json:"reason"`
}

// TicketsIssuedEvent published after a seat booking commits
type TicketsIssuedEvent struct {
	BaseEvent
	FlightID   int64   `json:"flight_id"`
	TripTypeID int64   `json:"trip_type_id"`
	UserID     int64   `json:"user_id"`
	TicketIDs  []int64 `json:"ticket_ids"`
	PriceCents int64   `json:"price_cents"`
}

// TicketCancelledEvent published when the expiry pass cancels a ticket
type TicketCancelledEvent struct {
	BaseEvent
	TicketID int64  `json:"ticket_id"`
	Reason   string `json:"reason"`
}

// PaymentSucceededEvent is produced by the external payment provider
type PaymentSucceededEvent struct {
	BaseEvent
	Target    string  `json:"target"`
	BookingID int64   `json:"booking_id,omitempty"`
	TicketIDs []int64 `json:"ticket_ids,omitempty"`
	TxID      string  `json:"tx_id"`
}

// NotificationRequestedEvent asks the mail relay to deliver a message
type NotificationRequestedEvent struct {
	BaseEvent
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
