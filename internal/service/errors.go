package service

import (
	"errors"
	"fmt"

	"reservation-service/internal/models"
	"reservation-service/internal/store"
)

var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrResourceNotFound = errors.New("resource not found")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrDuplicateRequest = errors.New("duplicate request in progress")
	ErrNotPending       = errors.New("reservation is not pending")
)

// CapacityError reports which resource could not satisfy a request
type CapacityError struct {
	Kind       string
	ResourceID int64
	Requested  int
	Available  int
}

func (e *CapacityError) Error() string {
	unit := "units"
	label := e.Kind
	switch e.Kind {
	case models.ResourceRoomType:
		unit, label = "rooms", "room type"
	case models.ResourceTripType:
		unit, label = "seats", "trip type"
	}
	return fmt.Sprintf("not enough %s available for %s %d: requested %d, available %d",
		unit, label, e.ResourceID, e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// notFound maps store.ErrNotFound onto ErrResourceNotFound and passes other errors through
func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrResourceNotFound, err)
	}
	return err
}
