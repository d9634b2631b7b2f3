package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/util"

	"go.uber.org/zap"
)

// Job names
const (
	JobHotelCancel  = "hotel_cancel"
	JobHotelRemind  = "hotel_remind"
	JobTicketCancel = "ticket_cancel"
)

// ExpiryStore is the persistence ExpiryService depends on
type ExpiryStore interface {
	ListStaleHotelBookings(ctx context.Context, cutoff time.Time) ([]int64, error)
	CancelHotelBooking(ctx context.Context, bookingID int64) (bool, error)
	ListPaymentReminders(ctx context.Context, from, before time.Time) ([]models.PendingBookingNotice, error)
	ListStaleTickets(ctx context.Context, createdBefore time.Time) ([]int64, error)
	CancelTicket(ctx context.Context, ticketID int64) (bool, error)
}

// Notifier delivers a message to a guest, best effort
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// ExpiryPolicy holds the day thresholds of the expiry jobs
type ExpiryPolicy struct {
	HotelCancelAfterDays  int
	HotelRemindBeforeDays int
	TicketExpirationDays  int
}

// JobReport summarizes one run of an expiry job
type JobReport struct {
	Job        string
	Candidates int
	Succeeded  int
	Skipped    int
	Failed     int
}

// ExpiryService cancels stale unpaid reservations and reminds guests before cancellation
type ExpiryService struct {
	store          ExpiryStore
	notifier       Notifier
	eventPublisher EventPublisher
	policy         ExpiryPolicy
	now            func() time.Time
	logger         *zap.Logger
}

// NewExpiryService creates a new expiry service
func NewExpiryService(store ExpiryStore, notifier Notifier, eventPublisher EventPublisher, policy ExpiryPolicy) *ExpiryService {
	return &ExpiryService{
		store:          store,
		notifier:       notifier,
		eventPublisher: eventPublisher,
		policy:         policy,
		now:            time.Now,
		logger:         util.ComponentLogger("expiry"),
	}
}

// CancelStaleHotelBookings cancels unpaid pending bookings whose check-in is
// HotelCancelAfterDays or more in the past.
func (s *ExpiryService) CancelStaleHotelBookings(ctx context.Context) (JobReport, error) {
	ctx, span := util.StartSpan(ctx, "ExpiryService.CancelStaleHotelBookings")
	defer span.End()

	report := JobReport{Job: JobHotelCancel}
	cutoff := truncateDay(s.now()).AddDate(0, 0, -s.policy.HotelCancelAfterDays)

	ids, err := s.store.ListStaleHotelBookings(ctx, cutoff)
	if err != nil {
		util.FailSpan(span, err)
		return report, fmt.Errorf("failed to list stale bookings: %w", err)
	}
	report.Candidates = len(ids)

	for _, id := range ids {
		cancelled, err := s.store.CancelHotelBooking(ctx, id)
		if err != nil {
			report.Failed++
			s.logger.Error("Failed to cancel stale booking", zap.Int64("booking_id", id), zap.Error(err))
			continue
		}
		if !cancelled {
			report.Skipped++
			continue
		}
		report.Succeeded++

		if s.eventPublisher != nil {
			event := &models.BookingCancelledEvent{
				BaseEvent: newBaseEvent(models.EventTypeBookingCancelled, s.now()),
				BookingID: id,
				Reason:    "payment_overdue",
			}
			if err := s.eventPublisher.PublishBookingCancelled(ctx, event); err != nil {
				s.logger.Warn("Failed to publish BookingCancelled event", zap.Int64("booking_id", id), zap.Error(err))
			}
		}
	}

	s.finish(report)
	return report, nil
}

// RemindPendingHotelBookings emails guests whose unpaid booking checks in between
// today and HotelRemindBeforeDays from now.
func (s *ExpiryService) RemindPendingHotelBookings(ctx context.Context) (JobReport, error) {
	ctx, span := util.StartSpan(ctx, "ExpiryService.RemindPendingHotelBookings")
	defer span.End()

	report := JobReport{Job: JobHotelRemind}
	today := truncateDay(s.now())
	before := today.AddDate(0, 0, s.policy.HotelRemindBeforeDays)

	notices, err := s.store.ListPaymentReminders(ctx, today, before)
	if err != nil {
		util.FailSpan(span, err)
		return report, fmt.Errorf("failed to list pending bookings: %w", err)
	}
	report.Candidates = len(notices)

	for _, notice := range notices {
		if notice.Email == "" {
			report.Skipped++
			continue
		}
		subject, body := reminderMessage(notice)
		if err := s.notifier.Send(ctx, notice.Email, subject, body); err != nil {
			report.Failed++
			util.NotificationsFailedTotal.Inc()
			s.logger.Error("Failed to send payment reminder",
				zap.Int64("booking_id", notice.BookingID), zap.Error(err))
			continue
		}
		report.Succeeded++
	}

	s.finish(report)
	return report, nil
}

// CancelStaleTickets cancels unpaid pending tickets created more than
// TicketExpirationDays ago, regardless of flight date.
func (s *ExpiryService) CancelStaleTickets(ctx context.Context) (JobReport, error) {
	ctx, span := util.StartSpan(ctx, "ExpiryService.CancelStaleTickets")
	defer span.End()

	report := JobReport{Job: JobTicketCancel}
	cutoff := s.now().AddDate(0, 0, -s.policy.TicketExpirationDays)

	ids, err := s.store.ListStaleTickets(ctx, cutoff)
	if err != nil {
		util.FailSpan(span, err)
		return report, fmt.Errorf("failed to list stale tickets: %w", err)
	}
	report.Candidates = len(ids)

	for _, id := range ids {
		cancelled, err := s.store.CancelTicket(ctx, id)
		if err != nil {
			report.Failed++
			s.logger.Error("Failed to cancel stale ticket", zap.Int64("ticket_id", id), zap.Error(err))
			continue
		}
		if !cancelled {
			report.Skipped++
			continue
		}
		report.Succeeded++

		if s.eventPublisher != nil {
			event := &models.TicketCancelledEvent{
				BaseEvent: newBaseEvent(models.EventTypeTicketCancelled, s.now()),
				TicketID:  id,
				Reason:    "payment_overdue",
			}
			if err := s.eventPublisher.PublishTicketCancelled(ctx, event); err != nil {
				s.logger.Warn("Failed to publish TicketCancelled event", zap.Int64("ticket_id", id), zap.Error(err))
			}
		}
	}

	s.finish(report)
	return report, nil
}

func (s *ExpiryService) finish(report JobReport) {
	util.ExpiryItemsTotal.WithLabelValues(report.Job, "succeeded").Add(float64(report.Succeeded))
	util.ExpiryItemsTotal.WithLabelValues(report.Job, "skipped").Add(float64(report.Skipped))
	util.ExpiryItemsTotal.WithLabelValues(report.Job, "failed").Add(float64(report.Failed))

	s.logger.Info("Expiry job finished",
		zap.String("job", report.Job),
		zap.Int("candidates", report.Candidates),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
}

func reminderMessage(n models.PendingBookingNotice) (string, string) {
	hotel := html.EscapeString(n.HotelName)
	subject := "Urgent: Payment Required for Your Booking at " + n.HotelName
	body := fmt.Sprintf(`<html><body>
<h1>Payment Reminder</h1>
<p>Dear %s,</p>
<p>Your booking for <strong>%s</strong> on %s is pending payment.</p>
<p>Please pay today to avoid cancellation of your booking.</p>
<p>Total Amount: $%d.%02d</p>
<p>Thank you for choosing JetStay.</p>
</body></html>`,
		html.EscapeString(n.FirstName), hotel, n.CheckIn.Format(time.DateOnly),
		n.TotalPriceCents/100, n.TotalPriceCents%100)
	return subject, body
}
