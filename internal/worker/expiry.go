package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reservation-service/internal/redisclient"
	"reservation-service/internal/service"
	"reservation-service/internal/util"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpiryJobs is implemented by service.ExpiryService
type ExpiryJobs interface {
	CancelStaleHotelBookings(ctx context.Context) (service.JobReport, error)
	RemindPendingHotelBookings(ctx context.Context) (service.JobReport, error)
	CancelStaleTickets(ctx context.Context) (service.JobReport, error)
}

// LeaseFunc takes the named lease for ttl. It returns a nil release func
// when another instance holds the lease.
type LeaseFunc func(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)

// RedisLease adapts a redis client to LeaseFunc
func RedisLease(c *redisclient.Client) LeaseFunc {
	return func(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
		lease, err := c.AcquireLease(ctx, key, ttl)
		if err != nil || lease == nil {
			return nil, err
		}
		return lease.Release, nil
	}
}

// ExpiryScheduler runs the expiry jobs on a cron schedule. Each job takes a
// lease keyed by the tick so only one replica runs it per tick. A lease is kept
// until its TTL runs out, so leaseTTL must cover the clock spread between replicas.
type ExpiryScheduler struct {
	jobs     ExpiryJobs
	lease    LeaseFunc
	leaseTTL time.Duration
	schedule string
	now      func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewExpiryScheduler creates a scheduler. lease may be nil, in which case every
// replica runs every job.
func NewExpiryScheduler(jobs ExpiryJobs, lease LeaseFunc, schedule string, leaseTTL time.Duration) *ExpiryScheduler {
	return &ExpiryScheduler{
		jobs:     jobs,
		lease:    lease,
		leaseTTL: leaseTTL,
		schedule: schedule,
		now:      time.Now,
		logger:   util.ComponentLogger("expiry-scheduler"),
	}
}

// Start registers the daily pass and starts the cron runner
func (s *ExpiryScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	runCtx, cancel := context.WithCancel(ctx)

	var id cron.EntryID
	id, err := c.AddFunc(s.schedule, func() { s.runTick(runCtx, c.Entry(id).Prev) })
	if err != nil {
		cancel()
		return fmt.Errorf("invalid expiry schedule %q: %w", s.schedule, err)
	}

	s.cron, s.cancel = c, cancel
	c.Start()
	s.logger.Info("Expiry scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running pass to finish
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()
	if c == nil {
		return
	}

	<-c.Stop().Done()
	cancel()
	s.logger.Info("Expiry scheduler stopped")
}

// RunOnce runs the three jobs in order for the current minute. A failing job
// does not stop the others.
func (s *ExpiryScheduler) RunOnce(ctx context.Context) []service.JobReport {
	return s.runTick(ctx, s.now().Truncate(time.Minute))
}

func (s *ExpiryScheduler) runTick(ctx context.Context, tick time.Time) []service.JobReport {
	var reports []service.JobReport
	for _, job := range []struct {
		name string
		run  func(context.Context) (service.JobReport, error)
	}{
		{service.JobHotelCancel, s.jobs.CancelStaleHotelBookings},
		{service.JobHotelRemind, s.jobs.RemindPendingHotelBookings},
		{service.JobTicketCancel, s.jobs.CancelStaleTickets},
	} {
		if report, ok := s.runJob(ctx, job.name, tick, job.run); ok {
			reports = append(reports, report)
		}
	}
	return reports
}

func leaseKey(job string, tick time.Time) string {
	return fmt.Sprintf("expiry:%s:%s", job, tick.UTC().Format(time.RFC3339))
}

func (s *ExpiryScheduler) runJob(ctx context.Context, name string, tick time.Time, run func(context.Context) (service.JobReport, error)) (service.JobReport, bool) {
	var release func(context.Context) error
	if s.lease != nil {
		var err error
		release, err = s.lease(ctx, leaseKey(name, tick), s.leaseTTL)
		if err != nil {
			util.ExpiryJobRunsTotal.WithLabelValues(name, "lease_error").Inc()
			s.logger.Error("Failed to take job lease", zap.String("job", name), zap.Error(err))
			return service.JobReport{}, false
		}
		if release == nil {
			util.ExpiryJobRunsTotal.WithLabelValues(name, "skipped").Inc()
			s.logger.Info("Job lease held elsewhere, skipping", zap.String("job", name))
			return service.JobReport{}, false
		}
	}

	start := time.Now()
	report, err := run(ctx)
	if err != nil {
		util.ExpiryJobRunsTotal.WithLabelValues(name, "error").Inc()
		s.logger.Error("Expiry job failed", zap.String("job", name), zap.Error(err))
		// jobs only fail before touching any item, so another replica may retry the tick
		if release != nil {
			if err := release(context.Background()); err != nil {
				s.logger.Warn("Failed to release job lease", zap.String("job", name), zap.Error(err))
			}
		}
		return report, true
	}

	util.ExpiryJobRunsTotal.WithLabelValues(name, "ok").Inc()
	s.logger.Debug("Expiry job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	return report, true
}
