// Package scheduler drives supervisor reminders: it converts notification
// preferences into due slots and dispatches at most one message per slot.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/gateway"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/metrics"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// Clock abstracts wall-clock time so due-slot computation is testable
// without real waits.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// Store is the persistence surface the scheduler needs. The scheduler
// only reads committed state; it never participates in approval
// transactions.
type Store interface {
	ListEnabledPreferences(ctx context.Context) ([]model.NotificationPreference, error)
	ListApprovedStartingOn(ctx context.Context, start time.Time) ([]model.VacationRequest, error)
	GetRequest(ctx context.Context, id int64) (*model.VacationRequest, error)
	GetSupervisor(ctx context.Context, id int64) (*model.Supervisor, error)
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)

	HistoryExists(ctx context.Context, requestID int64, slotDate time.Time, slotTime string) (bool, error)
	CreateHistory(ctx context.Context, h *model.NotificationHistory) (created bool, err error)
	MarkHistorySent(ctx context.Context, id int64, providerMessageID, providerStatus string) error
	MarkHistoryFailed(ctx context.Context, id int64, providerStatus string) error
}

// Config holds scheduler settings.
type Config struct {
	// PollInterval is how often due slots are checked.
	PollInterval time.Duration
	// Tolerance is the window after a slot time during which a tick
	// still counts as matching it.
	Tolerance time.Duration
	// DispatchTimeout bounds a single gateway call.
	DispatchTimeout time.Duration
	// MaxRetries bounds additional attempts after a retryable failure.
	MaxRetries int
	// RetryDelays are the waits between attempts.
	RetryDelays []time.Duration
	// RatePerSecond and Burst configure the dispatch rate limiter.
	RatePerSecond float64
	Burst         int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    1 * time.Minute,
		Tolerance:       1 * time.Minute,
		DispatchTimeout: 10 * time.Second,
		MaxRetries:      2,
		RetryDelays:     []time.Duration{1 * time.Second, 5 * time.Second},
		RatePerSecond:   20,
		Burst:           30,
	}
}

// Scheduler is the periodic reminder process.
type Scheduler struct {
	config  Config
	store   Store
	gateway gateway.Gateway
	clock   Clock
	limiter *rate.Limiter
	logger  zerolog.Logger

	tzMu sync.Mutex
	tzs  map[string]*time.Location

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New creates a scheduler. Both the clock and the gateway are injected.
func New(config Config, store Store, gw gateway.Gateway, clock Clock, logger zerolog.Logger) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = 1 * time.Minute
	}
	if config.Tolerance <= 0 {
		config.Tolerance = 1 * time.Minute
	}
	if config.DispatchTimeout <= 0 {
		config.DispatchTimeout = 10 * time.Second
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 20
	}
	if config.Burst <= 0 {
		config.Burst = 30
	}
	if clock == nil {
		clock = SystemClock()
	}

	return &Scheduler{
		config:  config,
		store:   store,
		gateway: gw,
		clock:   clock,
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		logger:  logger.With().Str("component", "scheduler").Logger(),
		tzs:     make(map[string]*time.Location),
		stopCh:  make(chan struct{}),
	}
}

// Start begins the tick loop and blocks until the context is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Dur("poll_interval", s.config.PollInterval).
		Msg("notification scheduler started")

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("notification scheduler stopped by context")
			return
		case <-s.stopCh:
			s.logger.Info().Msg("notification scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop stops the scheduler loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

// Tick processes all due slots once. One failed dispatch never aborts the
// remaining batch.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now()

	prefs, err := s.store.ListEnabledPreferences(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list preferences")
		return
	}

	for i := range prefs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.processPreference(ctx, &prefs[i], now)
	}
}

func (s *Scheduler) processPreference(ctx context.Context, pref *model.NotificationPreference, now time.Time) {
	loc, err := s.location(pref.Timezone)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("supervisor_id", pref.SupervisorID).
			Str("timezone", pref.Timezone).
			Msg("invalid preference timezone")
		return
	}

	local := now.In(loc)
	slot, due := dueSlot(pref, local, s.config.Tolerance)
	if !due {
		return
	}

	localDate := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	targetStart := localDate.AddDate(0, 0, pref.DaysBefore)

	requests, err := s.store.ListApprovedStartingOn(ctx, targetStart)
	if err != nil {
		s.logger.Error().Err(err).Msg("list approved requests")
		return
	}

	for i := range requests {
		if requests[i].SupervisorID != pref.SupervisorID {
			continue
		}
		if err := s.fireSlot(ctx, pref, &requests[i], localDate, slot); err != nil {
			s.logger.Error().Err(err).
				Int64("request_id", requests[i].ID).
				Str("slot", slot).
				Msg("slot fire failed")
		}
	}
}

// dueSlot reports which configured slot time, if any, matches the local
// time within the tolerance window. Only the first NotificationsPerDay
// slots are honored.
func dueSlot(pref *model.NotificationPreference, local time.Time, tolerance time.Duration) (string, bool) {
	times := pref.NotificationTimes
	if len(times) > pref.NotificationsPerDay && pref.NotificationsPerDay > 0 {
		times = times[:pref.NotificationsPerDay]
	}

	for _, t := range times {
		parsed, err := time.Parse("15:04", t)
		if err != nil {
			continue
		}
		slotAt := time.Date(local.Year(), local.Month(), local.Day(),
			parsed.Hour(), parsed.Minute(), 0, 0, local.Location())
		diff := local.Sub(slotAt)
		if diff >= 0 && diff < tolerance {
			return t, true
		}
	}
	return "", false
}

// fireSlot dispatches one reminder for one request/slot pair at most once.
func (s *Scheduler) fireSlot(ctx context.Context, pref *model.NotificationPreference, req *model.VacationRequest, slotDate time.Time, slot string) error {
	exists, err := s.store.HistoryExists(ctx, req.ID, slotDate, slot)
	if err != nil {
		return fmt.Errorf("history lookup: %w", err)
	}
	if exists {
		return nil
	}

	// Re-read: the request may have been cancelled since the candidate
	// list was built.
	current, err := s.store.GetRequest(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("re-read request: %w", err)
	}
	if current.Status != model.StatusApproved {
		s.logger.Debug().
			Int64("request_id", req.ID).
			Str("status", current.Status).
			Msg("skipping reminder, request no longer approved")
		return nil
	}

	sup, err := s.store.GetSupervisor(ctx, pref.SupervisorID)
	if err != nil {
		return fmt.Errorf("load supervisor: %w", err)
	}
	emp, err := s.store.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return fmt.Errorf("load employee: %w", err)
	}

	content := ComposeReminder(emp, req, pref.DaysBefore)
	h := &model.NotificationHistory{
		SupervisorID:      pref.SupervisorID,
		VacationRequestID: req.ID,
		SlotDate:          slotDate,
		SlotTime:          slot,
		Channel:           "telegram",
		Content:           content,
		Status:            model.DeliveryPending,
	}
	created, err := s.store.CreateHistory(ctx, h)
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	if !created {
		// Another tick claimed the slot first.
		return nil
	}

	to := Recipient(pref, sup)
	if err := s.dispatch(ctx, h, to, content); err != nil {
		metrics.IncReminderFired(model.DeliveryFailed)
		return err
	}
	metrics.IncReminderFired(model.DeliverySent)
	return nil
}

// dispatch sends with a bounded timeout and bounded retries, then records
// the outcome on the history row.
func (s *Scheduler) dispatch(ctx context.Context, h *model.NotificationHistory, to, body string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	started := time.Now()
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := 1 * time.Second
			if attempt-1 < len(s.config.RetryDelays) {
				delay = s.config.RetryDelays[attempt-1]
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
		}

		sendCtx, cancel := context.WithTimeout(ctx, s.config.DispatchTimeout)
		res, err := s.gateway.Send(sendCtx, to, body)
		cancel()
		if err == nil {
			metrics.ObserveDispatchDuration(time.Since(started).Seconds())
			if err := s.store.MarkHistorySent(ctx, h.ID, res.ProviderMessageID, res.Status); err != nil {
				return fmt.Errorf("mark sent: %w", err)
			}
			s.logger.Info().
				Int64("request_id", h.VacationRequestID).
				Str("slot", h.SlotTime).
				Str("provider_message_id", res.ProviderMessageID).
				Msg("reminder sent")
			return nil
		}

		lastErr = err
		if !gateway.IsRetryable(err) {
			break
		}
	}

	if err := s.store.MarkHistoryFailed(ctx, h.ID, lastErr.Error()); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return fmt.Errorf("dispatch to %s: %w", to, lastErr)
}

func (s *Scheduler) location(name string) (*time.Location, error) {
	s.tzMu.Lock()
	defer s.tzMu.Unlock()
	if loc, ok := s.tzs[name]; ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	s.tzs[name] = loc
	return loc, nil
}
