package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smith3v/tg-pantry-reminder/pkg/bot/notify"
	"github.com/smith3v/tg-pantry-reminder/pkg/db"
	"github.com/smith3v/tg-pantry-reminder/pkg/logger"
)

const (
	DefaultDailySpec    = "0 18 * * *"
	DefaultPollInterval = 30 * time.Second
)

// Store is the part of the record store the scheduler loops read and mutate.
type Store interface {
	HasProduct(ctx context.Context, name string) (bool, error)
	DueReminders(ctx context.Context, now time.Time) ([]db.Reminder, error)
	DeleteReminder(ctx context.Context, id uint) error
}

type Options struct {
	Important    []string
	Recipients   []int64
	DailySpec    string
	PollInterval time.Duration
	Location     *time.Location
	Now          func() time.Time
}

// Scheduler runs the daily important-products check and the personal
// reminder poller.
type Scheduler struct {
	store        Store
	dispatcher   *notify.Dispatcher
	important    []string
	recipients   []int64
	daily        cron.Schedule
	pollInterval time.Duration
	location     *time.Location
	now          func() time.Time

	// attempted holds reminders that were sent but could not be deleted.
	mu        sync.Mutex
	attempted map[uint]struct{}
}

func ParseDailySchedule(spec string) (cron.Schedule, error) {
	if spec == "" {
		spec = DefaultDailySpec
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid daily schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// NextDailyTrigger returns the first trigger strictly after now, in now's
// location.
func NextDailyTrigger(schedule cron.Schedule, now time.Time) time.Time {
	return schedule.Next(now)
}

func NewScheduler(store Store, dispatcher *notify.Dispatcher, opts Options) (*Scheduler, error) {
	daily, err := ParseDailySchedule(opts.DailySpec)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		store:        store,
		dispatcher:   dispatcher,
		important:    normalizeSet(opts.Important),
		recipients:   append([]int64(nil), opts.Recipients...),
		daily:        daily,
		pollInterval: opts.PollInterval,
		location:     opts.Location,
		now:          opts.Now,
		attempted:    make(map[uint]struct{}),
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// RunDaily blocks until ctx is done. The next target is recomputed from the
// wake-up time on every iteration; missed targets are not replayed.
func (s *Scheduler) RunDaily(ctx context.Context) {
	for {
		now := s.now().In(s.location)
		next := NextDailyTrigger(s.daily, now)
		logger.Debug("daily check scheduled", "at", next)
		if !sleepUntil(ctx, next.Sub(now)) {
			return
		}
		s.DailyCheck(ctx)
	}
}

// DailyCheck broadcasts the missing important products to every allowed user.
// A store failure aborts the check without sending anything.
func (s *Scheduler) DailyCheck(ctx context.Context) []notify.Result {
	missing, err := s.MissingImportant(ctx)
	if err != nil {
		logger.Error("failed to check important products", "error", err)
		return nil
	}
	results := s.dispatcher.Broadcast(ctx, s.recipients, RenderDailyCheck(missing))
	logger.Info("daily check sent", "missing", len(missing), "recipients", len(results), "failed", countFailed(results))
	return results
}

func (s *Scheduler) MissingImportant(ctx context.Context) ([]string, error) {
	var missing []string
	for _, name := range s.important {
		has, err := s.store.HasProduct(ctx, name)
		if err != nil {
			return nil, err
		}
		if !has {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// RunPersonal processes due reminders immediately and then on every poll
// interval until ctx is done.
func (s *Scheduler) RunPersonal(ctx context.Context) {
	s.ProcessDue(ctx, s.now())

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ProcessDue(ctx, s.now())
		}
	}
}

// ProcessDue delivers every reminder due at now to its owner and deletes it
// whether or not the delivery succeeded. A reminder whose delete failed is not
// sent again; only the delete is retried. It returns the number of delivery
// attempts.
func (s *Scheduler) ProcessDue(ctx context.Context, now time.Time) int {
	due, err := s.store.DueReminders(ctx, now)
	if err != nil {
		logger.Error("failed to fetch due reminders", "error", err)
		return 0
	}
	attempted := 0
	for _, reminder := range due {
		if s.wasAttempted(reminder.ID) {
			s.retryDelete(ctx, reminder.ID)
			continue
		}
		attempted++
		res := s.dispatcher.Deliver(ctx, reminder.Owner, RenderPersonal(reminder.Text))
		if err := s.store.DeleteReminder(ctx, reminder.ID); err != nil {
			logger.Error("failed to delete reminder", "reminder_id", reminder.ID, "error", err)
			s.markAttempted(reminder.ID)
			continue
		}
		logger.Debug("personal reminder handled", "reminder_id", reminder.ID, "owner", reminder.Owner, "delivered", res.Delivered())
	}
	return attempted
}

func (s *Scheduler) wasAttempted(id uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.attempted[id]
	return ok
}

func (s *Scheduler) markAttempted(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempted[id] = struct{}{}
}

// retryDelete removes a reminder that was already sent. It is never resent.
func (s *Scheduler) retryDelete(ctx context.Context, id uint) {
	if err := s.store.DeleteReminder(ctx, id); err != nil {
		logger.Error("failed to delete reminder", "reminder_id", id, "error", err)
		return
	}
	s.mu.Lock()
	delete(s.attempted, id)
	s.mu.Unlock()
}

func sleepUntil(ctx context.Context, d time.Duration) bool {
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func normalizeSet(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = db.NormalizeName(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func countFailed(results []notify.Result) int {
	failed := 0
	for _, res := range results {
		if !res.Delivered() {
			failed++
		}
	}
	return failed
}
