package reminders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smith3v/tg-pantry-reminder/pkg/bot/notify"
	"github.com/smith3v/tg-pantry-reminder/pkg/db"
	"github.com/smith3v/tg-pantry-reminder/pkg/internal/testutil"
	"github.com/smith3v/tg-pantry-reminder/pkg/logger"
	"go.uber.org/goleak"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu       sync.Mutex
	failFor  map[int64]bool
	messages []sentMessage
}

func (s *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[chatID] {
		return errors.New("send failed")
	}
	s.messages = append(s.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

func (s *fakeSender) sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.messages...)
}

type fakeStore struct {
	mu        sync.Mutex
	products  map[string]bool
	reminders []db.Reminder
	hasErr    error
	dueErr    error
	deleteErr error
	deleted   []uint
}

func (s *fakeStore) HasProduct(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasErr != nil {
		return false, s.hasErr
	}
	return s.products[name], nil
}

func (s *fakeStore) DueReminders(_ context.Context, now time.Time) ([]db.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dueErr != nil {
		return nil, s.dueErr
	}
	var due []db.Reminder
	for _, r := range s.reminders {
		if !r.FireAt.After(now) {
			due = append(due, r)
		}
	}
	return due, nil
}

func (s *fakeStore) DeleteReminder(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	kept := s.reminders[:0]
	for _, r := range s.reminders {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.reminders = kept
	return nil
}

func quietLogs(t *testing.T) {
	t.Helper()
	logger.SetLogLevel(logger.ERROR + 1)
	t.Cleanup(func() { logger.SetLogLevel(logger.INFO) })
}

func newTestScheduler(t *testing.T, store Store, sender notify.MessageSender, opts Options) *Scheduler {
	t.Helper()
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	s, err := NewScheduler(store, notify.NewDispatcher(sender, time.Second), opts)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	return s
}

func TestNextDailyTrigger(t *testing.T) {
	schedule, err := ParseDailySchedule(DefaultDailySpec)
	if err != nil {
		t.Fatalf("failed to parse default schedule: %v", err)
	}

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "after target rolls to tomorrow",
			now:  time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "before target stays today",
			now:  time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at target is strictly future",
			now:  time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "month boundary",
			now:  time.Date(2025, 1, 31, 18, 30, 0, 0, time.UTC),
			want: time.Date(2025, 2, 1, 18, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextDailyTrigger(schedule, tc.now)
			if !got.Equal(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNextDailyTriggerUsesLocation(t *testing.T) {
	schedule, err := ParseDailySchedule("")
	if err != nil {
		t.Fatalf("failed to parse schedule: %v", err)
	}
	zone := time.FixedZone("UTC+3", 3*60*60)

	now := time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC).In(zone) // 19:00 local
	got := NextDailyTrigger(schedule, now)
	want := time.Date(2025, 1, 2, 18, 0, 0, 0, zone)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseDailyScheduleRejectsGarbage(t *testing.T) {
	if _, err := ParseDailySchedule("every evening"); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
}

func TestDailyCheckEndToEnd(t *testing.T) {
	quietLogs(t)
	store := testutil.SetupTestStore(t)
	sender := &fakeSender{}
	s := newTestScheduler(t, store, sender, Options{
		Important:  []string{"sugar"},
		Recipients: []int64{42},
	})
	ctx := context.Background()

	s.DailyCheck(ctx)
	msgs := sender.sent()
	if len(msgs) != 1 || msgs[0].chatID != 42 {
		t.Fatalf("expected one message to user 42, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].text, "sugar") {
		t.Fatalf("expected sugar to be reported missing, got %q", msgs[0].text)
	}

	if err := store.AddProduct(ctx, "sugar"); err != nil {
		t.Fatalf("failed to add product: %v", err)
	}

	s.DailyCheck(ctx)
	msgs = sender.sent()
	if len(msgs) != 2 || msgs[1].text != AllPresentText {
		t.Fatalf("expected all-present message, got %+v", msgs)
	}
}

func TestDailyCheckBroadcastSurvivesFailure(t *testing.T) {
	quietLogs(t)
	store := &fakeStore{products: map[string]bool{"coffee": true}}
	sender := &fakeSender{failFor: map[int64]bool{2: true}}
	s := newTestScheduler(t, store, sender, Options{
		Important:  []string{"Coffee", " cream ", "coffee"},
		Recipients: []int64{1, 2, 3},
	})

	results := s.DailyCheck(context.Background())
	if len(results) != 3 {
		t.Fatalf("expected three results, got %d", len(results))
	}
	if countFailed(results) != 1 {
		t.Fatalf("expected exactly one failure, got %+v", results)
	}

	msgs := sender.sent()
	if len(msgs) != 2 || msgs[0].chatID != 1 || msgs[1].chatID != 3 {
		t.Fatalf("expected users 1 and 3 to receive the check, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].text, "• cream") || strings.Contains(msgs[0].text, "coffee") {
		t.Fatalf("expected only cream to be missing, got %q", msgs[0].text)
	}
}

func TestDailyCheckStoreFailureSendsNothing(t *testing.T) {
	quietLogs(t)
	store := &fakeStore{hasErr: errors.New("database is locked")}
	sender := &fakeSender{}
	s := newTestScheduler(t, store, sender, Options{
		Important:  []string{"sugar"},
		Recipients: []int64{1},
	})

	if results := s.DailyCheck(context.Background()); results != nil {
		t.Fatalf("expected no results, got %+v", results)
	}
	if len(sender.sent()) != 0 {
		t.Fatalf("expected nothing sent")
	}
}

func TestProcessDueDeliversAndDeletes(t *testing.T) {
	quietLogs(t)
	store := testutil.SetupTestStore(t)
	sender := &fakeSender{failFor: map[int64]bool{7: true}}
	s := newTestScheduler(t, store, sender, Options{})
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	if _, err := store.CreateReminder(ctx, 42, "water plants", now.Add(-time.Minute)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := store.CreateReminder(ctx, 7, "blocked user", now); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := store.CreateReminder(ctx, 42, "later", now.Add(time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if n := s.ProcessDue(ctx, now); n != 2 {
		t.Fatalf("expected two due reminders, got %d", n)
	}

	msgs := sender.sent()
	if len(msgs) != 1 || msgs[0].chatID != 42 || msgs[0].text != RenderPersonal("water plants") {
		t.Fatalf("unexpected deliveries: %+v", msgs)
	}

	left42, err := store.ListReminders(ctx, 42)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(left42) != 1 || left42[0].Text != "later" {
		t.Fatalf("expected only the future reminder to remain, got %+v", left42)
	}
	left7, err := store.ListReminders(ctx, 7)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(left7) != 0 {
		t.Fatalf("expected failed delivery to be deleted anyway, got %+v", left7)
	}

	if n := s.ProcessDue(ctx, now); n != 0 {
		t.Fatalf("expected nothing due on the second pass, got %d", n)
	}
}

func TestProcessDueStoreFailure(t *testing.T) {
	quietLogs(t)
	store := &fakeStore{dueErr: errors.New("no such table")}
	s := newTestScheduler(t, store, &fakeSender{}, Options{})

	if n := s.ProcessDue(context.Background(), time.Now()); n != 0 {
		t.Fatalf("expected zero processed on store failure, got %d", n)
	}
}

func TestProcessDueDoesNotResendWhenDeleteFails(t *testing.T) {
	quietLogs(t)
	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	store := &fakeStore{
		reminders: []db.Reminder{{ID: 7, Owner: 42, Text: "call mom", FireAt: now.Add(-time.Minute)}},
		deleteErr: errors.New("database is locked"),
	}
	sender := &fakeSender{}
	s := newTestScheduler(t, store, sender, Options{})

	if n := s.ProcessDue(context.Background(), now); n != 1 {
		t.Fatalf("expected one reminder sent, got %d", n)
	}
	if n := s.ProcessDue(context.Background(), now.Add(30*time.Second)); n != 0 {
		t.Fatalf("expected no resend while delete keeps failing, got %d", n)
	}
	if got := len(sender.sent()); got != 1 {
		t.Fatalf("expected exactly one delivery, got %d", got)
	}

	store.mu.Lock()
	store.deleteErr = nil
	store.mu.Unlock()

	if n := s.ProcessDue(context.Background(), now.Add(time.Minute)); n != 0 {
		t.Fatalf("expected the retry to only delete, got %d sent", n)
	}
	store.mu.Lock()
	remaining := len(store.reminders)
	store.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected the reminder to be deleted on retry, %d left", remaining)
	}
	if got := len(sender.sent()); got != 1 {
		t.Fatalf("expected still one delivery, got %d", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestRunPersonalStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	quietLogs(t)

	store := &fakeStore{reminders: []db.Reminder{
		{ID: 1, Owner: 42, Text: "now", FireAt: time.Now().Add(-time.Second)},
		{ID: 2, Owner: 42, Text: "soon", FireAt: time.Now().Add(30 * time.Millisecond)},
	}}
	sender := &fakeSender{}
	s := newTestScheduler(t, store, sender, Options{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunPersonal(ctx)
	}()

	waitFor(t, func() bool { return len(sender.sent()) == 2 })
	cancel()
	<-done

	msgs := sender.sent()
	if msgs[0].text != RenderPersonal("now") || msgs[1].text != RenderPersonal("soon") {
		t.Fatalf("unexpected delivery order: %+v", msgs)
	}
}

func TestRunDailyFiresOnceAndStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	quietLogs(t)

	start := time.Now()
	base := time.Date(2025, 1, 1, 17, 59, 59, 950_000_000, time.UTC)
	clock := func() time.Time { return base.Add(time.Since(start)) }

	store := &fakeStore{products: map[string]bool{}}
	sender := &fakeSender{}
	s := newTestScheduler(t, store, sender, Options{
		Important:  []string{"sugar"},
		Recipients: []int64{42},
		Now:        clock,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunDaily(ctx)
	}()

	waitFor(t, func() bool { return len(sender.sent()) == 1 })
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if got := len(sender.sent()); got != 1 {
		t.Fatalf("expected a single daily check before the next day, got %d", got)
	}
}
