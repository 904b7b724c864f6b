package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/smith3v/tg-pantry-reminder/pkg/bot/access"
	"github.com/smith3v/tg-pantry-reminder/pkg/bot/pending"
	"github.com/smith3v/tg-pantry-reminder/pkg/db"
	"github.com/smith3v/tg-pantry-reminder/pkg/logger"
)

const (
	CommandStart     = "start"
	CommandHelp      = "help"
	CommandList      = "list"
	CommandReminders = "reminders"
	CommandRemind    = "remind"
	CommandAdd       = "add"
	CommandRemove    = "remove"
	CommandStatus    = "status"
)

// TimeLayout is the only accepted reminder time format.
const TimeLayout = "2006-01-02 15:04"

var ErrInvalidReminderTime = errors.New("reminder time must look like YYYY-MM-DD HH:MM")

var reminderTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)

// Store is the subset of the record store the conversation mutates.
type Store interface {
	AddProduct(ctx context.Context, name string) error
	RemoveProduct(ctx context.Context, name string) error
	HasProduct(ctx context.Context, name string) (bool, error)
	ListProducts(ctx context.Context) ([]string, error)
	CreateReminder(ctx context.Context, owner int64, text string, fireAt time.Time) (uint, error)
	ListReminders(ctx context.Context, owner int64) ([]db.Reminder, error)
}

// Reply is what the transport should send back. ShowMenu asks for the main
// keyboard to be attached.
type Reply struct {
	Text     string
	ShowMenu bool
}

// Engine interprets commands and free text for allowed users. It is the only
// writer of pending actions.
type Engine struct {
	store    Store
	guard    *access.Guard
	tracker  *pending.Tracker
	location *time.Location
}

func NewEngine(store Store, guard *access.Guard, tracker *pending.Tracker, location *time.Location) *Engine {
	if tracker == nil {
		tracker = pending.NewTracker()
	}
	if location == nil {
		location = time.Local
	}
	return &Engine{
		store:    store,
		guard:    guard,
		tracker:  tracker,
		location: location,
	}
}

// HandleCommand handles an explicit /command. The bool is false when nothing
// should be sent back.
func (e *Engine) HandleCommand(ctx context.Context, userID int64, name, args string) (Reply, bool) {
	if !e.guard.IsAuthorized(userID) {
		if name == CommandStart {
			logger.Info("access denied", "user_id", userID)
			return Reply{Text: AccessDeniedText}, true
		}
		return Reply{}, false
	}

	args = strings.TrimSpace(args)
	switch name {
	case CommandStart:
		return Reply{Text: WelcomeText, ShowMenu: true}, true
	case CommandHelp:
		return e.menu(ctx, userID, MenuHelp)
	case CommandList:
		return e.menu(ctx, userID, MenuList)
	case CommandReminders:
		return e.menu(ctx, userID, MenuReminders)
	case CommandRemind:
		return e.menu(ctx, userID, MenuRemind)
	case CommandAdd:
		return e.productCommand(ctx, userID, MenuAdd, pending.AwaitingAddName{}, args)
	case CommandRemove:
		return e.productCommand(ctx, userID, MenuRemove, pending.AwaitingRemoveName{}, args)
	case CommandStatus:
		return e.productCommand(ctx, userID, MenuStatus, pending.AwaitingStatusName{}, args)
	default:
		return Reply{}, false
	}
}

// HandleText resolves free text: a menu trigger first, then the user's pending
// action. Anything else is dropped.
func (e *Engine) HandleText(ctx context.Context, userID int64, body string) (Reply, bool) {
	if !e.guard.IsAuthorized(userID) {
		return Reply{}, false
	}

	if action, ok := MatchMenu(body); ok {
		return e.menu(ctx, userID, action)
	}

	switch action := e.tracker.Consume(userID).(type) {
	case nil:
		return Reply{}, false
	case pending.AwaitingReminderText:
		e.tracker.Set(userID, pending.AwaitingReminderTime{Draft: body})
		return Reply{Text: AskReminderTimeText}, true
	case pending.AwaitingReminderTime:
		return e.completeReminder(ctx, userID, action.Draft, body)
	case pending.AwaitingAddName, pending.AwaitingRemoveName, pending.AwaitingStatusName:
		return e.applyProduct(ctx, userID, action, body)
	default:
		logger.Error("unknown pending action", "user_id", userID, "action", fmt.Sprintf("%T", action))
		return Reply{}, false
	}
}

func (e *Engine) menu(ctx context.Context, userID int64, action MenuAction) (Reply, bool) {
	switch action {
	case MenuAdd:
		e.tracker.Set(userID, pending.AwaitingAddName{})
		return Reply{Text: AskAddText}, true
	case MenuRemove:
		e.tracker.Set(userID, pending.AwaitingRemoveName{})
		return Reply{Text: AskRemoveText}, true
	case MenuStatus:
		e.tracker.Set(userID, pending.AwaitingStatusName{})
		return Reply{Text: AskStatusText}, true
	case MenuRemind:
		e.tracker.Set(userID, pending.AwaitingReminderText{})
		return Reply{Text: AskReminderText}, true
	case MenuList:
		return e.listProducts(ctx)
	case MenuReminders:
		return e.listReminders(ctx, userID)
	case MenuHelp:
		return Reply{Text: HelpText, ShowMenu: true}, true
	default:
		return Reply{}, false
	}
}

// productCommand runs the operation right away when a name is given,
// otherwise it waits for the name like the keyboard button does.
func (e *Engine) productCommand(ctx context.Context, userID int64, entry MenuAction, action pending.Action, args string) (Reply, bool) {
	if args == "" {
		return e.menu(ctx, userID, entry)
	}
	return e.applyProduct(ctx, userID, action, args)
}

func (e *Engine) applyProduct(ctx context.Context, userID int64, action pending.Action, raw string) (Reply, bool) {
	name := db.NormalizeName(raw)
	if name == "" {
		return Reply{Text: EmptyNameText}, true
	}

	switch action.(type) {
	case pending.AwaitingAddName:
		if err := e.store.AddProduct(ctx, name); err != nil {
			logger.Error("failed to add product", "user_id", userID, "product", name, "error", err)
			return Reply{}, false
		}
		logger.Info("product added", "user_id", userID, "product", name)
		return Reply{Text: "Added: " + name}, true
	case pending.AwaitingRemoveName:
		if err := e.store.RemoveProduct(ctx, name); err != nil {
			logger.Error("failed to remove product", "user_id", userID, "product", name, "error", err)
			return Reply{}, false
		}
		logger.Info("product removed", "user_id", userID, "product", name)
		return Reply{Text: "Removed: " + name}, true
	case pending.AwaitingStatusName:
		has, err := e.store.HasProduct(ctx, name)
		if err != nil {
			logger.Error("failed to check product", "user_id", userID, "product", name, "error", err)
			return Reply{}, false
		}
		if has {
			return Reply{Text: fmt.Sprintf("In stock: %s ✔️", name)}, true
		}
		return Reply{Text: fmt.Sprintf("Out of stock: %s ❌", name)}, true
	default:
		return Reply{}, false
	}
}

func (e *Engine) completeReminder(ctx context.Context, userID int64, draft, raw string) (Reply, bool) {
	fireAt, err := ParseReminderTime(raw, e.location)
	if err != nil {
		logger.Debug("rejected reminder time", "user_id", userID, "input", raw)
		return Reply{Text: InvalidTimeText}, true
	}

	id, err := e.store.CreateReminder(ctx, userID, draft, fireAt)
	if err != nil {
		logger.Error("failed to create reminder", "user_id", userID, "error", err)
		return Reply{}, false
	}
	logger.Info("reminder created", "user_id", userID, "reminder_id", id, "fire_at", fireAt)
	return Reply{Text: fmt.Sprintf("Reminder saved!\nI will remind you: «%s» at %s.", draft, fireAt.Format(TimeLayout))}, true
}

func (e *Engine) listProducts(ctx context.Context) (Reply, bool) {
	names, err := e.store.ListProducts(ctx)
	if err != nil {
		logger.Error("failed to list products", "error", err)
		return Reply{}, false
	}
	if len(names) == 0 {
		return Reply{Text: NoProductsText}, true
	}
	var sb strings.Builder
	sb.WriteString("Products at home:")
	for _, name := range names {
		sb.WriteString("\n• ")
		sb.WriteString(name)
	}
	return Reply{Text: sb.String()}, true
}

func (e *Engine) listReminders(ctx context.Context, userID int64) (Reply, bool) {
	reminders, err := e.store.ListReminders(ctx, userID)
	if err != nil {
		logger.Error("failed to list reminders", "user_id", userID, "error", err)
		return Reply{}, false
	}
	if len(reminders) == 0 {
		return Reply{Text: NoRemindersText}, true
	}
	var sb strings.Builder
	sb.WriteString("Your reminders:\n")
	for _, r := range reminders {
		fmt.Fprintf(&sb, "\n• %s - %s", r.Text, r.FireAt.In(e.location).Format(TimeLayout))
	}
	return Reply{Text: sb.String()}, true
}

// ParseReminderTime accepts exactly YYYY-MM-DD HH:MM (24-hour clock) in loc.
func ParseReminderTime(text string, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	if !reminderTimePattern.MatchString(text) {
		return time.Time{}, ErrInvalidReminderTime
	}
	t, err := time.ParseInLocation(TimeLayout, text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidReminderTime, err)
	}
	return t, nil
}
