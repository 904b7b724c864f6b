package pending

import "sync"

// Action is what the next free-text message from a user means. The set of
// implementations is closed; a nil Action means nothing is pending.
type Action interface {
	isAction()
}

type AwaitingAddName struct{}

type AwaitingRemoveName struct{}

type AwaitingStatusName struct{}

type AwaitingReminderText struct{}

// AwaitingReminderTime carries the reminder body collected in the previous step.
type AwaitingReminderTime struct {
	Draft string
}

func (AwaitingAddName) isAction()      {}
func (AwaitingRemoveName) isAction()   {}
func (AwaitingStatusName) isAction()   {}
func (AwaitingReminderText) isAction() {}
func (AwaitingReminderTime) isAction() {}

// Tracker holds at most one pending action per user. Set overwrites, it never
// stacks flows.
type Tracker struct {
	mu      sync.Mutex
	pending map[int64]Action
}

func NewTracker() *Tracker {
	return &Tracker{pending: make(map[int64]Action)}
}

// Set replaces the user's pending action. A nil action clears it.
func (t *Tracker) Set(userID int64, action Action) {
	if t == nil || userID == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if action == nil {
		delete(t.pending, userID)
		return
	}
	t.pending[userID] = action
}

// Consume returns the pending action and clears it in one step.
func (t *Tracker) Consume(userID int64) Action {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	action, ok := t.pending[userID]
	if !ok {
		return nil
	}
	delete(t.pending, userID)
	return action
}

// Peek reports the pending action without consuming it.
func (t *Tracker) Peek(userID int64) Action {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending[userID]
}
