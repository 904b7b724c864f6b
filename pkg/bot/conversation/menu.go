package conversation

import "strings"

// MenuAction is an entry trigger reachable from the keyboard or a plain-word synonym.
type MenuAction int

const (
	MenuAdd MenuAction = iota + 1
	MenuRemove
	MenuList
	MenuStatus
	MenuReminders
	MenuHelp
	MenuRemind
)

// Keyboard captions.
const (
	LabelAdd       = "➕ Add"
	LabelRemove    = "❌ Remove"
	LabelList      = "📋 List"
	LabelStatus    = "🔍 Status"
	LabelReminders = "⏰ My reminders"
	LabelHelp      = "ℹ️ Help"
)

var menuTriggers = map[string]MenuAction{
	normalizeTrigger(LabelAdd):       MenuAdd,
	"add":                            MenuAdd,
	normalizeTrigger(LabelRemove):    MenuRemove,
	"remove":                         MenuRemove,
	normalizeTrigger(LabelList):      MenuList,
	"list":                           MenuList,
	normalizeTrigger(LabelStatus):    MenuStatus,
	"status":                         MenuStatus,
	normalizeTrigger(LabelReminders): MenuReminders,
	"my reminders":                   MenuReminders,
	"reminders":                      MenuReminders,
	normalizeTrigger(LabelHelp):      MenuHelp,
	"help":                           MenuHelp,
	"remind":                         MenuRemind,
}

// MatchMenu reports whether text is a keyboard caption or synonym, ignoring
// case and surrounding whitespace.
func MatchMenu(text string) (MenuAction, bool) {
	action, ok := menuTriggers[normalizeTrigger(text)]
	return action, ok
}

func normalizeTrigger(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
