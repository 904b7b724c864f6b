package reminders

import "strings"

const AllPresentText = "✔️ All important products are at home!"

func RenderDailyCheck(missing []string) string {
	if len(missing) == 0 {
		return AllPresentText
	}
	var sb strings.Builder
	sb.WriteString("⏰ Reminder!\nImportant products are missing:")
	for _, name := range missing {
		sb.WriteString("\n• ")
		sb.WriteString(name)
	}
	return sb.String()
}

func RenderPersonal(text string) string {
	return "🔔 Reminder: " + text
}
