package conversation

const (
	AccessDeniedText = "🚫 Access denied."
	WelcomeText      = "Hi! I keep track of the products at home.\nChoose an action:"

	AskAddText          = "Send the name of the product to add:"
	AskRemoveText       = "Send the name of the product to remove:"
	AskStatusText       = "Which product should I check?"
	AskReminderText     = "What should I remind you about?"
	AskReminderTimeText = "When should I remind you? Format: YYYY-MM-DD HH:MM"
	InvalidTimeText     = "Invalid time format! Use YYYY-MM-DD HH:MM and start again with /remind."
	EmptyNameText       = "The product name is empty."

	NoProductsText  = "Nothing at home yet."
	NoRemindersText = "You have no reminders yet."

	HelpText = "🛒 Commands:\n\n" +
		"• /add product - add a product\n" +
		"• /remove product - remove a product\n" +
		"• /status product - check whether a product is at home\n" +
		"• /list - list all products\n" +
		"• /remind - create a reminder\n" +
		"• /reminders - show your reminders\n" +
		"• /help - this help\n\n" +
		"The keyboard buttons do the same; after Add, Remove or Status just send the product name."
)
