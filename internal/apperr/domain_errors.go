package apperr

var (
	// Domain errors shared by the chat core and the store layer.
	ErrUserNotFound        = NotFound("user not found")
	ErrChatNotFound        = NotFound("chat not found")
	ErrMessageNotFound     = NotFound("message not found")
	ErrSenderNotFound      = NotFound("sender not found")
	ErrRecipientMissing    = InvalidArg("recipient is required")
	ErrEmptyMessage        = InvalidArg("message needs text or files")
	ErrChatIDMissing       = InvalidArg("no chat_id provided")
	ErrNoNotifications     = NotFound("no notifications found for the user")
	ErrNotificationMissing = NotFound("notification not found")
	ErrEmailTaken          = AlreadyExists("email already registered")
	ErrBadCredentials      = Unauthorized("wrong email/password")
)
