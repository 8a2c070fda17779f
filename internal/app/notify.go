package app

// NotificationKind selects the styling of a notification.
type NotificationKind int

const (
	NotifyInfo NotificationKind = iota
	NotifySuccess
	NotifyError
)

// Notification is a transient user-facing message.
type Notification struct {
	Kind    NotificationKind
	Message string
}

// Success builds a success notification.
func Success(msg string) Notification {
	return Notification{Kind: NotifySuccess, Message: msg}
}

// Failure builds an error notification.
func Failure(msg string) Notification {
	return Notification{Kind: NotifyError, Message: msg}
}

// Info builds a neutral notification.
func Info(msg string) Notification {
	return Notification{Kind: NotifyInfo, Message: msg}
}
