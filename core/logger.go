package core

// Logger is the process-wide logging collaborator.
// args may carry errors, maps of extra data and the user.User the event relates to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LoginRecorder keeps an append-only trail of authentication attempts.
type LoginRecorder interface {
	RecordLogin(username, ip string, success bool)
}
