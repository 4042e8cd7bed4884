package logger

import "sync/atomic"

var defLogger atomic.Pointer[Logger]

func init() {
	SetDefault(NewSlog(InfoLevel, false))
}

// SetDefault replaces the package-level logger returned by GetLogger.
// A nil logger is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(&l)
}

func Debug(msg string, keysAndValues ...any) {
	GetLogger().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	GetLogger().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	GetLogger().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	GetLogger().Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	GetLogger().Fatal(msg, keysAndValues...)
}

func SetLevel(level Level) {
	GetLogger().SetLevel(level)
}

// GetLogger returns the package-level logger.
func GetLogger() Logger {
	return *defLogger.Load()
}

func With(keyValues ...any) Logger {
	return GetLogger().With(keyValues...)
}
