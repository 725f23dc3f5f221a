package notify

import "go.uber.org/zap"

// Log writes notifications to a zap logger at the matching level.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Notify(n Notification) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("body", n.Body)}
	switch n.Level {
	case LevelError:
		l.Logger.Error("notification", fields...)
	case LevelWarn:
		l.Logger.Warn("notification", fields...)
	default:
		l.Logger.Info("notification", fields...)
	}
}
