package store

import "go.uber.org/zap"

// Notifier shows transient user-facing messages.
type Notifier interface {
	Loading(msg string)
	Success(msg string)
	Info(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Loading(msg string) { n.Logger.Info(msg, zap.String("kind", "loading")) }
func (n LogNotifier) Success(msg string) { n.Logger.Info(msg, zap.String("kind", "success")) }
func (n LogNotifier) Info(msg string)    { n.Logger.Info(msg, zap.String("kind", "info")) }
func (n LogNotifier) Error(msg string)   { n.Logger.Error(msg, zap.String("kind", "error")) }

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Loading(string) {}
func (NopNotifier) Success(string) {}
func (NopNotifier) Info(string)    {}
func (NopNotifier) Error(string)   {}
