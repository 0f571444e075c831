package export

import "go.uber.org/zap"

// Notifier receives the terminal outcome of an export run. Implementations
// are fire-and-forget: they must not block the polling loop and they handle
// their own delivery failures.
type Notifier interface {
	// Success reports a finished export that is ready to download
	Success(message string)

	// Error reports an export that did not produce a document
	Error(message string)
}

// NullNotifier is a no-op implementation of Notifier used when
// notifications are disabled (null object pattern)
type NullNotifier struct{}

// NewNullNotifier creates a new null notifier
func NewNullNotifier() *NullNotifier {
	return &NullNotifier{}
}

// Success does nothing - this is a no-op implementation
func (n *NullNotifier) Success(message string) {
	zap.S().Debugf("No notifier configured - skipping success notification: %s", message)
}

// Error does nothing - this is a no-op implementation
func (n *NullNotifier) Error(message string) {
	zap.S().Debugf("No notifier configured - skipping error notification: %s", message)
}

// LogNotifier writes notifications to the application log. It is the
// default sink for deployments without a message broker.
type LogNotifier struct{}

// NewLogNotifier creates a new log-backed notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Success(message string) {
	zap.S().Infof("Export notification: %s", message)
}

func (n *LogNotifier) Error(message string) {
	zap.S().Warnf("Export notification: %s", message)
}
