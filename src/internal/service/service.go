// Package service provides a common lifecycle for background services.
package service

import "errors"

// ErrStopped is returned by any operation that can not be fulfilled because
// the service that provides it is stopping or has already stopped.
var ErrStopped = errors.New("service has been stopped")

// Service is an interface for background tasks that can finish and stop.
type Service interface {
	// Done returns a channel that is closed when the service is stopped.
	Done() <-chan struct{}

	// Err returns the error that caused the Done() channel to close, if any.
	Err() error

	// Stop halts the service immediately.
	Stop()

	// GracefulStop halts the service once it has finished any pending work.
	GracefulStop()
}
