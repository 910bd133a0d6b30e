package session

import "github.com/fastygo/acreage/domain"

// Recorder receives operational signals. err is nil for successes.
type Recorder interface {
	ObserveAttempt(operation string, err error)
	ObserveResult(operation string, err error)
	ObserveTransition(event domain.AuthEvent)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, error) {}
func (nopRecorder) ObserveResult(string, error) {}
func (nopRecorder) ObserveTransition(domain.AuthEvent) {}
