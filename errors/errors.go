package errors

import "fmt"

var (
	ErrInvalidCredential = fmt.Errorf("invalid credential")
	ErrUnknownUser       = fmt.Errorf("unknown user")
	ErrInvalidMessage    = fmt.Errorf("invalid message")
	ErrUnauthorized      = fmt.Errorf("unauthorized")
	ErrPersistence       = fmt.Errorf("persistence failure")
	ErrUnknownRoom       = fmt.Errorf("unknown room")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
)
