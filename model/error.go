package model

import "fmt"

var (
	// ErrNoDestination is returned when a route destination channel cannot be resolved
	ErrNoDestination = fmt.Errorf("destination channel unresolvable")
)

// ErrAuth is an authentication related error
type ErrAuth struct {
	Message string
}

// Error satisfies the error type interface
func (e ErrAuth) Error() string {
	if e.Message == "" {
		e.Message = "authentication failed"
	}
	return e.Message
}

// ErrMessage is a failure to send a message
type ErrMessage struct {
	ChannelID string
	Err       error
}

// Error satisfies the error type interface
func (e *ErrMessage) Error() string {
	return fmt.Sprintf("failed to send message to %s: %s", e.ChannelID, e.Err)
}

// Unwrap returns the underlying send error
func (e *ErrMessage) Unwrap() error {
	return e.Err
}
