// Package talker describes the long lived connections the client starts and stops.
package talker

import "context"

// Talker represents a connection that can be started, checked and stopped
type Talker interface {
	IsConnected() bool
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Named pairs a talker with the name used in logs and errors
type Named struct {
	Name   string
	Talker Talker
}
