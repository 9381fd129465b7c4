package dockbar

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// SessionID identifies one run of the bar, from a start to the next stop.
// Every restart and reload gets a new one. It is attached to the session's
// log entries, widget errors, Status and lifecycle events.
type SessionID string

// String returns the string representation of the session ID.
func (id SessionID) String() string {
	return string(id)
}

type sessionIDKey struct{}

// newSessionID returns a random 16-character hex ID.
func newSessionID() SessionID {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return SessionID("0000000000000000")
	}
	return SessionID(hex.EncodeToString(b))
}

// WithSessionID returns a copy of ctx carrying id.
func WithSessionID(ctx context.Context, id SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext returns the session ID carried by ctx, or "" if none.
// The context passed to a session's display loop carries its ID.
func SessionIDFromContext(ctx context.Context) SessionID {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionIDKey{}).(SessionID)
	return id
}
