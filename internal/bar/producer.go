// Package bar holds the bar's widget slots and the contract widgets implement.
package bar

import (
	"context"
	"errors"

	"github.com/opd-ai/go-dockbar/internal/text"
)

// ErrEndOfStream is returned by a Producer that will never produce again.
// It is not a failure: the slot keeps showing its last content.
var ErrEndOfStream = errors.New("end of stream")

// Producer is the single capability a widget exposes to the bar.
//
// Next blocks until the widget has new content, then returns it. It must
// suspend on its real source (a timer, a readable file descriptor, a property
// change) rather than poll, and it must return promptly once ctx is done.
// Next is never called concurrently with itself and a producer is never
// restarted after it returns an error or ErrEndOfStream.
type Producer interface {
	Next(ctx context.Context) (text.Block, error)
}

// ProducerFunc adapts an ordinary function to the Producer interface.
type ProducerFunc func(ctx context.Context) (text.Block, error)

// Next calls f(ctx).
func (f ProducerFunc) Next(ctx context.Context) (text.Block, error) {
	return f(ctx)
}
