package bar

import (
	"fmt"
	"time"

	"github.com/opd-ai/go-dockbar/internal/text"
)

// Align is the alignment group a slot belongs to.
type Align int

const (
	// AlignLeft slots are laid out from the bar's left edge.
	AlignLeft Align = iota
	// AlignRight slots are laid out against the bar's right edge.
	AlignRight
)

// String returns the configuration name of the alignment.
func (a Align) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	default:
		return "unknown"
	}
}

// ParseAlign parses "left" or "right". An empty string means left.
func ParseAlign(s string) (Align, error) {
	switch s {
	case "left", "":
		return AlignLeft, nil
	case "right":
		return AlignRight, nil
	default:
		return AlignLeft, fmt.Errorf("unknown alignment: %s", s)
	}
}

// Liveness describes where a slot's producer is in its life.
type Liveness int

const (
	// Pending slots have not received their first update yet.
	Pending Liveness = iota
	// Active slots are being serviced.
	Active
	// Failed slots stopped after their producer returned an error.
	Failed
	// Completed slots stopped after their producer reached end of stream.
	Completed
)

// String returns a human-readable liveness.
func (l Liveness) String() string {
	switch l {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Stopped reports whether the slot's producer will never be polled again.
func (l Liveness) Stopped() bool {
	return l == Failed || l == Completed
}

// Slot is one configured widget's position in the bar and its latest content.
type Slot struct {
	// Index is the slot's position in the configured widget list.
	Index int
	// Name identifies the producer in logs and metrics.
	Name string
	// Align is the slot's alignment group.
	Align Align
	// Block is the most recent content, or the placeholder before the first update.
	Block text.Block
	// Liveness is the producer state.
	Liveness Liveness
	// Reason is the producer error when Liveness is Failed.
	Reason error
	// Updates counts the blocks received from the producer.
	Updates uint64
	// LastUpdate is when the last block was received.
	LastUpdate time.Time
}
