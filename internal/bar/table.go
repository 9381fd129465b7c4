package bar

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/go-dockbar/internal/text"
)

// SlotSpec describes a slot at construction time.
type SlotSpec struct {
	Name        string
	Align       Align
	Placeholder text.Block
}

// Table is the ordered set of widget slots.
//
// The set of slots is fixed when the table is built: slots are never added,
// removed or reordered afterwards, only their content and liveness change.
// A Table is not safe for concurrent use; the scheduler owns it.
type Table struct {
	slots []Slot
}

// NewTable creates one slot per spec, in order.
func NewTable(specs []SlotSpec) *Table {
	t := &Table{slots: make([]Slot, len(specs))}
	for i, s := range specs {
		t.slots[i] = Slot{
			Index: i,
			Name:  s.Name,
			Align: s.Align,
			Block: s.Placeholder.Clone(),
		}
	}
	return t
}

// Len returns the number of slots.
func (t *Table) Len() int {
	return len(t.slots)
}

// Slot returns a copy of the slot at index i.
func (t *Table) Slot(i int) Slot {
	return t.slots[i]
}

// Slots returns a copy of all slots in index order.
func (t *Table) Slots() []Slot {
	out := make([]Slot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Group returns the slots of one alignment group in index order.
func (t *Table) Group(a Align) []Slot {
	var out []Slot
	for _, s := range t.slots {
		if s.Align == a {
			out = append(out, s)
		}
	}
	return out
}

// ErrSlotStopped is returned when content arrives for a slot whose producer
// already failed or completed.
var ErrSlotStopped = errors.New("slot stopped")

// Update stores a new block for slot i and marks it Active.
// It reports whether the visible content changed.
func (t *Table) Update(i int, b text.Block, now time.Time) (bool, error) {
	s, err := t.live(i)
	if err != nil {
		return false, err
	}
	changed := !s.Block.Equal(b)
	s.Block = b.Clone()
	s.Liveness = Active
	s.Updates++
	s.LastUpdate = now
	return changed, nil
}

// Fail marks slot i Failed. Its last block stays in place.
func (t *Table) Fail(i int, reason error) error {
	s, err := t.live(i)
	if err != nil {
		return err
	}
	s.Liveness = Failed
	s.Reason = reason
	return nil
}

// Complete marks slot i Completed. Its last block stays in place.
func (t *Table) Complete(i int) error {
	s, err := t.live(i)
	if err != nil {
		return err
	}
	s.Liveness = Completed
	return nil
}

// Counts returns the number of slots in each liveness state.
func (t *Table) Counts() map[Liveness]int {
	out := make(map[Liveness]int, 4)
	for _, s := range t.slots {
		out[s.Liveness]++
	}
	return out
}

func (t *Table) live(i int) (*Slot, error) {
	if i < 0 || i >= len(t.slots) {
		return nil, fmt.Errorf("slot index %d out of range [0,%d)", i, len(t.slots))
	}
	s := &t.slots[i]
	if s.Liveness.Stopped() {
		return nil, fmt.Errorf("slot %d (%s): %w", i, s.Name, ErrSlotStopped)
	}
	return s, nil
}
