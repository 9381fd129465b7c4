package widget

import (
	"context"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/text"
)

// Text shows a fixed block once and then ends its stream.
type Text struct {
	block text.Block
	done  bool
}

// NewText creates a static widget.
func NewText(b text.Block) *Text {
	return &Text{block: b}
}

// Next implements bar.Producer.
func (t *Text) Next(ctx context.Context) (text.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.done {
		return nil, bar.ErrEndOfStream
	}
	t.done = true
	return t.block, nil
}
