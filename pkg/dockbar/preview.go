//go:build !noebiten

package dockbar

import (
	"context"
	"image"

	"github.com/opd-ai/go-dockbar/internal/window"
	"github.com/opd-ai/go-dockbar/internal/window/preview"
)

// newPreviewDisplay returns an Ebiten window standing in for the dock. The
// returned function runs its event loop until the window closes.
func newPreviewDisplay(output image.Rectangle) (window.Display, func(context.Context) error, error) {
	d := preview.New(output)
	return d, d.Run, nil
}
