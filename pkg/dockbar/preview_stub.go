//go:build noebiten

package dockbar

import (
	"context"
	"errors"
	"image"

	"github.com/opd-ai/go-dockbar/internal/window"
)

// newPreviewDisplay fails in noebiten builds, which carry no windowing
// toolkit besides X11.
func newPreviewDisplay(image.Rectangle) (window.Display, func(context.Context) error, error) {
	return nil, nil, errors.New("preview mode is not available in noebiten builds")
}
