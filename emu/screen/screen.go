// Package screen presents the display buffer and feeds host key presses
// into the keypad.
package screen

import (
	"context"
	"fmt"
	"image/color"

	"github.com/beanboi7/chyp8/emu/display"
	"github.com/beanboi7/chyp8/emu/keypad"
	"github.com/retroenv/retrogolib/log"
)

const title = "Chyp8"

// Source is the running session a frontend renders.
type Source interface {
	Display() *display.Buffer
	Keys() *keypad.State
	Redraw() <-chan struct{}
}

// Frontend renders a session until the user quits or ctx is cancelled.
// Both cases return nil.
type Frontend interface {
	Run(ctx context.Context, src Source) error
}

// Config holds the presentation settings shared by all frontends.
type Config struct {
	Width      int
	Height     int
	Foreground color.RGBA
	Background color.RGBA
	VSync      bool
	Fullscreen bool

	// DrawSync presents frames on the 60Hz redraw signal instead of
	// every host frame.
	DrawSync bool
}

// New returns the frontend with the given name, "window" or "terminal".
func New(name string, cfg Config, logger *log.Logger) (Frontend, error) {
	switch name {
	case "window":
		return &Window{cfg: cfg, logger: logger}, nil
	case "terminal":
		return &Terminal{cfg: cfg, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported frontend '%s'", name)
	}
}
