package screen

import (
	"context"
	"fmt"
	"time"

	"github.com/beanboi7/chyp8/emu/clock"
	"github.com/beanboi7/chyp8/emu/display"
	"github.com/beanboi7/chyp8/emu/keypad"
	"github.com/faiface/pixel"
	"github.com/faiface/pixel/imdraw"
	"github.com/faiface/pixel/pixelgl"
	"github.com/retroenv/retrogolib/log"
)

// KeyMap maps host keys onto keypad indexes, see keypad.Lookup for the
// layout.
var KeyMap = map[pixelgl.Button]uint8{
	pixelgl.Key1: 0x1, pixelgl.Key2: 0x2, pixelgl.Key3: 0x3, pixelgl.Key4: 0xC,
	pixelgl.KeyQ: 0x4, pixelgl.KeyW: 0x5, pixelgl.KeyE: 0x6, pixelgl.KeyR: 0xD,
	pixelgl.KeyA: 0x7, pixelgl.KeyS: 0x8, pixelgl.KeyD: 0x9, pixelgl.KeyF: 0xE,
	pixelgl.KeyZ: 0xA, pixelgl.KeyX: 0x0, pixelgl.KeyC: 0xB, pixelgl.KeyV: 0xF,
}

// Window renders into an OpenGL window. Run has to be called from the
// main goroutine.
type Window struct {
	cfg    Config
	logger *log.Logger

	win        *pixelgl.Window
	imd        *imdraw.IMDraw
	fullscreen bool

	// geometry in imd was built from frame for bounds
	frame  display.Frame
	bounds pixel.Rect
}

func (w *Window) Run(ctx context.Context, src Source) error {
	var err error
	pixelgl.Run(func() {
		err = w.run(ctx, src)
	})
	return err
}

func (w *Window) run(ctx context.Context, src Source) error {
	cfg := pixelgl.WindowConfig{
		Title:  title,
		Bounds: pixel.R(0, 0, float64(w.cfg.Width), float64(w.cfg.Height)),
		VSync:  w.cfg.VSync,
	}
	if w.cfg.Fullscreen {
		cfg.Monitor = pixelgl.PrimaryMonitor()
	}

	win, err := pixelgl.NewWindow(cfg)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	defer win.Destroy()

	w.win = win
	w.imd = imdraw.New(nil)
	w.fullscreen = w.cfg.Fullscreen
	w.build(src.Display().Snapshot())

	// keeps input responsive while no redraw signals arrive
	poll := time.NewTicker(clock.TickPeriod)
	defer poll.Stop()

	for !win.Closed() {
		if w.cfg.DrawSync {
			select {
			case <-ctx.Done():
				return nil
			case <-src.Redraw():
			case <-poll.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		w.handleInput(src.Keys())
		if frame, ok := src.Display().SnapshotIfDirty(); ok {
			w.build(frame)
		} else if win.Bounds() != w.bounds {
			w.build(w.frame)
		}

		win.Clear(w.cfg.Background)
		w.imd.Draw(win)
		win.Update()
	}

	w.logger.Debug("Window closed")
	return nil
}

func (w *Window) handleInput(keys *keypad.State) {
	if w.win.JustPressed(pixelgl.KeyEscape) {
		w.win.SetClosed(true)
		return
	}
	if w.win.JustPressed(pixelgl.KeyF11) {
		w.toggleFullscreen()
	}

	for button, key := range KeyMap {
		keys.Set(int(key), w.win.Pressed(button))
	}
}

func (w *Window) toggleFullscreen() {
	w.fullscreen = !w.fullscreen
	if w.fullscreen {
		w.win.SetMonitor(pixelgl.PrimaryMonitor())
		return
	}
	w.win.SetMonitor(nil)
	w.win.SetBounds(pixel.R(0, 0, float64(w.cfg.Width), float64(w.cfg.Height)))
}

// build turns the frame into rectangles scaled to the window. Row 0 is
// the top of the display while pixel's y axis points up.
func (w *Window) build(frame display.Frame) {
	w.frame = frame
	w.bounds = w.win.Bounds()

	w.imd.Clear()
	w.imd.Color = w.cfg.Foreground

	cellW := w.bounds.W() / display.Width
	cellH := w.bounds.H() / display.Height

	for y := 0; y < display.Height; y++ {
		top := w.bounds.Max.Y - float64(y)*cellH
		for x := 0; x < display.Width; x++ {
			if !frame.Pixel(x, y) {
				continue
			}
			left := w.bounds.Min.X + float64(x)*cellW
			w.imd.Push(pixel.V(left, top-cellH), pixel.V(left+cellW, top))
			w.imd.Rectangle(0)
		}
	}
}
