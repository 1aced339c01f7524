package screen

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/beanboi7/chyp8/emu/clock"
	"github.com/beanboi7/chyp8/emu/display"
	"github.com/beanboi7/chyp8/emu/keypad"
	"github.com/nsf/termbox-go"
	"github.com/retroenv/retrogolib/log"
)

// terminals report key presses only, a pressed key is released after
// this duration unless the key repeats.
const keyRepeatDuration = time.Second / 5

// Terminal renders into the terminal using half block characters, two
// display rows per text row.
type Terminal struct {
	cfg    Config
	logger *log.Logger
}

func (t *Terminal) Run(ctx context.Context, src Source) error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	defer termbox.Close()

	termbox.SetInputMode(termbox.InputEsc)
	termbox.SetOutputMode(termbox.Output256)
	fg := terminalColor(t.cfg.Foreground)
	bg := terminalColor(t.cfg.Background)

	events := make(chan termbox.Event)
	done := make(chan struct{})
	defer func() {
		close(done)
		termbox.Interrupt()
	}()
	go pollEvents(events, done)

	hold := keypad.NewHold(src.Keys(), keyRepeatDuration)
	release := time.NewTicker(clock.TickPeriod)
	defer release.Stop()

	t.draw(src.Display().Snapshot(), fg, bg)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			switch ev.Type {
			case termbox.EventKey:
				if ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC {
					t.logger.Debug("Terminal closed")
					return nil
				}
				if key, ok := keypad.Lookup(ev.Ch); ok {
					hold.Press(key, time.Now())
				}
			case termbox.EventResize:
				t.draw(src.Display().Snapshot(), fg, bg)
			case termbox.EventError:
				return fmt.Errorf("reading terminal input: %w", ev.Err)
			}

		case <-src.Redraw():
			if frame, ok := src.Display().SnapshotIfDirty(); ok {
				t.draw(frame, fg, bg)
			}

		case now := <-release.C:
			hold.Expire(now)
		}
	}
}

func pollEvents(events chan<- termbox.Event, done <-chan struct{}) {
	for {
		ev := termbox.PollEvent()
		if ev.Type == termbox.EventInterrupt {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

func (t *Terminal) draw(frame display.Frame, fg, bg termbox.Attribute) {
	_ = termbox.Clear(bg, bg)
	for row := 0; row < display.Height/2; row++ {
		for x := 0; x < display.Width; x++ {
			top, bottom := bg, bg
			if frame.Pixel(x, 2*row) {
				top = fg
			}
			if frame.Pixel(x, 2*row+1) {
				bottom = fg
			}
			termbox.SetCell(x, row, '▀', top, bottom)
		}
	}
	_ = termbox.Flush()
}

// terminalColor maps a color onto the 6x6x6 cube of the 256 color
// palette. Attributes in Output256 mode are palette index + 1.
func terminalColor(c color.RGBA) termbox.Attribute {
	level := func(v uint8) int {
		return (int(v)*5 + 127) / 255
	}
	index := 16 + 36*level(c.R) + 6*level(c.G) + level(c.B)
	return termbox.Attribute(index + 1)
}
