// Package chyp runs a CHIP-8 session: one executor, its display and
// keypad, driven by the instruction clock and the 60Hz timer cadence.
package chyp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/beanboi7/chyp8/emu/clock"
	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/display"
	"github.com/beanboi7/chyp8/emu/keypad"
	"github.com/retroenv/retrogolib/log"
)

// DefaultMaxCatchUp is the number of timer ticks one loop iteration runs
// at most after the host stalled.
const DefaultMaxCatchUp = 6

// Options configures a Machine.
type Options struct {
	ClockHz    int
	Quirks     cpu.Quirks
	StackDepth int
	Rand       *rand.Rand

	// MaxCatchUp caps the ticks run per loop iteration, 0 selects
	// DefaultMaxCatchUp.
	MaxCatchUp int

	// OnSound is called from the session goroutine whenever the sound
	// timer starts or stops.
	OnSound func(active bool)
}

// Machine owns one emulation session. Run and Step must be called from
// a single goroutine; Display, Keys, Redraw and SoundActive are safe to
// use from others.
type Machine struct {
	logger  *log.Logger
	emu     *cpu.EMU
	display *display.Buffer
	keys    *keypad.State
	clock   *clock.Clock

	redraw     chan struct{}
	sound      atomic.Bool
	onSound    func(bool)
	maxCatchUp int
}

// New returns a machine with an empty program loaded.
func New(logger *log.Logger, opts Options) (*Machine, error) {
	hz := opts.ClockHz
	if hz == 0 {
		hz = clock.DefaultHz
	}
	clk, err := clock.New(hz)
	if err != nil {
		return nil, fmt.Errorf("creating clock: %w", err)
	}

	maxCatchUp := opts.MaxCatchUp
	if maxCatchUp <= 0 {
		maxCatchUp = DefaultMaxCatchUp
	}

	screen := display.New()
	keys := keypad.New()

	m := &Machine{
		logger:  logger,
		display: screen,
		keys:    keys,
		clock:   clk,
		emu: cpu.NewEMU(screen, keys, cpu.Options{
			Quirks:     opts.Quirks,
			StackDepth: opts.StackDepth,
			Rand:       opts.Rand,
		}),
		redraw:     make(chan struct{}, 1),
		onSound:    opts.OnSound,
		maxCatchUp: maxCatchUp,
	}
	return m, nil
}

// LoadFile reads a ROM image from disk. Size checks happen in Load.
func LoadFile(path string) ([]byte, error) {
	rom, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rom '%s': %w", path, err)
	}
	return rom, nil
}

// Load resets the session and loads the program.
func (m *Machine) Load(rom []byte) error {
	if err := m.emu.Load(rom); err != nil {
		return fmt.Errorf("loading rom: %w", err)
	}
	m.keys.Reset()
	m.clock.Reset()
	m.setSound(false)

	m.logger.Debug("Program loaded",
		log.Int("size", len(rom)),
		log.Int("clock", m.clock.Hz()))
	return nil
}

// Run executes the session in real time until ctx is cancelled or the
// executor fails. Cancellation returns ctx.Err().
func (m *Machine) Run(ctx context.Context) error {
	ticker := time.NewTicker(clock.TickPeriod)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case now := <-ticker.C:
			ticks := m.catchUp(m.clock.Advance(now.Sub(last)))
			last = now

			if err := m.Step(ticks); err != nil {
				m.logFailure(err)
				return err
			}
		}
	}
}

// Step runs the given number of timer ticks without real time pacing.
// Each tick runs the clock's cycle budget, then decrements the timers
// and signals a redraw.
func (m *Machine) Step(ticks int) error {
	for i := 0; i < ticks; i++ {
		cycles := m.clock.Tick()
		for c := 0; c < cycles; c++ {
			if err := m.emu.Cycle(); err != nil {
				return fmt.Errorf("executing cycle: %w", err)
			}
		}

		m.emu.TickTimers()
		m.setSound(m.emu.SoundActive())
		m.signalRedraw()
	}
	return nil
}

// Display returns the display buffer for the renderer.
func (m *Machine) Display() *display.Buffer {
	return m.display
}

// Keys returns the keypad state for the input layer.
func (m *Machine) Keys() *keypad.State {
	return m.keys
}

// Redraw delivers one signal per timer tick. Signals are dropped while
// the renderer is behind, the executor never waits on it.
func (m *Machine) Redraw() <-chan struct{} {
	return m.redraw
}

// SoundActive reports whether the sound timer is running.
func (m *Machine) SoundActive() bool {
	return m.sound.Load()
}

// CPU returns the executor. It must only be inspected from the
// goroutine running the session.
func (m *Machine) CPU() *cpu.EMU {
	return m.emu
}

// catchUp limits the ticks run for one loop iteration, ticks beyond
// the limit are dropped.
func (m *Machine) catchUp(due int) int {
	if due <= m.maxCatchUp {
		return due
	}
	m.logger.Debug("Dropping timer ticks after stall",
		log.Int("due", due),
		log.Int("run", m.maxCatchUp))
	return m.maxCatchUp
}

func (m *Machine) signalRedraw() {
	select {
	case m.redraw <- struct{}{}:
	default:
	}
}

func (m *Machine) setSound(active bool) {
	if m.sound.Swap(active) == active {
		return
	}
	if m.onSound != nil {
		m.onSound(active)
	}
}

func (m *Machine) logFailure(err error) {
	var unknown *cpu.UnknownOpcodeError
	var overflow *cpu.StackOverflowError
	var underflow *cpu.StackUnderflowError

	switch {
	case errors.As(err, &unknown):
		m.logger.Error("Unknown opcode", err,
			log.String("pc", fmt.Sprintf("0x%03X", unknown.PC)),
			log.String("opcode", fmt.Sprintf("0x%04X", unknown.Opcode)))
	case errors.As(err, &overflow):
		m.logger.Error("Stack overflow", err,
			log.String("pc", fmt.Sprintf("0x%03X", overflow.PC)),
			log.Int("depth", overflow.Depth))
	case errors.As(err, &underflow):
		m.logger.Error("Stack underflow", err,
			log.String("pc", fmt.Sprintf("0x%03X", underflow.PC)))
	default:
		m.logger.Error("Execution failed", err,
			log.String("pc", fmt.Sprintf("0x%03X", m.emu.PC())),
			log.String("opcode", fmt.Sprintf("0x%04X", m.emu.Opcode())))
	}
}
