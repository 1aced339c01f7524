// Package clock derives the instruction cadence and the fixed 60Hz
// timer cadence from one real time source.
package clock

import (
	"fmt"
	"time"
)

const (
	// TimerHz is the rate of the delay and sound timers and of the
	// redraw signal. It does not depend on the instruction rate.
	TimerHz = 60

	// DefaultHz is the default instruction rate.
	DefaultHz = 500

	// TickPeriod is the nominal wall time of one timer tick.
	TickPeriod = time.Second / TimerHz
)

// Clock splits an instruction rate into per tick cycle budgets and
// converts elapsed wall time into timer ticks. Both conversions carry
// their remainder forward so no cycles or ticks are lost over time.
type Clock struct {
	hz int

	cycleCarry int   // instruction cycles owed to the next tick, in 1/60 units
	nanoCarry  int64 // elapsed time not yet turned into a tick, in ns*60
}

// New returns a clock running hz instructions per second.
func New(hz int) (*Clock, error) {
	if hz <= 0 {
		return nil, fmt.Errorf("invalid clock rate %d, must be positive", hz)
	}
	return &Clock{hz: hz}, nil
}

// Hz returns the instruction rate.
func (c *Clock) Hz() int {
	return c.hz
}

// Tick returns the number of instruction cycles to run for the next
// timer tick. Over any 60 consecutive ticks exactly hz cycles are
// handed out.
func (c *Clock) Tick() int {
	total := c.hz + c.cycleCarry
	c.cycleCarry = total % TimerHz
	return total / TimerHz
}

// Advance adds elapsed wall time and returns how many timer ticks are
// now due.
func (c *Clock) Advance(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	c.nanoCarry += elapsed.Nanoseconds() * TimerHz
	ticks := c.nanoCarry / int64(time.Second)
	c.nanoCarry %= int64(time.Second)
	return int(ticks)
}

// Reset drops any carried remainders.
func (c *Clock) Reset() {
	c.cycleCarry = 0
	c.nanoCarry = 0
}
