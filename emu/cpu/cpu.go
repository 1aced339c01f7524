// Package cpu implements the CHIP-8 memory, registers and the
// fetch/decode/execute loop.
package cpu

import (
	"fmt"
	"math/rand"
	"time"
)

const (
	MemorySize   = 4096
	ProgramStart = 0x200
	MaxRomSize   = MemorySize - ProgramStart

	// DefaultStackDepth is the number of return addresses the stack holds.
	DefaultStackDepth = 16

	addressMask = 0x0FFF
)

// Display is the pixel buffer the executor draws into. DrawSprite
// draws all rows of one sprite as a single update.
type Display interface {
	Clear()
	DrawSprite(x, y int, rows []uint8, wrap bool) bool
}

// Keypad is the input state the executor polls.
type Keypad interface {
	Pressed(key uint8) bool
	Snapshot() [16]bool
}

// Options configures an EMU.
type Options struct {
	Quirks     Quirks
	StackDepth int        // 0 selects DefaultStackDepth
	Rand       *rand.Rand // source for CXNN, nil seeds one from the clock
}

// EMU holds the CPU state and executes instructions against the
// display and keypad it was created with. It is not safe for concurrent
// use, one goroutine owns it.
type EMU struct {
	opcode     uint16
	memory     [MemorySize]uint8
	V          [16]uint8
	I          uint16 //address register
	pc         uint16
	delayTimer uint8 //counts down at 60Hz
	soundTimer uint8 //same as above
	stack      []uint16
	stackDepth int

	waiting  bool     // blocked in FX0A
	waitReg  uint8    // register receiving the key
	waitKeys [16]bool // keypad state the next press is compared against

	halted error

	quirks  Quirks
	rng     *rand.Rand
	display Display
	keys    Keypad
}

// NewEMU returns an EMU with the font loaded, an empty program and PC at
// ProgramStart.
func NewEMU(display Display, keys Keypad, opts Options) *EMU {
	depth := opts.StackDepth
	if depth <= 0 {
		depth = DefaultStackDepth
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	emu := &EMU{
		stack:      make([]uint16, 0, depth),
		stackDepth: depth,
		quirks:     opts.Quirks,
		rng:        rng,
		display:    display,
		keys:       keys,
	}
	emu.reset()
	return emu
}

// Load resets the machine and copies the program to ProgramStart.
func (emu *EMU) Load(rom []byte) error {
	if len(rom) > MaxRomSize {
		return &LoadError{Size: len(rom), Max: MaxRomSize}
	}

	emu.reset()
	copy(emu.memory[ProgramStart:], rom)
	emu.display.Clear()
	return nil
}

func (emu *EMU) reset() {
	emu.memory = [MemorySize]uint8{}
	emu.loadFont()

	emu.opcode = 0
	emu.V = [16]uint8{}
	emu.I = 0
	emu.pc = ProgramStart
	emu.delayTimer = 0
	emu.soundTimer = 0
	emu.stack = emu.stack[:0]
	emu.waiting = false
	emu.waitReg = 0
	emu.waitKeys = [16]bool{}
	emu.halted = nil
}

func (emu *EMU) loadFont() {
	copy(emu.memory[fontAddress:], FontSet[:])
}

// Cycle executes one instruction. PC is advanced past the fetched word
// before the instruction runs. While the EMU waits for a key nothing is
// fetched. After an error the EMU stays halted and keeps returning it
// until the next Load.
func (emu *EMU) Cycle() error {
	if emu.halted != nil {
		return emu.halted
	}
	if emu.waiting {
		emu.pollKey()
		return nil
	}

	pc := emu.pc
	emu.opcode = uint16(emu.memory[pc])<<8 | uint16(emu.memory[(pc+1)&addressMask])
	emu.pc = (pc + 2) & addressMask

	ins, ok := Decode(emu.opcode)
	if !ok {
		emu.halted = &UnknownOpcodeError{PC: pc, Opcode: emu.opcode}
		return emu.halted
	}

	if err := emu.execute(ins, pc); err != nil {
		emu.halted = err
		return err
	}
	return nil
}

// TickTimers decrements the delay and sound timers, stopping at 0.
func (emu *EMU) TickTimers() {
	if emu.delayTimer > 0 {
		emu.delayTimer--
	}
	if emu.soundTimer > 0 {
		emu.soundTimer--
	}
}

// ReadByte returns the memory byte at addr. Addresses are 12 bit values
// produced by decoding, anything larger is a bug in the caller.
func (emu *EMU) ReadByte(addr uint16) uint8 {
	if addr > addressMask {
		panic(fmt.Sprintf("memory read outside address space: %04X", addr))
	}
	return emu.memory[addr]
}

// WriteByte stores value at addr, see ReadByte for the address range.
func (emu *EMU) WriteByte(addr uint16, value uint8) {
	if addr > addressMask {
		panic(fmt.Sprintf("memory write outside address space: %04X", addr))
	}
	emu.memory[addr] = value
}

func (emu *EMU) PC() uint16 {
	return emu.pc
}

// Opcode returns the last fetched instruction word.
func (emu *EMU) Opcode() uint16 {
	return emu.opcode
}

func (emu *EMU) Index() uint16 {
	return emu.I
}

func (emu *EMU) Register(n uint8) uint8 {
	return emu.V[n&0xF]
}

func (emu *EMU) DelayTimer() uint8 {
	return emu.delayTimer
}

func (emu *EMU) SoundTimer() uint8 {
	return emu.soundTimer
}

// SoundActive reports whether the buzzer should sound.
func (emu *EMU) SoundActive() bool {
	return emu.soundTimer > 0
}

// StackDepth returns the number of return addresses on the stack.
func (emu *EMU) StackDepth() int {
	return len(emu.stack)
}

// Stack returns a copy of the stack, bottom first.
func (emu *EMU) Stack() []uint16 {
	stack := make([]uint16, len(emu.stack))
	copy(stack, emu.stack)
	return stack
}

// Waiting reports whether the EMU is blocked on FX0A.
func (emu *EMU) Waiting() bool {
	return emu.waiting
}

// Halted returns the error that stopped execution, if any.
func (emu *EMU) Halted() error {
	return emu.halted
}

// pollKey completes a pending FX0A once any key goes from released to
// pressed. Keys held when the wait began have to be released first.
func (emu *EMU) pollKey() {
	keys := emu.keys.Snapshot()
	for key, pressed := range keys {
		if pressed && !emu.waitKeys[key] {
			emu.V[emu.waitReg] = uint8(key)
			emu.waiting = false
			emu.pc = (emu.pc + 2) & addressMask
			return
		}
	}
	emu.waitKeys = keys
}
