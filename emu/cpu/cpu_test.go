package cpu

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/beanboi7/chyp8/emu/display"
	"github.com/beanboi7/chyp8/emu/keypad"
	"github.com/retroenv/retrogolib/assert"
)

type testMachine struct {
	*EMU
	screen *display.Buffer
	keys   *keypad.State
}

func newTestMachine(t *testing.T, quirks Quirks, program ...uint16) testMachine {
	t.Helper()

	screen := display.New()
	keys := keypad.New()
	emu := NewEMU(screen, keys, Options{
		Quirks: quirks,
		Rand:   rand.New(rand.NewSource(1)),
	})

	rom := make([]byte, 0, len(program)*2)
	for _, word := range program {
		rom = append(rom, byte(word>>8), byte(word))
	}
	assert.NoError(t, emu.Load(rom))

	return testMachine{EMU: emu, screen: screen, keys: keys}
}

func (m testMachine) run(t *testing.T, cycles int) {
	t.Helper()
	for i := 0; i < cycles; i++ {
		assert.NoError(t, m.Cycle())
	}
}

func TestLoad(t *testing.T) {
	screen := display.New()
	emu := NewEMU(screen, keypad.New(), Options{})

	rom := make([]byte, MaxRomSize)
	for i := range rom {
		rom[i] = byte(i * 7)
	}
	assert.NoError(t, emu.Load(rom))

	for i, b := range rom {
		assert.Equal(t, b, emu.ReadByte(uint16(ProgramStart+i)))
	}
	for i, b := range FontSet {
		assert.Equal(t, b, emu.ReadByte(uint16(fontAddress+i)))
	}
	assert.Equal(t, uint16(ProgramStart), emu.PC())
}

func TestLoadResetsState(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(),
		0x6A05, // LD VA, 05
		0xA123, // LD I, 123
		0xFA15, // LD DT, VA
		0x2208, // CALL 208
		0x0000,
	)
	m.run(t, 4)
	m.screen.DrawSprite(0, 0, []uint8{0xFF}, false)

	assert.NoError(t, m.Load([]byte{0x12, 0x00}))
	assert.Equal(t, uint8(0), m.Register(0xA))
	assert.Equal(t, uint16(0), m.Index())
	assert.Equal(t, uint8(0), m.DelayTimer())
	assert.Equal(t, 0, m.StackDepth())
	assert.Equal(t, uint16(ProgramStart), m.PC())
	assert.Equal(t, uint8(0), m.ReadByte(ProgramStart+2))
	assert.False(t, m.screen.Pixel(0, 0))
}

func TestLoadTooLarge(t *testing.T) {
	emu := NewEMU(display.New(), keypad.New(), Options{})

	err := emu.Load(make([]byte, MaxRomSize+1))
	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
	assert.Equal(t, MaxRomSize+1, loadErr.Size)
	assert.Equal(t, MaxRomSize, loadErr.Max)
}

func TestMemoryAccessOutOfRangePanics(t *testing.T) {
	emu := NewEMU(display.New(), keypad.New(), Options{})

	defer func() {
		assert.True(t, recover() != nil)
	}()
	emu.ReadByte(MemorySize)
}

func TestPCAdvancesBeforeExecute(t *testing.T) {
	tests := []struct {
		name   string
		word   uint16
		expect uint16
	}{
		{"load", 0x6012, 0x202},
		{"jump", 0x1300, 0x300},
		{"call", 0x2300, 0x300},
		{"skip taken", 0x3000, 0x204},
		{"skip not taken", 0x3001, 0x202},
		{"jump with offset", 0xB300, 0x300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, DefaultQuirks(), tt.word)
			m.run(t, 1)
			assert.Equal(t, tt.expect, m.PC())
		})
	}

	// the return address pushed by CALL is the word after the call
	m := newTestMachine(t, DefaultQuirks(), 0x2300)
	m.run(t, 1)
	assert.Equal(t, []uint16{0x202}, m.Stack())
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name    string
		program []uint16
		expect  uint16
	}{
		{"SE imm equal", []uint16{0x6105, 0x3105}, 0x206},
		{"SE imm differ", []uint16{0x6105, 0x3106}, 0x204},
		{"SNE imm equal", []uint16{0x6105, 0x4105}, 0x204},
		{"SNE imm differ", []uint16{0x6105, 0x4106}, 0x206},
		{"SE reg equal", []uint16{0x6105, 0x6205, 0x5120}, 0x208},
		{"SE reg differ", []uint16{0x6105, 0x6206, 0x5120}, 0x206},
		{"SNE reg equal", []uint16{0x6105, 0x6205, 0x9120}, 0x206},
		{"SNE reg differ", []uint16{0x6105, 0x6206, 0x9120}, 0x208},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, DefaultQuirks(), tt.program...)
			m.run(t, len(tt.program))
			assert.Equal(t, tt.expect, m.PC())
		})
	}
}

func TestAddRegister(t *testing.T) {
	tests := []struct {
		name     string
		program  []uint16
		reg      uint8
		expect   uint8
		expectVF uint8
	}{
		{"no carry", []uint16{0x6110, 0x6220, 0x8124}, 1, 0x30, 0},
		{"carry", []uint16{0x61F0, 0x6220, 0x8124}, 1, 0x10, 1},
		{"exact 255", []uint16{0x61F0, 0x620F, 0x8124}, 1, 0xFF, 0},
		{"exact 256", []uint16{0x61F0, 0x6210, 0x8124}, 1, 0x00, 1},
		// VF as destination: the flag overwrites the sum
		{"VF destination", []uint16{0x6FF0, 0x6120, 0x8F14}, 0xF, 1, 1},
		{"VF source", []uint16{0x6110, 0x6FF0, 0x81F4}, 1, 0x00, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, DefaultQuirks(), tt.program...)
			m.run(t, len(tt.program))
			assert.Equal(t, tt.expect, m.Register(tt.reg))
			assert.Equal(t, tt.expectVF, m.Register(0xF))
		})
	}
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		name     string
		program  []uint16
		reg      uint8
		expect   uint8
		expectVF uint8
	}{
		{"SUB no borrow", []uint16{0x6130, 0x6210, 0x8125}, 1, 0x20, 1},
		{"SUB equal", []uint16{0x6110, 0x6210, 0x8125}, 1, 0x00, 1},
		{"SUB borrow", []uint16{0x6110, 0x6220, 0x8125}, 1, 0xF0, 0},
		{"SUBN no borrow", []uint16{0x6110, 0x6230, 0x8127}, 1, 0x20, 1},
		{"SUBN borrow", []uint16{0x6130, 0x6210, 0x8127}, 1, 0xE0, 0},
		{"SUB VF destination", []uint16{0x6F30, 0x6110, 0x8F15}, 0xF, 1, 1},
		{"SUB VF source borrow", []uint16{0x6110, 0x6F20, 0x81F5}, 1, 0xF0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, DefaultQuirks(), tt.program...)
			m.run(t, len(tt.program))
			assert.Equal(t, tt.expect, m.Register(tt.reg))
			assert.Equal(t, tt.expectVF, m.Register(0xF))
		})
	}
}

func TestLogic(t *testing.T) {
	tests := []struct {
		name     string
		quirks   Quirks
		op       uint16
		expect   uint8
		expectVF uint8
	}{
		{"OR reset VF", DefaultQuirks(), 0x8121, 0xFC, 0},
		{"AND reset VF", DefaultQuirks(), 0x8122, 0x30, 0},
		{"XOR reset VF", DefaultQuirks(), 0x8123, 0xCC, 0},
		{"OR keep VF", ModernQuirks(), 0x8121, 0xFC, 7},
		{"AND keep VF", ModernQuirks(), 0x8122, 0x30, 7},
		{"XOR keep VF", ModernQuirks(), 0x8123, 0xCC, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, tt.quirks, 0x6F07, 0x61F0, 0x623C, tt.op)
			m.run(t, 4)
			assert.Equal(t, tt.expect, m.Register(1))
			assert.Equal(t, tt.expectVF, m.Register(0xF))
		})
	}
}

func TestShift(t *testing.T) {
	tests := []struct {
		name     string
		quirks   Quirks
		op       uint16
		expect   uint8
		expectVF uint8
	}{
		{"SHR legacy uses VY", DefaultQuirks(), 0x8126, 0x02, 1},
		{"SHR modern in place", ModernQuirks(), 0x8126, 0x40, 0},
		{"SHL legacy uses VY", DefaultQuirks(), 0x812E, 0x0A, 0},
		{"SHL modern in place", ModernQuirks(), 0x812E, 0x00, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// V1 = 0x80, V2 = 0x05
			m := newTestMachine(t, tt.quirks, 0x6180, 0x6205, tt.op)
			m.run(t, 3)
			assert.Equal(t, tt.expect, m.Register(1))
			assert.Equal(t, tt.expectVF, m.Register(0xF))
		})
	}

	t.Run("VF destination holds flag", func(t *testing.T) {
		m := newTestMachine(t, ModernQuirks(), 0x6F02, 0x8FF6)
		m.run(t, 2)
		assert.Equal(t, uint8(0), m.Register(0xF))
	})
}

func TestImmediateAndIndex(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(),
		0x63FF, // LD V3, FF
		0x7302, // ADD V3, 02
		0x6F09, // LD VF, 09
		0x7FFF, // ADD VF, FF
		0x8430, // LD V4, V3
		0xAFFE, // LD I, FFE
		0xF41E, // ADD I, V4
	)
	m.run(t, 7)

	assert.Equal(t, uint8(0x01), m.Register(3))
	assert.Equal(t, uint8(0x08), m.Register(0xF))
	assert.Equal(t, uint8(0x01), m.Register(4))
	assert.Equal(t, uint16(0xFFF), m.Index())
}

func TestJumpWithOffset(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(), 0x6010, 0xB300)
	m.run(t, 2)
	assert.Equal(t, uint16(0x310), m.PC())

	m = newTestMachine(t, DefaultQuirks(), 0x60FF, 0xBFFF)
	m.run(t, 2)
	assert.Equal(t, uint16(0x0FE), m.PC())
}

func TestRandom(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(), 0xC10F, 0xC200)
	m.run(t, 2)
	assert.Equal(t, uint8(0), m.Register(1)&0xF0)
	assert.Equal(t, uint8(0), m.Register(2))
}

func TestDrawSprite(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(),
		0xA20A, // LD I, 20A
		0xD011, // DRW V0, V1, 1
		0xD011, // DRW V0, V1, 1
		0x0000,
		0x0000,
		0xFF00, // sprite data at 0x20A
	)

	m.run(t, 2)
	for x := 0; x < 8; x++ {
		assert.True(t, m.screen.Pixel(x, 0))
	}
	assert.False(t, m.screen.Pixel(8, 0))
	assert.Equal(t, uint8(0), m.Register(0xF))

	m.run(t, 1)
	for x := 0; x < 8; x++ {
		assert.False(t, m.screen.Pixel(x, 0))
	}
	assert.Equal(t, uint8(1), m.Register(0xF))
}

type spriteRecorder struct {
	*display.Buffer
	sprites [][]uint8
}

func (r *spriteRecorder) DrawSprite(x, y int, rows []uint8, wrap bool) bool {
	r.sprites = append(r.sprites, append([]uint8(nil), rows...))
	return r.Buffer.DrawSprite(x, y, rows, wrap)
}

func TestDrawSpriteIsOneUpdate(t *testing.T) {
	screen := &spriteRecorder{Buffer: display.New()}
	emu := NewEMU(screen, keypad.New(), Options{Quirks: DefaultQuirks()})
	assert.NoError(t, emu.Load([]byte{
		0xA2, 0x04, // LD I, 204
		0xD0, 0x13, // DRW V0, V1, 3
		// sprite data at 0x204
		0x80, 0x40, 0x20,
	}))

	assert.NoError(t, emu.Cycle())
	assert.NoError(t, emu.Cycle())
	assert.Equal(t, uint16(0xD013), emu.Opcode())
	assert.Equal(t, [][]uint8{{0x80, 0x40, 0x20}}, screen.sprites)

	frame := screen.Snapshot()
	assert.True(t, frame.Pixel(0, 0))
	assert.True(t, frame.Pixel(1, 1))
	assert.True(t, frame.Pixel(2, 2))
}

func TestDrawCoordinates(t *testing.T) {
	tests := []struct {
		name   string
		quirks Quirks
		x, y   uint16 // immediate values for V0, V1
		set    [][2]int
		unset  [][2]int
	}{
		{
			name:   "start position wraps",
			quirks: DefaultQuirks(),
			x:      66,
			y:      33,
			set:    [][2]int{{2, 1}, {9, 1}, {2, 2}},
		},
		{
			name:   "clip at edge",
			quirks: DefaultQuirks(),
			x:      60,
			y:      31,
			set:    [][2]int{{60, 31}, {63, 31}},
			unset:  [][2]int{{0, 31}, {60, 0}},
		},
		{
			name:   "wrap at edge",
			quirks: Quirks{WrapSprites: true},
			x:      60,
			y:      31,
			set:    [][2]int{{60, 31}, {63, 31}, {0, 31}, {3, 31}, {60, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, tt.quirks,
				0x6000|tt.x,
				0x6100|tt.y,
				0xA20C, // LD I, 20C
				0xD012, // DRW V0, V1, 2
				0x0000,
				0x0000,
				0xFFFF, // two sprite rows at 0x20C
			)
			m.run(t, 4)
			for _, p := range tt.set {
				assert.True(t, m.screen.Pixel(p[0], p[1]))
			}
			for _, p := range tt.unset {
				assert.False(t, m.screen.Pixel(p[0], p[1]))
			}
		})
	}
}

func TestClearScreen(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(), 0x00E0)
	m.screen.DrawSprite(5, 5, []uint8{0x80}, false)
	m.run(t, 1)
	assert.False(t, m.screen.Pixel(5, 5))
}

func TestCallReturn(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(),
		0x2206, // CALL 206
		0x6101, // LD V1, 01
		0x1204, // JP 204
		0x00EE, // RET
	)

	m.run(t, 1)
	assert.Equal(t, uint16(0x206), m.PC())
	assert.Equal(t, 1, m.StackDepth())

	m.run(t, 1)
	assert.Equal(t, uint16(0x202), m.PC())
	assert.Equal(t, 0, m.StackDepth())

	m.run(t, 1)
	assert.Equal(t, uint8(1), m.Register(1))
}

func TestStackOverflow(t *testing.T) {
	// every call targets the next word, so the 17th call overflows
	program := make([]uint16, DefaultStackDepth+1)
	for i := range program {
		program[i] = 0x2000 | uint16(ProgramStart+2*(i+1))
	}
	m := newTestMachine(t, DefaultQuirks(), program...)
	m.run(t, DefaultStackDepth)

	err := m.Cycle()
	var overflow *StackOverflowError
	assert.True(t, errors.As(err, &overflow))
	assert.Equal(t, uint16(ProgramStart+2*DefaultStackDepth), overflow.PC)
	assert.Equal(t, DefaultStackDepth, overflow.Depth)

	stack := m.Stack()
	assert.Equal(t, DefaultStackDepth, len(stack))
	for i, addr := range stack {
		assert.Equal(t, uint16(ProgramStart+2*(i+1)), addr)
	}

	// the machine stays halted
	assert.Equal(t, err, m.Cycle())
}

func TestStackDepthOption(t *testing.T) {
	emu := NewEMU(display.New(), keypad.New(), Options{StackDepth: 2})
	assert.NoError(t, emu.Load([]byte{0x22, 0x02, 0x22, 0x04, 0x22, 0x06}))
	assert.NoError(t, emu.Cycle())
	assert.NoError(t, emu.Cycle())

	var overflow *StackOverflowError
	assert.True(t, errors.As(emu.Cycle(), &overflow))
	assert.Equal(t, 2, overflow.Depth)
}

func TestStackUnderflow(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(), 0x00EE)

	var underflow *StackUnderflowError
	assert.True(t, errors.As(m.Cycle(), &underflow))
	assert.Equal(t, uint16(ProgramStart), underflow.PC)
}

func TestUnknownOpcode(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(), 0x6001, 0xFFFF)
	m.run(t, 1)

	err := m.Cycle()
	var unknown *UnknownOpcodeError
	assert.True(t, errors.As(err, &unknown))
	assert.Equal(t, uint16(0x202), unknown.PC)
	assert.Equal(t, uint16(0xFFFF), unknown.Opcode)
	assert.Equal(t, "unknown opcode FFFF at 202", err.Error())
	assert.Equal(t, uint16(0xFFFF), m.Opcode())

	assert.True(t, m.Halted() != nil)
	assert.NoError(t, m.Load([]byte{0x60, 0x01}))
	assert.NoError(t, m.Cycle())
}

func TestSysIsIgnored(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(), 0x0123)
	m.run(t, 1)
	assert.Equal(t, uint16(0x202), m.PC())
}

func TestKeySkips(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(),
		0x6A0B, // LD VA, 0B
		0xEA9E, // SKP VA
		0x0000,
		0xEAA1, // SKNP VA
	)
	m.keys.Set(0xB, true)
	m.run(t, 2)
	assert.Equal(t, uint16(0x206), m.PC())

	m.run(t, 1)
	assert.Equal(t, uint16(0x208), m.PC())

	m = newTestMachine(t, DefaultQuirks(), 0x6A0B, 0xEAA1)
	m.run(t, 2)
	assert.Equal(t, uint16(0x206), m.PC())
}

func TestWaitKey(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(),
		0xF50A, // LD V5, K
		0x6101, // LD V1, 01
	)
	m.run(t, 1)
	assert.True(t, m.Waiting())
	waitPC := m.PC()

	for i := 0; i < 10; i++ {
		m.run(t, 1)
		assert.Equal(t, waitPC, m.PC())
	}
	assert.True(t, m.Waiting())

	m.keys.Set(0x7, true)
	m.run(t, 1)
	assert.False(t, m.Waiting())
	assert.Equal(t, waitPC+2, m.PC())
	assert.Equal(t, uint8(0x7), m.Register(5))

	m.run(t, 1)
	assert.Equal(t, uint8(1), m.Register(1))
}

func TestWaitKeyNeedsNewPress(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(), 0xF30A)
	m.keys.Set(0x2, true)

	m.run(t, 2)
	assert.True(t, m.Waiting())

	// a key already held does not count until it is pressed again
	m.keys.Set(0x2, false)
	m.run(t, 1)
	assert.True(t, m.Waiting())

	m.keys.Set(0x2, true)
	m.run(t, 1)
	assert.False(t, m.Waiting())
	assert.Equal(t, uint8(0x2), m.Register(3))
}

func TestTimers(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(),
		0x6003, // LD V0, 03
		0xF015, // LD DT, V0
		0xF018, // LD ST, V0
		0xF107, // LD V1, DT
	)
	m.run(t, 3)
	assert.True(t, m.SoundActive())

	m.TickTimers()
	m.run(t, 1)
	assert.Equal(t, uint8(2), m.Register(1))

	for i := 0; i < 5; i++ {
		m.TickTimers()
	}
	assert.Equal(t, uint8(0), m.DelayTimer())
	assert.Equal(t, uint8(0), m.SoundTimer())
	assert.False(t, m.SoundActive())
}

func TestFontAndBCD(t *testing.T) {
	m := newTestMachine(t, DefaultQuirks(),
		0x601A, // LD V0, 1A
		0xF029, // LD F, V0
	)
	m.run(t, 2)
	assert.Equal(t, uint16(0xA*fontGlyphHeight), m.Index())

	m = newTestMachine(t, DefaultQuirks(),
		0x60FE, // LD V0, FE
		0xA300, // LD I, 300
		0xF033, // LD B, V0
	)
	m.run(t, 3)
	assert.Equal(t, uint8(2), m.ReadByte(0x300))
	assert.Equal(t, uint8(5), m.ReadByte(0x301))
	assert.Equal(t, uint8(4), m.ReadByte(0x302))
	assert.Equal(t, uint16(0x300), m.Index())
}

func TestRegisterDumpLoad(t *testing.T) {
	tests := []struct {
		name            string
		quirks          Quirks
		expectIndex     uint16
		expectLoadIndex uint16
	}{
		{"increment index", DefaultQuirks(), 0x303, 0x302},
		{"leave index", ModernQuirks(), 0x300, 0x300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, tt.quirks,
				0x6011, // LD V0, 11
				0x6122, // LD V1, 22
				0x6233, // LD V2, 33
				0x6344, // LD V3, 44
				0xA300, // LD I, 300
				0xF255, // LD [I], V2
			)
			m.run(t, 6)
			assert.Equal(t, uint8(0x11), m.ReadByte(0x300))
			assert.Equal(t, uint8(0x22), m.ReadByte(0x301))
			assert.Equal(t, uint8(0x33), m.ReadByte(0x302))
			assert.Equal(t, uint8(0x00), m.ReadByte(0x303))
			assert.Equal(t, tt.expectIndex, m.Index())
		})
	}

	for _, tt := range tests {
		t.Run(tt.name+" load", func(t *testing.T) {
			m := newTestMachine(t, tt.quirks,
				0xA300, // LD I, 300
				0xF165, // LD V1, [I]
			)
			m.WriteByte(0x300, 0xAB)
			m.WriteByte(0x301, 0xCD)
			m.WriteByte(0x302, 0xEF)
			m.run(t, 2)
			assert.Equal(t, uint8(0xAB), m.Register(0))
			assert.Equal(t, uint8(0xCD), m.Register(1))
			assert.Equal(t, uint8(0x00), m.Register(2))
			assert.Equal(t, tt.expectLoadIndex, m.Index())
		})
	}
}
