package cpu

import "github.com/beanboi7/chyp8/emu/display"

const flagRegister = 0xF

// execute applies a decoded instruction. pc is the address the
// instruction was fetched from, emu.pc already points past it.
//
// Instructions that set VF commit their result register first and write
// VF last, so VF as an operand or destination ends up holding the flag.
func (emu *EMU) execute(ins Instruction, pc uint16) error {
	x, y := ins.X, ins.Y

	switch ins.Op {
	case OpSys:
		// machine code routines of the host CPU are not emulated

	case OpCls:
		emu.display.Clear()

	case OpRet:
		n := len(emu.stack)
		if n == 0 {
			return &StackUnderflowError{PC: pc}
		}
		emu.pc = emu.stack[n-1]
		emu.stack = emu.stack[:n-1]

	case OpJump:
		emu.pc = ins.NNN

	case OpCall:
		if len(emu.stack) >= emu.stackDepth {
			return &StackOverflowError{PC: pc, Depth: emu.stackDepth}
		}
		emu.stack = append(emu.stack, emu.pc)
		emu.pc = ins.NNN

	case OpSkipEqImm:
		emu.skipIf(emu.V[x] == ins.NN)

	case OpSkipNeImm:
		emu.skipIf(emu.V[x] != ins.NN)

	case OpSkipEqReg:
		emu.skipIf(emu.V[x] == emu.V[y])

	case OpSkipNeReg:
		emu.skipIf(emu.V[x] != emu.V[y])

	case OpLoadImm:
		emu.V[x] = ins.NN

	case OpAddImm:
		emu.V[x] += ins.NN

	case OpLoadReg:
		emu.V[x] = emu.V[y]

	case OpOr:
		emu.V[x] |= emu.V[y]
		emu.resetFlagOnLogic()

	case OpAnd:
		emu.V[x] &= emu.V[y]
		emu.resetFlagOnLogic()

	case OpXor:
		emu.V[x] ^= emu.V[y]
		emu.resetFlagOnLogic()

	case OpAddReg:
		sum := uint16(emu.V[x]) + uint16(emu.V[y])
		emu.V[x] = uint8(sum)
		emu.V[flagRegister] = flag(sum > 0xFF)

	case OpSub:
		vx, vy := emu.V[x], emu.V[y]
		emu.V[x] = vx - vy
		emu.V[flagRegister] = flag(vx >= vy)

	case OpSubn:
		vx, vy := emu.V[x], emu.V[y]
		emu.V[x] = vy - vx
		emu.V[flagRegister] = flag(vy >= vx)

	case OpShr:
		src := emu.shiftSource(x, y)
		emu.V[x] = src >> 1
		emu.V[flagRegister] = src & 0x01

	case OpShl:
		src := emu.shiftSource(x, y)
		emu.V[x] = src << 1
		emu.V[flagRegister] = src >> 7

	case OpLoadIndex:
		emu.I = ins.NNN

	case OpJumpV0:
		emu.pc = (ins.NNN + uint16(emu.V[0])) & addressMask

	case OpRand:
		emu.V[x] = uint8(emu.rng.Intn(256)) & ins.NN

	case OpDraw:
		emu.draw(x, y, ins.N)

	case OpSkipKey:
		emu.skipIf(emu.keys.Pressed(emu.V[x]))

	case OpSkipNoKey:
		emu.skipIf(!emu.keys.Pressed(emu.V[x]))

	case OpLoadDelay:
		emu.V[x] = emu.delayTimer

	case OpWaitKey:
		// stay on this instruction until a key press completes it
		emu.pc = pc
		emu.waiting = true
		emu.waitReg = x
		emu.waitKeys = emu.keys.Snapshot()

	case OpSetDelay:
		emu.delayTimer = emu.V[x]

	case OpSetSound:
		emu.soundTimer = emu.V[x]

	case OpAddIndex:
		emu.I += uint16(emu.V[x])

	case OpLoadFont:
		emu.I = fontAddress + uint16(emu.V[x]&0xF)*fontGlyphHeight

	case OpStoreBCD:
		v := emu.V[x]
		emu.WriteByte(emu.indexAddress(0), v/100)
		emu.WriteByte(emu.indexAddress(1), v/10%10)
		emu.WriteByte(emu.indexAddress(2), v%10)

	case OpStoreRegs:
		for i := uint16(0); i <= uint16(x); i++ {
			emu.WriteByte(emu.indexAddress(i), emu.V[i])
		}
		emu.advanceIndex(x)

	case OpLoadRegs:
		for i := uint16(0); i <= uint16(x); i++ {
			emu.V[i] = emu.ReadByte(emu.indexAddress(i))
		}
		emu.advanceIndex(x)

	default:
		return &UnknownOpcodeError{PC: pc, Opcode: ins.Raw}
	}

	return nil
}

func (emu *EMU) skipIf(cond bool) {
	if cond {
		emu.pc = (emu.pc + 2) & addressMask
	}
}

func (emu *EMU) resetFlagOnLogic() {
	if emu.quirks.ResetFlagOnLogic {
		emu.V[flagRegister] = 0
	}
}

func (emu *EMU) shiftSource(x, y uint8) uint8 {
	if emu.quirks.ShiftUsesVY {
		return emu.V[y]
	}
	return emu.V[x]
}

func (emu *EMU) advanceIndex(x uint8) {
	if emu.quirks.IncrementIndex {
		emu.I += uint16(x) + 1
	}
}

// indexAddress returns I+offset wrapped into the 12 bit address space.
func (emu *EMU) indexAddress(offset uint16) uint16 {
	return (emu.I + offset) & addressMask
}

func (emu *EMU) draw(x, y, height uint8) {
	px := int(emu.V[x]) % display.Width
	py := int(emu.V[y]) % display.Height

	var rows [15]uint8
	for row := uint16(0); row < uint16(height); row++ {
		rows[row] = emu.ReadByte(emu.indexAddress(row))
	}
	collision := emu.display.DrawSprite(px, py, rows[:height], emu.quirks.WrapSprites)
	emu.V[flagRegister] = flag(collision)
}

func flag(set bool) uint8 {
	if set {
		return 1
	}
	return 0
}
