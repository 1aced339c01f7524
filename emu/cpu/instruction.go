package cpu

import "fmt"

// Op is the operation kind of a decoded instruction.
type Op uint8

const (
	OpInvalid Op = iota

	OpSys       // 0NNN
	OpCls       // 00E0
	OpRet       // 00EE
	OpJump      // 1NNN
	OpCall      // 2NNN
	OpSkipEqImm // 3XNN
	OpSkipNeImm // 4XNN
	OpSkipEqReg // 5XY0
	OpLoadImm   // 6XNN
	OpAddImm    // 7XNN
	OpLoadReg   // 8XY0
	OpOr        // 8XY1
	OpAnd       // 8XY2
	OpXor       // 8XY3
	OpAddReg    // 8XY4
	OpSub       // 8XY5
	OpShr       // 8XY6
	OpSubn      // 8XY7
	OpShl       // 8XYE
	OpSkipNeReg // 9XY0
	OpLoadIndex // ANNN
	OpJumpV0    // BNNN
	OpRand      // CXNN
	OpDraw      // DXYN
	OpSkipKey   // EX9E
	OpSkipNoKey // EXA1
	OpLoadDelay // FX07
	OpWaitKey   // FX0A
	OpSetDelay  // FX15
	OpSetSound  // FX18
	OpAddIndex  // FX1E
	OpLoadFont  // FX29
	OpStoreBCD  // FX33
	OpStoreRegs // FX55
	OpLoadRegs  // FX65
)

var opNames = [...]string{
	OpInvalid:   "???",
	OpSys:       "SYS",
	OpCls:       "CLS",
	OpRet:       "RET",
	OpJump:      "JP",
	OpCall:      "CALL",
	OpSkipEqImm: "SE",
	OpSkipNeImm: "SNE",
	OpSkipEqReg: "SE",
	OpLoadImm:   "LD",
	OpAddImm:    "ADD",
	OpLoadReg:   "LD",
	OpOr:        "OR",
	OpAnd:       "AND",
	OpXor:       "XOR",
	OpAddReg:    "ADD",
	OpSub:       "SUB",
	OpShr:       "SHR",
	OpSubn:      "SUBN",
	OpShl:       "SHL",
	OpSkipNeReg: "SNE",
	OpLoadIndex: "LD",
	OpJumpV0:    "JP",
	OpRand:      "RND",
	OpDraw:      "DRW",
	OpSkipKey:   "SKP",
	OpSkipNoKey: "SKNP",
	OpLoadDelay: "LD",
	OpWaitKey:   "LD",
	OpSetDelay:  "LD",
	OpSetSound:  "LD",
	OpAddIndex:  "ADD",
	OpLoadFont:  "LD",
	OpStoreBCD:  "LD",
	OpStoreRegs: "LD",
	OpLoadRegs:  "LD",
}

// String returns the mnemonic of the operation.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Instruction is a decoded opcode. It only lives for one cycle.
type Instruction struct {
	Op  Op
	Raw uint16

	X   uint8  // register nibble 0x0F00
	Y   uint8  // register nibble 0x00F0
	N   uint8  // nibble 0x000F
	NN  uint8  // byte 0x00FF
	NNN uint16 // address 0x0FFF
}

// Decode splits an opcode word into its nibble fields and maps it to an
// operation. It reports false for words that are not CHIP-8
// instructions.
func Decode(word uint16) (Instruction, bool) {
	ins := Instruction{
		Raw: word,
		X:   uint8(word>>8) & 0xF,
		Y:   uint8(word>>4) & 0xF,
		N:   uint8(word) & 0xF,
		NN:  uint8(word),
		NNN: word & 0x0FFF,
	}

	switch word & 0xF000 {
	case 0x0000:
		switch word {
		case 0x00E0:
			ins.Op = OpCls
		case 0x00EE:
			ins.Op = OpRet
		default:
			ins.Op = OpSys
		}
	case 0x1000:
		ins.Op = OpJump
	case 0x2000:
		ins.Op = OpCall
	case 0x3000:
		ins.Op = OpSkipEqImm
	case 0x4000:
		ins.Op = OpSkipNeImm
	case 0x5000:
		if ins.N == 0 {
			ins.Op = OpSkipEqReg
		}
	case 0x6000:
		ins.Op = OpLoadImm
	case 0x7000:
		ins.Op = OpAddImm
	case 0x8000:
		ins.Op = decodeALU(ins.N)
	case 0x9000:
		if ins.N == 0 {
			ins.Op = OpSkipNeReg
		}
	case 0xA000:
		ins.Op = OpLoadIndex
	case 0xB000:
		ins.Op = OpJumpV0
	case 0xC000:
		ins.Op = OpRand
	case 0xD000:
		ins.Op = OpDraw
	case 0xE000:
		switch ins.NN {
		case 0x9E:
			ins.Op = OpSkipKey
		case 0xA1:
			ins.Op = OpSkipNoKey
		}
	case 0xF000:
		ins.Op = decodeMisc(ins.NN)
	}

	return ins, ins.Op != OpInvalid
}

func decodeALU(n uint8) Op {
	switch n {
	case 0x0:
		return OpLoadReg
	case 0x1:
		return OpOr
	case 0x2:
		return OpAnd
	case 0x3:
		return OpXor
	case 0x4:
		return OpAddReg
	case 0x5:
		return OpSub
	case 0x6:
		return OpShr
	case 0x7:
		return OpSubn
	case 0xE:
		return OpShl
	}
	return OpInvalid
}

func decodeMisc(nn uint8) Op {
	switch nn {
	case 0x07:
		return OpLoadDelay
	case 0x0A:
		return OpWaitKey
	case 0x15:
		return OpSetDelay
	case 0x18:
		return OpSetSound
	case 0x1E:
		return OpAddIndex
	case 0x29:
		return OpLoadFont
	case 0x33:
		return OpStoreBCD
	case 0x55:
		return OpStoreRegs
	case 0x65:
		return OpLoadRegs
	}
	return OpInvalid
}
