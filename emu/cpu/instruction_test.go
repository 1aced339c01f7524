package cpu

import (
	"fmt"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		word uint16
		op   Op
	}{
		{0x00E0, OpCls},
		{0x00EE, OpRet},
		{0x0123, OpSys},
		{0x1ABC, OpJump},
		{0x2ABC, OpCall},
		{0x3A12, OpSkipEqImm},
		{0x4A12, OpSkipNeImm},
		{0x5AB0, OpSkipEqReg},
		{0x6A12, OpLoadImm},
		{0x7A12, OpAddImm},
		{0x8AB0, OpLoadReg},
		{0x8AB1, OpOr},
		{0x8AB2, OpAnd},
		{0x8AB3, OpXor},
		{0x8AB4, OpAddReg},
		{0x8AB5, OpSub},
		{0x8AB6, OpShr},
		{0x8AB7, OpSubn},
		{0x8ABE, OpShl},
		{0x9AB0, OpSkipNeReg},
		{0xA123, OpLoadIndex},
		{0xB123, OpJumpV0},
		{0xCA12, OpRand},
		{0xDAB5, OpDraw},
		{0xEA9E, OpSkipKey},
		{0xEAA1, OpSkipNoKey},
		{0xFA07, OpLoadDelay},
		{0xFA0A, OpWaitKey},
		{0xFA15, OpSetDelay},
		{0xFA18, OpSetSound},
		{0xFA1E, OpAddIndex},
		{0xFA29, OpLoadFont},
		{0xFA33, OpStoreBCD},
		{0xFA55, OpStoreRegs},
		{0xFA65, OpLoadRegs},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%04X", tt.word), func(t *testing.T) {
			ins, ok := Decode(tt.word)
			assert.True(t, ok)
			assert.Equal(t, tt.op, ins.Op)
			assert.Equal(t, tt.word, ins.Raw)
		})
	}
}

func TestDecodeFields(t *testing.T) {
	ins, ok := Decode(0xD3A7)
	assert.True(t, ok)
	assert.Equal(t, uint8(0x3), ins.X)
	assert.Equal(t, uint8(0xA), ins.Y)
	assert.Equal(t, uint8(0x7), ins.N)
	assert.Equal(t, uint8(0xA7), ins.NN)
	assert.Equal(t, uint16(0x3A7), ins.NNN)
}

func TestDecodeInvalid(t *testing.T) {
	words := []uint16{0x5AB1, 0x8AB8, 0x8ABF, 0x9AB1, 0xE000, 0xEA9F, 0xF000, 0xFA66, 0xFFFF}

	for _, word := range words {
		t.Run(fmt.Sprintf("%04X", word), func(t *testing.T) {
			ins, ok := Decode(word)
			assert.False(t, ok)
			assert.Equal(t, OpInvalid, ins.Op)
		})
	}
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "DRW", OpDraw.String())
	assert.Equal(t, "SKNP", OpSkipNoKey.String())
	assert.Equal(t, "Op(200)", Op(200).String())
}
