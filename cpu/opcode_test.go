package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		word  uint32
		op    Opcode
		ra    int
		rb    int
		rc    int
		imm   uint16
		class Class
	}{
		{0x2022_1800, OP_ADDUR, 1, 2, 3, 0x1800, CLASS_ALU},
		{0x2401_0005, OP_ADDUI, 0, 1, 0, 0x0005, CLASS_ALU},
		{0x4000_ffff, OP_BE, 0, 0, 31, 0xffff, CLASS_BRANCH},
		{0x53e0_0000, OP_JMP, 31, 0, 0, 0, CLASS_BRANCH},
		{0x5823_fffc, OP_LDW, 1, 3, 31, 0xfffc, CLASS_MEM},
		{0x6000_0000, OP_TRAP, 0, 0, 0, 0, CLASS_CTRL},
		{0x6402_0000, OP_RDCR, 0, 2, 0, 0, CLASS_CTRL},
		{0x7000_0000, Opcode(0x1c), 0, 0, 0, 0, CLASS_UNDEF},
		{0xfc00_0000, Opcode(0x3f), 0, 0, 0, 0, CLASS_UNDEF},
	}

	for _, entry := range table {
		ins := Decode(entry.word)
		assert.Equal(entry.word, ins.Word)
		assert.Equal(entry.op, ins.Op, "%08x", entry.word)
		assert.Equal(entry.ra, ins.Ra, "%08x", entry.word)
		assert.Equal(entry.rb, ins.Rb, "%08x", entry.word)
		assert.Equal(entry.rc, ins.Rc, "%08x", entry.word)
		assert.Equal(entry.imm, ins.Imm, "%08x", entry.word)
		assert.Equal(entry.class, ins.Class(), "%08x", entry.word)
		assert.Equal(entry.class != CLASS_UNDEF, ins.Defined(), "%08x", entry.word)
	}
}

func TestInstruction_Operand(t *testing.T) {
	assert := assert.New(t)

	ins := Decode(MakeCodeI(OP_ADDSI, 1, 2, 0xfffe))
	assert.Equal(uint32(0xffff_fffe), ins.Operand())
	assert.Equal(uint32(0xffff_fffe), ins.ImmSigned())
	assert.Equal(uint32(0x0000_fffe), ins.ImmUnsigned())

	ins = Decode(MakeCodeI(OP_ORI, 1, 2, 0xfffe))
	assert.Equal(uint32(0x0000_fffe), ins.Operand())

	ins = Decode(MakeCodeI(OP_SHLLI, 1, 2, 0x8001))
	assert.Equal(uint32(0x0000_8001), ins.Operand())
}

func TestInstruction_String(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		word uint32
		text string
	}{
		{ISA_NOP, "nop"},
		{MakeCodeR(OP_ADDUR, 3, 1, 2), "addur r3 r1 r2"},
		{MakeCodeR(OP_XORR, 0, 0, 1), "xorr r0 r0 r1"},
		{MakeCodeI(OP_ADDSI, 1, 2, 0xfffe), "addsi r1 r2 -2"},
		{MakeCodeI(OP_ORI, 1, 2, 0xff), "ori r1 r2 0xff"},
		{MakeCodeBranch(OP_BNE, 1, 2, -3), "bne r1 r2 -3"},
		{MakeCodeJump(OP_CALL, 5), "call r5"},
		{MakeCodeMem(OP_LDW, 3, 1, 8), "ldw r3 r1 8"},
		{MakeCodeMem(OP_STW, 3, 1, -8), "stw r3 r1 -8"},
		{MakeCodeRdcr(2, CREG_EPC), "rdcr r2 epc"},
		{MakeCodeRdcr(2, CregAddr(9)), "rdcr r2 cr9"},
		{MakeCodeWrcr(CREG_STATUS, 4), "wrcr status r4"},
		{MakeCodeTrap(), "trap"},
		{MakeCodeExrt(), "exrt"},
		{0x7000_0000, ".word 0x70000000"},
	}

	for _, entry := range table {
		assert.Equal(entry.text, Decode(entry.word).String(), "%08x", entry.word)
	}
}

func TestMakeCode(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint32(0x2022_1800), MakeCodeR(OP_ADDUR, 3, 1, 2))
	assert.Equal(uint32(0x0c21_1234), MakeCodeI(OP_ORI, 1, 1, 0x1234))
	assert.Equal(uint32(0x4022_0001), MakeCodeBranch(OP_BE, 1, 2, 1))
	assert.Equal(uint32(0x4400_fffc), MakeCodeBranch(OP_BNE, 0, 0, -4))
	assert.Equal(uint32(0x53e0_0000), MakeCodeJump(OP_JMP, REG_LINK))
	assert.Equal(uint32(0x5823_fffc), MakeCodeMem(OP_LDW, 3, 1, -4))
	assert.Equal(uint32(0x6402_0000), MakeCodeRdcr(2, CREG_STATUS))
	assert.Equal(uint32(0x6883_0000), MakeCodeWrcr(CREG_EPC, 4))
	assert.Equal(uint32(0x6000_0000), MakeCodeTrap())
	assert.Equal(uint32(0x6c00_0000), MakeCodeExrt())
}

func TestOpcodeTable(t *testing.T) {
	assert := assert.New(t)

	for op := Opcode(0); op <= ISA_OP_MASK; op++ {
		ins := Decode(uint32(op) << ISA_OP_SHIFT)
		if op <= OP_EXRT {
			assert.True(ins.Defined(), "%v", op)
			assert.NotEqual(CLASS_UNDEF, ins.Class(), "%v", op)
		} else {
			assert.False(ins.Defined(), "0x%x", int(op))
		}
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(uint32(ISA_NOP))
	f.Add(uint32(0x2022_1800))
	f.Add(uint32(0xffff_ffff))

	f.Fuzz(func(t *testing.T, word uint32) {
		ins := Decode(word)
		if ins.Op > OP_EXRT {
			if ins.Defined() || ins.Class() != CLASS_UNDEF {
				t.Errorf("%08x: opcode %v should be undefined", word, ins.Op)
			}
		}
		if len(ins.String()) == 0 {
			t.Errorf("%08x: empty disassembly", word)
		}
		repacked := makeWord(ins.Op, ins.Ra, ins.Rb, ins.Imm)
		if repacked != word {
			t.Errorf("%08x: repacked as %08x", word, repacked)
		}
	})
}
