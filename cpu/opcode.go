package cpu

import (
	"fmt"
)

// Instruction word layout.
const (
	ISA_NOP = uint32(0x0) // No operation (andr r0 r0 r0).

	ISA_OP_SHIFT  = 26   // Opcode location, bits 31:26.
	ISA_OP_MASK   = 0x3f // Opcode width mask.
	ISA_RA_SHIFT  = 21   // Register A location, bits 25:21.
	ISA_RB_SHIFT  = 16   // Register B location, bits 20:16.
	ISA_RC_SHIFT  = 11   // Register C location, bits 15:11.
	ISA_REG_MASK  = 0x1f // Register address width mask.
	ISA_IMM_MASK  = 0xffff
	ISA_IMM_MSB   = 15 // Sign bit of the immediate.
	ISA_WORD_SIZE = 4  // Bytes per instruction word.

	REG_NUM  = 32 // Number of general registers.
	REG_LINK = 31 // Return address register written by call.
)

// Opcode is an instruction operation code.
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_ANDR  = Opcode(0x00) // andr
	OP_ANDI  = Opcode(0x01) // andi
	OP_ORR   = Opcode(0x02) // orr
	OP_ORI   = Opcode(0x03) // ori
	OP_XORR  = Opcode(0x04) // xorr
	OP_XORI  = Opcode(0x05) // xori
	OP_ADDSR = Opcode(0x06) // addsr
	OP_ADDSI = Opcode(0x07) // addsi
	OP_ADDUR = Opcode(0x08) // addur
	OP_ADDUI = Opcode(0x09) // addui
	OP_SUBSR = Opcode(0x0a) // subsr
	OP_SUBUR = Opcode(0x0b) // subur
	OP_SHRLR = Opcode(0x0c) // shrlr
	OP_SHRLI = Opcode(0x0d) // shrli
	OP_SHLLR = Opcode(0x0e) // shllr
	OP_SHLLI = Opcode(0x0f) // shlli
	OP_BE    = Opcode(0x10) // be
	OP_BNE   = Opcode(0x11) // bne
	OP_BSGT  = Opcode(0x12) // bsgt
	OP_BUGT  = Opcode(0x13) // bugt
	OP_JMP   = Opcode(0x14) // jmp
	OP_CALL  = Opcode(0x15) // call
	OP_LDW   = Opcode(0x16) // ldw
	OP_STW   = Opcode(0x17) // stw
	OP_TRAP  = Opcode(0x18) // trap
	OP_RDCR  = Opcode(0x19) // rdcr
	OP_WRCR  = Opcode(0x1a) // wrcr
	OP_EXRT  = Opcode(0x1b) // exrt
)

// Class is the execution path of an instruction.
type Class int

//go:generate go tool stringer -linecomment -type=Class
const (
	CLASS_UNDEF  = Class(0) // undef
	CLASS_ALU    = Class(1) // alu
	CLASS_MEM    = Class(2) // mem
	CLASS_CTRL   = Class(3) // ctrl
	CLASS_BRANCH = Class(4) // branch
)

// Format is the use an instruction makes of its fields.
type Format int

const (
	FORMAT_NONE   = Format(iota) // no operands
	FORMAT_R                     // rc = ra op rb
	FORMAT_I                     // rb = ra op imm
	FORMAT_BRANCH                // ra ? rb, pc relative offset
	FORMAT_JUMP                  // ra is the target
	FORMAT_MEM                   // rb <-> mem[ra + imm]
	FORMAT_RDCR                  // rb = creg[ra]
	FORMAT_WRCR                  // creg[rb] = ra
)

// Imm is the extension applied to the immediate.
type Imm int

const (
	IMM_NONE     = Imm(iota) // immediate unused
	IMM_UNSIGNED             // zero extended
	IMM_SIGNED               // sign extended
)

// MemOp is a memory operation code.
type MemOp int

const (
	MEM_OP_NOP = MemOp(0) // No operation.
	MEM_OP_LDW = MemOp(1) // Read word.
	MEM_OP_STW = MemOp(2) // Write word.
)

// CtrlOp is a control operation code.
type CtrlOp int

const (
	CTRL_OP_NOP  = CtrlOp(0) // No operation.
	CTRL_OP_WRCR = CtrlOp(1) // Write control register.
	CTRL_OP_EXRT = CtrlOp(2) // Return from exception.
)

// OpInfo describes how the execution engine dispatches an opcode.
type OpInfo struct {
	Class  Class
	Format Format
	Imm    Imm
	Alu    AluOp
	Mem    MemOp
	Ctrl   CtrlOp
}

var opTable = map[Opcode]OpInfo{
	OP_ANDR:  {Class: CLASS_ALU, Format: FORMAT_R, Alu: ALU_OP_AND},
	OP_ANDI:  {Class: CLASS_ALU, Format: FORMAT_I, Imm: IMM_UNSIGNED, Alu: ALU_OP_AND},
	OP_ORR:   {Class: CLASS_ALU, Format: FORMAT_R, Alu: ALU_OP_OR},
	OP_ORI:   {Class: CLASS_ALU, Format: FORMAT_I, Imm: IMM_UNSIGNED, Alu: ALU_OP_OR},
	OP_XORR:  {Class: CLASS_ALU, Format: FORMAT_R, Alu: ALU_OP_XOR},
	OP_XORI:  {Class: CLASS_ALU, Format: FORMAT_I, Imm: IMM_UNSIGNED, Alu: ALU_OP_XOR},
	OP_ADDSR: {Class: CLASS_ALU, Format: FORMAT_R, Alu: ALU_OP_ADDS},
	OP_ADDSI: {Class: CLASS_ALU, Format: FORMAT_I, Imm: IMM_SIGNED, Alu: ALU_OP_ADDS},
	OP_ADDUR: {Class: CLASS_ALU, Format: FORMAT_R, Alu: ALU_OP_ADDU},
	OP_ADDUI: {Class: CLASS_ALU, Format: FORMAT_I, Imm: IMM_SIGNED, Alu: ALU_OP_ADDU},
	OP_SUBSR: {Class: CLASS_ALU, Format: FORMAT_R, Alu: ALU_OP_SUBS},
	OP_SUBUR: {Class: CLASS_ALU, Format: FORMAT_R, Alu: ALU_OP_SUBU},
	OP_SHRLR: {Class: CLASS_ALU, Format: FORMAT_R, Alu: ALU_OP_SHRL},
	OP_SHRLI: {Class: CLASS_ALU, Format: FORMAT_I, Imm: IMM_UNSIGNED, Alu: ALU_OP_SHRL},
	OP_SHLLR: {Class: CLASS_ALU, Format: FORMAT_R, Alu: ALU_OP_SHLL},
	OP_SHLLI: {Class: CLASS_ALU, Format: FORMAT_I, Imm: IMM_UNSIGNED, Alu: ALU_OP_SHLL},
	OP_BE:    {Class: CLASS_BRANCH, Format: FORMAT_BRANCH, Imm: IMM_SIGNED},
	OP_BNE:   {Class: CLASS_BRANCH, Format: FORMAT_BRANCH, Imm: IMM_SIGNED},
	OP_BSGT:  {Class: CLASS_BRANCH, Format: FORMAT_BRANCH, Imm: IMM_SIGNED},
	OP_BUGT:  {Class: CLASS_BRANCH, Format: FORMAT_BRANCH, Imm: IMM_SIGNED},
	OP_JMP:   {Class: CLASS_BRANCH, Format: FORMAT_JUMP},
	OP_CALL:  {Class: CLASS_BRANCH, Format: FORMAT_JUMP},
	OP_LDW:   {Class: CLASS_MEM, Format: FORMAT_MEM, Imm: IMM_SIGNED, Mem: MEM_OP_LDW},
	OP_STW:   {Class: CLASS_MEM, Format: FORMAT_MEM, Imm: IMM_SIGNED, Mem: MEM_OP_STW},
	OP_TRAP:  {Class: CLASS_CTRL, Format: FORMAT_NONE},
	OP_RDCR:  {Class: CLASS_CTRL, Format: FORMAT_RDCR},
	OP_WRCR:  {Class: CLASS_CTRL, Format: FORMAT_WRCR, Ctrl: CTRL_OP_WRCR},
	OP_EXRT:  {Class: CLASS_CTRL, Format: FORMAT_NONE, Ctrl: CTRL_OP_EXRT},
}

func init() {
	for op, info := range opTable {
		if op < 0 || op > ISA_OP_MASK {
			panic(fmt.Sprintf("opcode 0x%x is not representable", int(op)))
		}
		if info.Class == CLASS_UNDEF {
			panic(fmt.Sprintf("opcode %v has no class", op))
		}
		if info.Class == CLASS_ALU && info.Alu == ALU_OP_NOP {
			panic(fmt.Sprintf("opcode %v has no alu operation", op))
		}
	}
	for op := OP_ANDR; op <= OP_EXRT; op++ {
		if _, ok := opTable[op]; !ok {
			panic(fmt.Sprintf("opcode %v missing from table", op))
		}
	}
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Word uint32 // Raw instruction word.
	Op   Opcode // Bits 31:26.
	Ra   int    // Bits 25:21.
	Rb   int    // Bits 20:16.
	Rc   int    // Bits 15:11.
	Imm  uint16 // Bits 15:0.
}

// Decode splits an instruction word into its fields. Decode never fails;
// an unknown opcode decodes to an instruction of class CLASS_UNDEF.
func Decode(word uint32) Instruction {
	return Instruction{
		Word: word,
		Op:   Opcode((word >> ISA_OP_SHIFT) & ISA_OP_MASK),
		Ra:   int((word >> ISA_RA_SHIFT) & ISA_REG_MASK),
		Rb:   int((word >> ISA_RB_SHIFT) & ISA_REG_MASK),
		Rc:   int((word >> ISA_RC_SHIFT) & ISA_REG_MASK),
		Imm:  uint16(word & ISA_IMM_MASK),
	}
}

// Info returns the dispatch information of the opcode.
func (ins Instruction) Info() (info OpInfo, ok bool) {
	info, ok = opTable[ins.Op]
	return
}

// Defined is true if the opcode is in the instruction set.
func (ins Instruction) Defined() bool {
	_, ok := opTable[ins.Op]
	return ok
}

// Class returns the execution path of the instruction.
func (ins Instruction) Class() Class {
	return opTable[ins.Op].Class
}

// ImmSigned returns the immediate sign extended to 32 bits.
func (ins Instruction) ImmSigned() uint32 {
	return uint32(int32(int16(ins.Imm)))
}

// ImmUnsigned returns the immediate zero extended to 32 bits.
func (ins Instruction) ImmUnsigned() uint32 {
	return uint32(ins.Imm)
}

// Operand returns the immediate with the extension the opcode uses.
func (ins Instruction) Operand() uint32 {
	if opTable[ins.Op].Imm == IMM_SIGNED {
		return ins.ImmSigned()
	}
	return ins.ImmUnsigned()
}

// String returns the assembly language form of the instruction.
func (ins Instruction) String() string {
	if ins.Word == ISA_NOP {
		return "nop"
	}

	info, ok := ins.Info()
	if !ok {
		return fmt.Sprintf(".word 0x%08x", ins.Word)
	}

	switch info.Format {
	case FORMAT_R:
		return fmt.Sprintf("%v r%d r%d r%d", ins.Op, ins.Rc, ins.Ra, ins.Rb)
	case FORMAT_I:
		if info.Imm == IMM_SIGNED {
			return fmt.Sprintf("%v r%d r%d %d", ins.Op, ins.Rb, ins.Ra, int16(ins.Imm))
		}
		return fmt.Sprintf("%v r%d r%d 0x%x", ins.Op, ins.Rb, ins.Ra, ins.Imm)
	case FORMAT_BRANCH:
		return fmt.Sprintf("%v r%d r%d %d", ins.Op, ins.Ra, ins.Rb, int16(ins.Imm))
	case FORMAT_JUMP:
		return fmt.Sprintf("%v r%d", ins.Op, ins.Ra)
	case FORMAT_MEM:
		return fmt.Sprintf("%v r%d r%d %d", ins.Op, ins.Rb, ins.Ra, int16(ins.Imm))
	case FORMAT_RDCR:
		return fmt.Sprintf("%v r%d %v", ins.Op, ins.Rb, CregAddr(ins.Ra))
	case FORMAT_WRCR:
		return fmt.Sprintf("%v %v r%d", ins.Op, CregAddr(ins.Rb), ins.Ra)
	}

	return ins.Op.String()
}

// makeWord packs instruction fields.
func makeWord(op Opcode, ra, rb int, low uint16) uint32 {
	return (uint32(op)&ISA_OP_MASK)<<ISA_OP_SHIFT |
		(uint32(ra)&ISA_REG_MASK)<<ISA_RA_SHIFT |
		(uint32(rb)&ISA_REG_MASK)<<ISA_RB_SHIFT |
		uint32(low)
}

// MakeCodeR creates a register form instruction: rc = ra op rb.
func MakeCodeR(op Opcode, rc, ra, rb int) uint32 {
	return makeWord(op, ra, rb, uint16((rc&ISA_REG_MASK)<<ISA_RC_SHIFT))
}

// MakeCodeI creates an immediate form instruction: rb = ra op imm.
func MakeCodeI(op Opcode, rb, ra int, imm uint16) uint32 {
	return makeWord(op, ra, rb, imm)
}

// MakeCodeBranch creates a conditional branch with a word offset relative
// to the delay slot.
func MakeCodeBranch(op Opcode, ra, rb int, offset int16) uint32 {
	return makeWord(op, ra, rb, uint16(offset))
}

// MakeCodeJump creates a jmp or call to the address in ra.
func MakeCodeJump(op Opcode, ra int) uint32 {
	return makeWord(op, ra, 0, 0)
}

// MakeCodeMem creates a ldw or stw of rb at ra + offset.
func MakeCodeMem(op Opcode, rb, ra int, offset int16) uint32 {
	return makeWord(op, ra, rb, uint16(offset))
}

// MakeCodeRdcr creates rb = creg[cr].
func MakeCodeRdcr(rb int, cr CregAddr) uint32 {
	return makeWord(OP_RDCR, int(cr), rb, 0)
}

// MakeCodeWrcr creates creg[cr] = ra.
func MakeCodeWrcr(cr CregAddr, ra int) uint32 {
	return makeWord(OP_WRCR, ra, int(cr), 0)
}

// MakeCodeTrap creates a trap.
func MakeCodeTrap() uint32 {
	return makeWord(OP_TRAP, 0, 0, 0)
}

// MakeCodeExrt creates a return from exception.
func MakeCodeExrt() uint32 {
	return makeWord(OP_EXRT, 0, 0, 0)
}
