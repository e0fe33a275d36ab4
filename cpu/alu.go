package cpu

// AluOp is an arithmetic logic unit operation.
type AluOp int

//go:generate go tool stringer -linecomment -type=AluOp
const (
	ALU_OP_NOP  = AluOp(0) // nop
	ALU_OP_AND  = AluOp(1) // and
	ALU_OP_OR   = AluOp(2) // or
	ALU_OP_XOR  = AluOp(3) // xor
	ALU_OP_ADDS = AluOp(4) // adds
	ALU_OP_ADDU = AluOp(5) // addu
	ALU_OP_SUBS = AluOp(6) // subs
	ALU_OP_SUBU = AluOp(7) // subu
	ALU_OP_SHRL = AluOp(8) // shrl
	ALU_OP_SHLL = AluOp(9) // shll
)

const aluShiftMask = 0x1f

// Alu computes a op b.
//
// Overflow is only ever reported by the signed operations: ADDS when both
// operands share a sign that the result does not, SUBS when the operands
// differ in sign and the result sign differs from a. Shifts use the low
// five bits of b. NOP passes a through.
func Alu(op AluOp, a, b uint32) (result uint32, overflow bool) {
	switch op {
	case ALU_OP_AND:
		result = a & b
	case ALU_OP_OR:
		result = a | b
	case ALU_OP_XOR:
		result = a ^ b
	case ALU_OP_ADDS:
		result = a + b
		overflow = int32(^(a^b)&(a^result)) < 0
	case ALU_OP_ADDU:
		result = a + b
	case ALU_OP_SUBS:
		result = a - b
		overflow = int32((a^b)&(a^result)) < 0
	case ALU_OP_SUBU:
		result = a - b
	case ALU_OP_SHRL:
		result = a >> (b & aluShiftMask)
	case ALU_OP_SHLL:
		result = a << (b & aluShiftMask)
	default:
		result = a
	}

	return
}
