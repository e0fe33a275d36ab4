package cpu

// ExceptionCode identifies the cause of an exception.
type ExceptionCode int

//go:generate go tool stringer -linecomment -type=ExceptionCode
const (
	EXP_NO_EXP     = ExceptionCode(0) // no_exp
	EXP_EXT_INT    = ExceptionCode(1) // ext_int
	EXP_UNDEF_INSN = ExceptionCode(2) // undef_insn
	EXP_OVERFLOW   = ExceptionCode(3) // overflow
	EXP_MISS_ALIGN = ExceptionCode(4) // miss_align
	EXP_TRAP       = ExceptionCode(5) // trap
	EXP_PRV_VIO    = ExceptionCode(6) // prv_vio
)

// exceptionPriority lists exception codes from highest to lowest priority.
var exceptionPriority = []ExceptionCode{
	EXP_PRV_VIO,
	EXP_TRAP,
	EXP_MISS_ALIGN,
	EXP_OVERFLOW,
	EXP_UNDEF_INSN,
	EXP_EXT_INT,
}

// ExceptionSet is the set of exceptions raised by one instruction.
type ExceptionSet uint8

// Add raises an exception in the set.
func (es *ExceptionSet) Add(code ExceptionCode) {
	if code == EXP_NO_EXP {
		return
	}
	*es |= 1 << code
}

// Has is true if code was raised.
func (es ExceptionSet) Has(code ExceptionCode) bool {
	return es&(1<<code) != 0
}

// Highest returns the highest priority exception of the set, or EXP_NO_EXP.
func (es ExceptionSet) Highest() ExceptionCode {
	for _, code := range exceptionPriority {
		if es.Has(code) {
			return code
		}
	}
	return EXP_NO_EXP
}

// ExceptionState is the exception controller state. PENDING only lasts
// from Detect to Enter within one instruction, so between ticks the
// engine is always NORMAL or in the handler.
type ExceptionState int

//go:generate go tool stringer -linecomment -type=ExceptionState
const (
	EXCEPTION_NORMAL     = ExceptionState(0) // normal
	EXCEPTION_PENDING    = ExceptionState(1) // pending
	EXCEPTION_IN_HANDLER = ExceptionState(2) // handler
)

// ExceptionController selects and enters exceptions, and returns from them.
type ExceptionController struct {
	State   ExceptionState
	Pending ExceptionCode // Exception being entered or handled.
	Target  uint32        // Branch target held for a delay slot exception.
	Taken   int           // Exceptions entered since reset.
}

// Reset returns the controller to normal execution.
func (ec *ExceptionController) Reset() {
	*ec = ExceptionController{}
}

// InterruptPending is true if an external interrupt can be taken now.
func (ec *ExceptionController) InterruptPending(cr *ControlRegisters) bool {
	return cr.InterruptEnabled() && cr.Pending() != 0
}

// Detect picks the exception to take from those raised by an
// instruction, and marks it pending.
func (ec *ExceptionController) Detect(raised ExceptionSet) (code ExceptionCode, ok bool) {
	code = raised.Highest()
	if code == EXP_NO_EXP {
		return
	}

	ec.State = EXCEPTION_PENDING
	ec.Pending = code
	ok = true
	return
}

// Enter takes the pending exception for the instruction at pc. The
// control registers are updated, the branch target is held when pc is a
// delay slot, and the handler address is returned.
func (ec *ExceptionController) Enter(cr *ControlRegisters, pc uint32, target uint32) (vector uint32) {
	cause := uint32(ec.Pending) & CAUSE_EXP_CODE
	if cr.Delay() {
		cause |= CAUSE_DELAY
		ec.Target = target
	} else {
		ec.Target = 0
	}

	cr.PreStatus = cr.Status
	cr.Epc = pc
	cr.Cause = cause
	cr.Status &^= STATUS_EXE_MODE | STATUS_INT_ENABLE | STATUS_DELAY

	ec.State = EXCEPTION_IN_HANDLER
	ec.Taken++

	vector = cr.ExpVector &^ (ISA_WORD_SIZE - 1)
	return
}

// Return restores the state saved by Enter. The returned target is the
// pending branch target when the restored instruction is a delay slot.
func (ec *ExceptionController) Return(cr *ControlRegisters) (pc uint32, target uint32) {
	cr.Status = cr.PreStatus
	pc = cr.Epc &^ (ISA_WORD_SIZE - 1)
	if cr.Delay() {
		target = ec.Target
	}

	ec.State = EXCEPTION_NORMAL
	ec.Pending = EXP_NO_EXP
	return
}
