package cpu

import (
	"fmt"
)

// CregAddr is a control register address.
type CregAddr int

const (
	CREG_STATUS     = CregAddr(0x00) // Execution mode, interrupt enable, delay slot.
	CREG_PRE_STATUS = CregAddr(0x01) // STATUS before the last exception.
	CREG_PC         = CregAddr(0x02) // Address of the executing instruction.
	CREG_EPC        = CregAddr(0x03) // Address of the excepting instruction.
	CREG_EXP_VECTOR = CregAddr(0x04) // Exception handler address.
	CREG_CAUSE      = CregAddr(0x05) // Exception code and delay flag.
	CREG_INT_MASK   = CregAddr(0x06) // Interrupt line mask, 1 masks.
	CREG_IRQ        = CregAddr(0x07) // Latched interrupt lines.
	CREG_ROM_SIZE   = CregAddr(0x1d) // Read only, ROM size in bytes.
	CREG_SPM_SIZE   = CregAddr(0x1e) // Read only, SPM size in bytes.
	CREG_CPU_INFO   = CregAddr(0x1f) // Read only, release information.

	CREG_NUM = 32
)

var cregName = map[CregAddr]string{
	CREG_STATUS:     "status",
	CREG_PRE_STATUS: "pre_status",
	CREG_PC:         "pc",
	CREG_EPC:        "epc",
	CREG_EXP_VECTOR: "exp_vector",
	CREG_CAUSE:      "cause",
	CREG_INT_MASK:   "int_mask",
	CREG_IRQ:        "irq",
	CREG_ROM_SIZE:   "rom_size",
	CREG_SPM_SIZE:   "spm_size",
	CREG_CPU_INFO:   "cpu_info",
}

// String returns the assembler name of the control register.
func (addr CregAddr) String() string {
	name, ok := cregName[addr]
	if ok {
		return name
	}
	return fmt.Sprintf("cr%d", int(addr))
}

// ReadOnly is true for the informational registers.
func (addr CregAddr) ReadOnly() bool {
	return addr >= CREG_ROM_SIZE && addr < CREG_NUM
}

// ParseCregAddr returns the control register with the assembler name.
func ParseCregAddr(name string) (addr CregAddr, ok bool) {
	for addr, reg := range cregName {
		if reg == name {
			return addr, true
		}
	}
	return
}

// STATUS and CAUSE bits.
const (
	STATUS_EXE_MODE   = uint32(1 << 0) // Set in user mode.
	STATUS_INT_ENABLE = uint32(1 << 1) // External interrupts enabled.
	STATUS_DELAY      = uint32(1 << 3) // Instruction at PC is a delay slot.
	STATUS_MASK       = STATUS_EXE_MODE | STATUS_INT_ENABLE | STATUS_DELAY

	CAUSE_EXP_CODE = uint32(0x7)    // Exception code.
	CAUSE_DELAY    = uint32(1 << 3) // Exception taken in a delay slot.
	CAUSE_MASK     = CAUSE_EXP_CODE | CAUSE_DELAY

	IRQ_LINES = 8
	IRQ_MASK  = uint32(1<<IRQ_LINES - 1)
)

// ExecMode is the processor privilege level.
type ExecMode int

//go:generate go tool stringer -linecomment -type=ExecMode
const (
	MODE_KERNEL = ExecMode(0) // kernel
	MODE_USER   = ExecMode(1) // user
)

// ControlRegisters holds processor state outside the general registers.
type ControlRegisters struct {
	Status    uint32
	PreStatus uint32
	Pc        uint32
	Epc       uint32
	ExpVector uint32
	Cause     uint32
	IntMask   uint32
	Irq       uint32
	RomSize   uint32
	SpmSize   uint32
	CpuInfo   uint32
}

// Reset clears all writable registers to zero, which selects kernel mode
// with interrupts disabled and the program counter at zero.
func (cr *ControlRegisters) Reset(romSize, spmSize, cpuInfo uint32) {
	*cr = ControlRegisters{
		RomSize: romSize,
		SpmSize: spmSize,
		CpuInfo: cpuInfo,
	}
}

// Mode returns the execution mode.
func (cr *ControlRegisters) Mode() ExecMode {
	if cr.Status&STATUS_EXE_MODE != 0 {
		return MODE_USER
	}
	return MODE_KERNEL
}

// InterruptEnabled is true if external interrupts may be taken.
func (cr *ControlRegisters) InterruptEnabled() bool {
	return cr.Status&STATUS_INT_ENABLE != 0
}

// Delay is true if the instruction at PC is in a branch delay slot.
func (cr *ControlRegisters) Delay() bool {
	return cr.Status&STATUS_DELAY != 0
}

// SetDelay updates the delay slot flag.
func (cr *ControlRegisters) SetDelay(delay bool) {
	if delay {
		cr.Status |= STATUS_DELAY
	} else {
		cr.Status &^= STATUS_DELAY
	}
}

// Pending returns the unmasked latched interrupt lines.
func (cr *ControlRegisters) Pending() uint32 {
	return cr.Irq &^ cr.IntMask & IRQ_MASK
}

// Read returns the control register value. Unassigned addresses read as
// zero. Read panics on an address outside the register file.
func (cr *ControlRegisters) Read(addr CregAddr) (value uint32) {
	if addr < 0 || addr >= CREG_NUM {
		panic(fmt.Sprintf("control register %d out of range", int(addr)))
	}

	switch addr {
	case CREG_STATUS:
		value = cr.Status
	case CREG_PRE_STATUS:
		value = cr.PreStatus
	case CREG_PC:
		value = cr.Pc
	case CREG_EPC:
		value = cr.Epc
	case CREG_EXP_VECTOR:
		value = cr.ExpVector
	case CREG_CAUSE:
		value = cr.Cause
	case CREG_INT_MASK:
		value = cr.IntMask
	case CREG_IRQ:
		value = cr.Irq
	case CREG_ROM_SIZE:
		value = cr.RomSize
	case CREG_SPM_SIZE:
		value = cr.SpmSize
	case CREG_CPU_INFO:
		value = cr.CpuInfo
	}

	return
}

// Writable checks that a write of addr is permitted in mode.
func (cr *ControlRegisters) Writable(addr CregAddr, mode ExecMode) (err error) {
	switch {
	case addr < 0 || addr >= CREG_NUM:
		err = ErrCregAddress
	case mode != MODE_KERNEL:
		err = ErrPrivilege
	case addr.ReadOnly():
		err = ErrReadOnly
	}
	return
}

// Write updates a control register. Writes to PC and to unassigned
// addresses are accepted and dropped.
func (cr *ControlRegisters) Write(addr CregAddr, value uint32, mode ExecMode) (err error) {
	err = cr.Writable(addr, mode)
	if err != nil {
		return
	}

	switch addr {
	case CREG_STATUS:
		cr.Status = value & STATUS_MASK
	case CREG_PRE_STATUS:
		cr.PreStatus = value & STATUS_MASK
	case CREG_EPC:
		cr.Epc = value
	case CREG_EXP_VECTOR:
		cr.ExpVector = value
	case CREG_CAUSE:
		cr.Cause = value & CAUSE_MASK
	case CREG_INT_MASK:
		cr.IntMask = value & IRQ_MASK
	case CREG_IRQ:
		cr.Irq = value & IRQ_MASK
	}

	return
}
