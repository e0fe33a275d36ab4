package cpu

import (
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/azpr/bus"
)

// Phase is the bus phase of the execution engine.
type Phase int

//go:generate go tool stringer -linecomment -type=Phase
const (
	PHASE_FETCH  = Phase(0) // fetch
	PHASE_MEMORY = Phase(1) // memory
)

var _cpu_defines = map[string]string{
	"STATUS_EXE_MODE":   fmt.Sprintf("0x%x", STATUS_EXE_MODE),
	"STATUS_INT_ENABLE": fmt.Sprintf("0x%x", STATUS_INT_ENABLE),
	"STATUS_DELAY":      fmt.Sprintf("0x%x", STATUS_DELAY),
	"CAUSE_EXP_CODE":    fmt.Sprintf("0x%x", CAUSE_EXP_CODE),
	"CAUSE_DELAY":       fmt.Sprintf("0x%x", CAUSE_DELAY),
	"EXP_EXT_INT":       fmt.Sprintf("%d", EXP_EXT_INT),
	"EXP_UNDEF_INSN":    fmt.Sprintf("%d", EXP_UNDEF_INSN),
	"EXP_OVERFLOW":      fmt.Sprintf("%d", EXP_OVERFLOW),
	"EXP_MISS_ALIGN":    fmt.Sprintf("%d", EXP_MISS_ALIGN),
	"EXP_TRAP":          fmt.Sprintf("%d", EXP_TRAP),
	"EXP_PRV_VIO":       fmt.Sprintf("%d", EXP_PRV_VIO),
}

// retirement is the architectural effect of an instruction, applied
// when the instruction completes.
type retirement struct {
	ins    Instruction
	pc     uint32
	next   uint32 // Address of the next instruction.
	delay  bool   // Next instruction is a delay slot.
	target uint32 // Branch target taken after the delay slot.
	idle   bool   // Delay slot of a branch to itself.

	write bool // Register write.
	dst   int
	value uint32

	wrcr bool // Control register write.
	creg CregAddr
	data uint32

	exrt bool
}

func (rt *retirement) setRegister(dst int, value uint32) {
	rt.write = true
	rt.dst = dst
	rt.value = value
}

// access is an outstanding data bus access.
type access struct {
	address uint32
	write   bool
	data    uint32
}

// Cpu is the execution engine of the processor.
type Cpu struct {
	Verbose bool               // Set to enable verbose logging.
	Log     logrus.FieldLogger // Logger for verbose tracing, standard logger if nil.

	Bus          *bus.Bus // Bus fabric for fetch and data access.
	FetchMaster  int      // Bus master used for instruction fetch.
	MemoryMaster int      // Bus master used for ldw and stw.
	ZeroRegister bool     // Writes to r0 are discarded.

	RomSize uint32 // Value of CREG_ROM_SIZE.
	SpmSize uint32 // Value of CREG_SPM_SIZE.
	CpuInfo uint32 // Value of CREG_CPU_INFO.

	Register  [REG_NUM]uint32 // General register file.
	Creg      ControlRegisters
	Exception ExceptionController
	Target    uint32 // Branch target taken after the delay slot at PC.
	Irq       uint32 // External interrupt lines, level sensitive.

	Phase Phase
	Idle  bool // Last retired instruction completed a branch to itself.

	Ticks   int // Clock cycles.
	Retired int // Instructions retired.
	Stalls  int // Cycles spent waiting on the bus.

	requested bool
	memory    access
	pending   retirement
}

// NewCpu creates an execution engine using two masters of a bus.
func NewCpu(b *bus.Bus, fetch, memory int) (cpu *Cpu, err error) {
	if fetch < 0 || fetch >= bus.MASTER_CH || memory < 0 || memory >= bus.MASTER_CH {
		err = bus.ErrMasterInvalid
		return
	}

	cpu = &Cpu{
		Bus:          b,
		FetchMaster:  fetch,
		MemoryMaster: memory,
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

func (cpu *Cpu) logger() logrus.FieldLogger {
	if cpu.Log == nil {
		return logrus.StandardLogger()
	}
	return cpu.Log
}

// Reset the CPU state. The bus is not reset.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		cpu.logger().Debug("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Creg.Reset(cpu.RomSize, cpu.SpmSize, cpu.CpuInfo)
	cpu.Exception.Reset()
	cpu.Target = 0
	cpu.Irq = 0
	cpu.Phase = PHASE_FETCH
	cpu.Idle = false

	cpu.Ticks = 0
	cpu.Retired = 0
	cpu.Stalls = 0

	cpu.requested = false
	cpu.memory = access{}
	cpu.pending = retirement{}
}

// Pc returns the address of the current instruction.
func (cpu *Cpu) Pc() uint32 {
	return cpu.Creg.Pc
}

// Mode returns the current execution mode.
func (cpu *Cpu) Mode() ExecMode {
	return cpu.Creg.Mode()
}

// SetIrq drives an external interrupt line.
func (cpu *Cpu) SetIrq(line int, asserted bool) {
	if line < 0 || line >= IRQ_LINES {
		return
	}
	if asserted {
		cpu.Irq |= 1 << line
	} else {
		cpu.Irq &^= 1 << line
	}
}

// master returns the bus master of the current phase.
func (cpu *Cpu) master() int {
	if cpu.Phase == PHASE_MEMORY {
		return cpu.MemoryMaster
	}
	return cpu.FetchMaster
}

// Blocked is true while the CPU waits for the bus.
func (cpu *Cpu) Blocked() bool {
	if !cpu.requested {
		return false
	}
	state := cpu.Bus.State(cpu.master())
	return state == bus.STATE_REQ || state == bus.STATE_STALL
}

// Waiting returns the cycles the outstanding bus access has waited.
func (cpu *Cpu) Waiting() int {
	if !cpu.requested {
		return 0
	}
	return cpu.Bus.Port(cpu.master()).Waited
}

// Prepare issues the bus request of the current phase.
func (cpu *Cpu) Prepare() (err error) {
	if cpu.requested {
		return
	}

	switch cpu.Phase {
	case PHASE_FETCH:
		err = cpu.Bus.Request(cpu.FetchMaster, cpu.Creg.Pc, false, 0)
	case PHASE_MEMORY:
		err = cpu.Bus.Request(cpu.MemoryMaster, cpu.memory.address, cpu.memory.write, cpu.memory.data)
	}
	if err != nil {
		err = errors.Join(ErrBusRequest, err)
		return
	}

	cpu.requested = true
	return
}

// Collect consumes the result of the bus cycle, executing a fetched
// instruction or retiring a completed data access.
func (cpu *Cpu) Collect() (err error) {
	cpu.Ticks++
	cpu.Creg.Irq |= cpu.Irq & IRQ_MASK

	if !cpu.requested {
		return
	}

	data, ok := cpu.Bus.Collect(cpu.master())
	if !ok {
		cpu.Stalls++
		return
	}
	cpu.requested = false

	switch cpu.Phase {
	case PHASE_FETCH:
		cpu.execute(Decode(data))
	case PHASE_MEMORY:
		rt := cpu.pending
		if !cpu.memory.write {
			rt.value = data
		}
		cpu.pending = retirement{}
		cpu.Phase = PHASE_FETCH
		cpu.retire(rt)
	}

	return
}

// Tick runs one clock cycle with the CPU as the only agent on the bus.
func (cpu *Cpu) Tick() (err error) {
	err = cpu.Prepare()
	if err != nil {
		return
	}

	cpu.Bus.Cycle()

	err = cpu.Collect()
	return
}

// branch evaluates a branch, returning the target if taken.
func (cpu *Cpu) branch(ins Instruction, pc, ra, rb uint32) (taken bool, target uint32) {
	switch ins.Op {
	case OP_BE:
		taken = ra == rb
	case OP_BNE:
		taken = ra != rb
	case OP_BSGT:
		taken = int32(ra) < int32(rb)
	case OP_BUGT:
		taken = ra < rb
	case OP_JMP, OP_CALL:
		taken = true
		target = ra &^ (ISA_WORD_SIZE - 1)
		return
	}

	target = pc + ISA_WORD_SIZE + ins.ImmSigned()<<2
	return
}

// execute a fetched instruction at PC.
func (cpu *Cpu) execute(ins Instruction) {
	pc := cpu.Creg.Pc
	mode := cpu.Creg.Mode()
	info, _ := ins.Info()

	rt := retirement{ins: ins, pc: pc, next: pc + ISA_WORD_SIZE}
	if cpu.Creg.Delay() {
		rt.next = cpu.Target
		rt.idle = ins.Word == ISA_NOP && cpu.Target == pc-ISA_WORD_SIZE
	}

	var raised ExceptionSet
	if cpu.Exception.InterruptPending(&cpu.Creg) {
		raised.Add(EXP_EXT_INT)
	}

	ra := cpu.Register[ins.Ra]
	rb := cpu.Register[ins.Rb]

	switch info.Class {
	case CLASS_UNDEF:
		raised.Add(EXP_UNDEF_INSN)
	case CLASS_ALU:
		operand, dst := rb, ins.Rc
		if info.Format == FORMAT_I {
			operand, dst = ins.Operand(), ins.Rb
		}
		value, overflow := Alu(info.Alu, ra, operand)
		if overflow {
			raised.Add(EXP_OVERFLOW)
		}
		rt.setRegister(dst, value)
	case CLASS_BRANCH:
		rt.delay = true
		rt.target = rt.next + ISA_WORD_SIZE
		if taken, target := cpu.branch(ins, pc, ra, rb); taken {
			rt.target = target
		}
		if ins.Op == OP_CALL {
			rt.setRegister(REG_LINK, pc+2*ISA_WORD_SIZE)
		}
	case CLASS_MEM:
		address := ra + ins.Operand()
		if address&(ISA_WORD_SIZE-1) != 0 {
			raised.Add(EXP_MISS_ALIGN)
		}
		cpu.memory = access{address: address}
		if info.Mem == MEM_OP_STW {
			cpu.memory.write = true
			cpu.memory.data = rb
		} else {
			rt.setRegister(ins.Rb, 0)
		}
	case CLASS_CTRL:
		switch ins.Op {
		case OP_TRAP:
			raised.Add(EXP_TRAP)
		case OP_RDCR:
			rt.setRegister(ins.Rb, cpu.Creg.Read(CregAddr(ins.Ra)))
		case OP_WRCR:
			err := cpu.Creg.Writable(CregAddr(ins.Rb), mode)
			switch {
			case err == nil:
				rt.wrcr = true
				rt.creg = CregAddr(ins.Rb)
				rt.data = ra
			case errors.Is(err, ErrPrivilege):
				raised.Add(EXP_PRV_VIO)
			}
		case OP_EXRT:
			if mode != MODE_KERNEL {
				raised.Add(EXP_PRV_VIO)
			} else {
				rt.exrt = true
			}
		}
	}

	if code, ok := cpu.Exception.Detect(raised); ok {
		cpu.enter(code, pc)
		return
	}

	if info.Class == CLASS_MEM {
		cpu.pending = rt
		cpu.Phase = PHASE_MEMORY
		return
	}

	cpu.retire(rt)
}

// enter takes the pending exception for the instruction at pc.
func (cpu *Cpu) enter(code ExceptionCode, pc uint32) {
	vector := cpu.Exception.Enter(&cpu.Creg, pc, cpu.Target)

	if cpu.Verbose {
		cpu.logger().WithFields(logrus.Fields{
			"pc":     fmt.Sprintf("%08x", pc),
			"cause":  code.String(),
			"vector": fmt.Sprintf("%08x", vector),
		}).Debug("cpu: exception")
	}

	cpu.Creg.Pc = vector
	cpu.Target = 0
	cpu.Idle = false
}

// retire applies the effects of a completed instruction.
func (cpu *Cpu) retire(rt retirement) {
	if cpu.Verbose {
		cpu.logger().WithFields(logrus.Fields{
			"pc":    fmt.Sprintf("%08x", rt.pc),
			"insn":  rt.ins.String(),
			"mode":  cpu.Creg.Mode().String(),
			"ticks": cpu.Ticks,
		}).Debug("cpu: retire")
	}

	if rt.write && !(cpu.ZeroRegister && rt.dst == 0) {
		cpu.Register[rt.dst] = rt.value
	}

	if rt.wrcr {
		err := cpu.Creg.Write(rt.creg, rt.data, MODE_KERNEL)
		if err != nil && cpu.Verbose {
			cpu.logger().Debugf("cpu: wrcr %v dropped: %v", rt.creg, err)
		}
	}

	cpu.Retired++
	cpu.Idle = rt.idle

	if rt.exrt {
		cpu.Creg.Pc, cpu.Target = cpu.Exception.Return(&cpu.Creg)
		return
	}

	cpu.Creg.SetDelay(rt.delay)
	cpu.Target = rt.target
	cpu.Creg.Pc = rt.next
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("   pc: %04X_%04X  %v\n", cpu.Creg.Pc>>16, cpu.Creg.Pc&0xffff, cpu.Phase)
	text += fmt.Sprintf(" mode: %v", cpu.Creg.Mode())
	if cpu.Creg.InterruptEnabled() {
		text += " ie"
	}
	if cpu.Creg.Delay() {
		text += fmt.Sprintf(" delay->%08x", cpu.Target)
	}
	text += "\n"
	text += fmt.Sprintf("  exp: %v %v\n", cpu.Exception.State, cpu.Exception.Pending)
	for n := 0; n < REG_NUM; n += 4 {
		for i := n; i < n+4; i++ {
			val := cpu.Register[i]
			text += fmt.Sprintf(" % 4s: %04X_%04X", fmt.Sprintf("r%d", i), val>>16, val&0xffff)
		}
		text += "\n"
	}

	return
}
