// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator wires a configured AZPR system together: the bus, the
// memory and peripheral slaves, the CPU, and the DMA master.
package emulator

import (
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/azpr/bus"
	"github.com/ezrec/azpr/config"
	"github.com/ezrec/azpr/cpu"
	"github.com/ezrec/azpr/internal"
	azprio "github.com/ezrec/azpr/io"
)

// Emulator state. CPU + bus + slaves + DMA.
type Emulator struct {
	Verbose  bool               // If set, enables verbose logging.
	Log      logrus.FieldLogger // Logger for verbose output.
	*cpu.Cpu                    // Reference to the CPU simulation.
	Config   config.Config      // System configuration.
	Program  *cpu.Program       // Reference to the currently running program listing.

	Rom  *azprio.Rom  // Boot ROM.
	Spm  *azprio.Spm  // Scratchpad memory.
	Tape *azprio.Tape // UART tape; nil when disabled.
	Dma  *azprio.Dma  // DMA copier; nil when disabled.
}

// NewEmulator validates the configuration and builds the system.
func NewEmulator(cfg config.Config) (emu *Emulator, err error) {
	err = cfg.Validate()
	if err != nil {
		return
	}

	policy, err := cfg.Policy()
	if err != nil {
		return
	}

	b, err := bus.NewBus(policy)
	if err != nil {
		return
	}

	emu = &Emulator{
		Log:     logrus.StandardLogger(),
		Config:  cfg,
		Program: &cpu.Program{},
		Rom:     azprio.NewRom(cfg.RomSize),
		Spm:     azprio.NewSpm(cfg.SpmSize),
	}

	slaves := map[int]bus.Slave{
		cfg.Slaves.Rom: emu.Rom,
		cfg.Slaves.Spm: emu.Spm,
	}

	if cfg.Uart.Enable {
		emu.Tape = &azprio.Tape{WaitStates: cfg.Uart.WaitStates}
		slaves[cfg.Slaves.Uart] = emu.Tape
	}

	if cfg.Dma.Enable {
		emu.Dma, err = azprio.NewDma(b, cfg.Masters.Dma)
		if err != nil {
			return
		}
		slaves[cfg.Slaves.Dma] = emu.Dma
	}

	for index, slave := range slaves {
		err = b.Attach(index, slave)
		if err != nil {
			return
		}
	}

	emu.Cpu, err = cpu.NewCpu(b, cfg.Masters.Fetch, cfg.Masters.Memory)
	if err != nil {
		return
	}
	emu.Cpu.ZeroRegister = cfg.ZeroRegister
	emu.Cpu.RomSize = cfg.RomSize
	emu.Cpu.SpmSize = cfg.SpmSize
	emu.Cpu.CpuInfo = cfg.CpuInfo()
	emu.Cpu.Reset()

	return
}

// Defines returns an iterator over all of the defines: the CPU's, plus the
// base address of every attached slave and the peripheral registers.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	cfg := emu.Config
	defines := map[string]string{
		"ROM_BASE": fmt.Sprintf("0x%x", bus.Base(cfg.Slaves.Rom)),
		"ROM_SIZE": fmt.Sprintf("0x%x", cfg.RomSize),
		"SPM_BASE": fmt.Sprintf("0x%x", bus.Base(cfg.Slaves.Spm)),
		"SPM_SIZE": fmt.Sprintf("0x%x", cfg.SpmSize),
	}

	var uart map[string]string
	if emu.Tape != nil {
		uart = map[string]string{
			"UART_BASE":      fmt.Sprintf("0x%x", bus.Base(cfg.Slaves.Uart)),
			"UART_DATA":      fmt.Sprintf("0x%x", azprio.TAPE_DATA),
			"UART_STATUS":    fmt.Sprintf("0x%x", azprio.TAPE_STATUS),
			"UART_RX_READY":  fmt.Sprintf("0x%x", azprio.TAPE_STATUS_RX_READY),
			"UART_TX_READY":  fmt.Sprintf("0x%x", azprio.TAPE_STATUS_TX_READY),
			"UART_EOF":       fmt.Sprintf("0x%x", uint32(azprio.TAPE_EOF)),
			"UART_WAITSTATE": fmt.Sprintf("%d", cfg.Uart.WaitStates),
		}
	}

	var dma map[string]string
	if emu.Dma != nil {
		dma = map[string]string{
			"DMA_BASE":          fmt.Sprintf("0x%x", bus.Base(cfg.Slaves.Dma)),
			"DMA_SOURCE":        fmt.Sprintf("0x%x", azprio.DMA_SOURCE),
			"DMA_DESTINATION":   fmt.Sprintf("0x%x", azprio.DMA_DESTINATION),
			"DMA_COUNT":         fmt.Sprintf("0x%x", azprio.DMA_COUNT),
			"DMA_CONTROL":       fmt.Sprintf("0x%x", azprio.DMA_CONTROL),
			"DMA_CONTROL_START": fmt.Sprintf("0x%x", azprio.DMA_CONTROL_START),
			"DMA_CONTROL_DONE":  fmt.Sprintf("0x%x", azprio.DMA_CONTROL_DONE),
			"DMA_IRQ":           fmt.Sprintf("%d", cfg.Dma.Irq),
		}
	}

	return internal.IterSeq2Concat(
		emu.Cpu.Defines(),
		maps.All(defines),
		maps.All(uart),
		maps.All(dma),
	)
}

// Assemble parses source with the emulator defines, and makes it the
// current program. The program must fit in ROM.
func (emu *Emulator) Assemble(source io.Reader) (prog *cpu.Program, err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose, Size: emu.Config.RomSize}
	for name, value := range emu.Defines() {
		asm.Predefine(name, value)
	}

	prog, err = asm.Parse(source)
	if err != nil {
		return
	}

	emu.Program = prog
	return
}

// Reset loads the current program into ROM, and resets the bus, the
// scratchpad, the peripherals and the CPU.
func (emu *Emulator) Reset() (err error) {
	if emu.Program == nil {
		err = ErrNoProgram
		return
	}

	err = emu.Rom.Load(emu.Program.Binary())
	if err != nil {
		return
	}

	emu.Cpu.Bus.Reset()
	emu.Spm.Reset()
	if emu.Tape != nil {
		emu.Tape.Rewind()
	}
	if emu.Dma != nil {
		emu.Dma.Reset()
	}

	emu.setVerbose()
	emu.Cpu.Reset()

	return
}

func (emu *Emulator) setVerbose() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Log = emu.Log
	emu.Cpu.Bus.Verbose = emu.Verbose
	emu.Cpu.Bus.Log = emu.Log
	if emu.Dma != nil {
		emu.Dma.Verbose = emu.Verbose
		emu.Dma.Log = emu.Log
	}
}

// LineNo returns the source line of the current instruction, or 0.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	dbg := emu.Program.Debug(emu.Cpu.Pc())
	if dbg.Statement == nil {
		return 0
	}

	return dbg.LineNo
}

// Quiescent is true when the CPU sits in its idle loop and no interrupt
// can wake it.
func (emu *Emulator) Quiescent() bool {
	if !emu.Cpu.Idle {
		return false
	}

	cr := &emu.Cpu.Creg
	if !cr.InterruptEnabled() {
		return true
	}

	if cr.Pending() != 0 {
		return false
	}

	if emu.Dma != nil && (emu.Dma.Busy() || emu.Dma.Done) {
		line := uint32(1) << emu.Config.Dma.Irq
		if (cr.IntMask & line) == 0 {
			return false
		}
	}

	return true
}

// Tick performs a single clock cycle of the system.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.setVerbose()

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Prepare()
	if err != nil {
		return
	}

	if emu.Dma != nil {
		err = emu.Dma.Prepare()
		if err != nil {
			return
		}
	}

	emu.Cpu.Bus.Cycle()

	err = emu.Cpu.Collect()
	if err != nil {
		return
	}

	if emu.Dma != nil {
		emu.Dma.Collect()
		emu.Cpu.SetIrq(emu.Config.Dma.Irq, emu.Dma.Done)
	}

	if emu.Tape != nil && emu.Tape.Err != nil {
		err = emu.Tape.Err
		return
	}

	done = emu.Quiescent()
	return
}
