package io

import (
	"github.com/sirupsen/logrus"

	"github.com/ezrec/azpr/bus"
)

const (
	DMA_SOURCE      = 0x0 // Source byte address.
	DMA_DESTINATION = 0x4 // Destination byte address.
	DMA_COUNT       = 0x8 // Words remaining.
	DMA_CONTROL     = 0xc // Control and status.

	DMA_CONTROL_START = 1 << 0 // Write: start a copy. Read: busy.
	DMA_CONTROL_DONE  = 1 << 1 // Write: acknowledge. Read: copy completed.
)

// DmaState is the state of the DMA copy engine.
type DmaState int

//go:generate go tool stringer -linecomment -type=DmaState
const (
	DMA_IDLE  = DmaState(0) // idle
	DMA_READ  = DmaState(1) // read
	DMA_WRITE = DmaState(2) // write
)

// Dma is a word copy engine. It is a bus master that alternates reads of
// the source and writes of the destination, and a bus slave that exposes
// its registers to the CPU. Done stays set until acknowledged, and drives
// an interrupt line when wired to one.
type Dma struct {
	Verbose bool               // Set to enable verbose logging.
	Log     logrus.FieldLogger // Logger for verbose output.

	Bus    *bus.Bus // Bus the copies are issued on.
	Master int      // Master index of the copy engine.

	Source      uint32   // Next source address.
	Destination uint32   // Next destination address.
	Count       uint32   // Words remaining.
	State       DmaState // Copy state.
	Done        bool     // Copy completed and not yet acknowledged.
	Copied      int      // Words copied since reset.

	data      uint32
	requested bool
}

var _ bus.Slave = (*Dma)(nil)

// NewDma creates a DMA engine using a bus master.
func NewDma(b *bus.Bus, master int) (dma *Dma, err error) {
	if master < 0 || master >= bus.MASTER_CH {
		err = bus.ErrMasterInvalid
		return
	}

	dma = &Dma{
		Log:    logrus.StandardLogger(),
		Bus:    b,
		Master: master,
	}

	return
}

// Reset stops any copy and clears the registers.
func (dma *Dma) Reset() {
	dma.Source = 0
	dma.Destination = 0
	dma.Count = 0
	dma.State = DMA_IDLE
	dma.Done = false
	dma.Copied = 0
	dma.data = 0
	dma.requested = false
}

// Busy returns true while a copy is in progress.
func (dma *Dma) Busy() bool {
	return dma.State != DMA_IDLE
}

// Start begins copying count words. A zero count completes at once.
func (dma *Dma) Start(source, destination, count uint32) (err error) {
	if dma.Busy() {
		err = ErrDmaBusy
		return
	}

	dma.Source = source &^ 3
	dma.Destination = destination &^ 3
	dma.Count = count
	dma.start()
	return
}

// start begins copying from the current registers.
func (dma *Dma) start() {
	dma.Done = dma.Count == 0
	if dma.Done {
		return
	}

	dma.State = DMA_READ
}

// Prepare issues the next bus request of a copy in progress.
func (dma *Dma) Prepare() (err error) {
	if dma.requested || !dma.Busy() {
		return
	}

	switch dma.State {
	case DMA_READ:
		err = dma.Bus.Request(dma.Master, dma.Source, false, 0)
	case DMA_WRITE:
		err = dma.Bus.Request(dma.Master, dma.Destination, true, dma.data)
	}
	if err != nil {
		return
	}

	dma.requested = true
	return
}

// Collect consumes a completed bus transaction and advances the copy.
func (dma *Dma) Collect() {
	if !dma.requested {
		return
	}

	data, ok := dma.Bus.Collect(dma.Master)
	if !ok {
		return
	}
	dma.requested = false

	switch dma.State {
	case DMA_READ:
		dma.data = data
		dma.State = DMA_WRITE
	case DMA_WRITE:
		if dma.Verbose {
			dma.Log.WithFields(logrus.Fields{
				"source":      dma.Source,
				"destination": dma.Destination,
				"data":        dma.data,
			}).Debug("dma")
		}
		dma.Source += 4
		dma.Destination += 4
		dma.Count--
		dma.Copied++
		if dma.Count == 0 {
			dma.State = DMA_IDLE
			dma.Done = true
		} else {
			dma.State = DMA_READ
		}
	}
}

// Access reads or writes a DMA register. Address registers are ignored
// while a copy is in progress.
func (dma *Dma) Access(txn bus.Transaction) (data uint32, ready bool) {
	ready = true

	if !txn.Write {
		switch txn.Offset() {
		case DMA_SOURCE:
			data = dma.Source
		case DMA_DESTINATION:
			data = dma.Destination
		case DMA_COUNT:
			data = dma.Count
		case DMA_CONTROL:
			if dma.Busy() {
				data |= DMA_CONTROL_START
			}
			if dma.Done {
				data |= DMA_CONTROL_DONE
			}
		}
		return
	}

	if dma.Busy() {
		return
	}

	switch txn.Offset() {
	case DMA_SOURCE:
		dma.Source = txn.Data &^ 3
	case DMA_DESTINATION:
		dma.Destination = txn.Data &^ 3
	case DMA_COUNT:
		dma.Count = txn.Data
	case DMA_CONTROL:
		if (txn.Data & DMA_CONTROL_DONE) != 0 {
			dma.Done = false
		}
		if (txn.Data & DMA_CONTROL_START) != 0 {
			dma.start()
		}
	}

	return
}
