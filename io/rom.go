// Package io provides the bus slaves and extra bus masters of the AZPR
// system: ROM, scratchpad memory (SPM), a UART style tape, and a DMA
// copier.
package io

import (
	"github.com/ezrec/azpr/bus"
)

// Rom is a read-only word memory. Writes are accepted and dropped.
type Rom struct {
	Data []uint32 // Words; the length is a power of two.
}

var _ bus.Slave = (*Rom)(nil)

// NewRom creates a ROM of size bytes.
func NewRom(size uint32) *Rom {
	return &Rom{Data: make([]uint32, size/4)}
}

// Load replaces the ROM contents with an image, zero filling the rest.
func (rom *Rom) Load(image []uint32) (err error) {
	if len(image) > len(rom.Data) {
		err = ErrImageSize
		return
	}

	clear(rom.Data)
	copy(rom.Data, image)
	return
}

// Access reads a word. The word index wraps at the ROM depth.
func (rom *Rom) Access(txn bus.Transaction) (data uint32, ready bool) {
	ready = true
	if txn.Write || len(rom.Data) == 0 {
		return
	}

	data = rom.Data[wordIndex(txn.Offset(), len(rom.Data))]
	return
}

// wordIndex maps a slave byte offset to a word of a power of two deep
// memory.
func wordIndex(offset uint32, depth int) int {
	return int(offset>>2) & (depth - 1)
}
