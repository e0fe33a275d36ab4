package io

import (
	"io"

	"github.com/ezrec/azpr/bus"
)

const (
	TAPE_DATA   = 0x0 // Read the next input byte, or write an output byte.
	TAPE_STATUS = 0x4 // Tape status.

	TAPE_STATUS_RX_READY = 1 << 0 // Input byte available.
	TAPE_STATUS_TX_READY = 1 << 1 // Output accepts a byte.

	TAPE_EOF = 0xffffffff // DATA value when no input is available.
)

// Tape is a UART style byte stream slave. It wraps an io.Reader for input
// and an io.Writer for output.
type Tape struct {
	Input      io.Reader // Input stream; nil has no input.
	Output     io.Writer // Output stream; nil discards output.
	WaitStates int       // Cycles each access stalls before completing.
	Err        error     // First output error.

	waited    int
	hasInput  bool
	lastInput byte
	eof       bool
}

var _ bus.Slave = (*Tape)(nil)

// Rewind forgets any buffered input byte and pending wait states. The
// streams themselves cannot be rewound.
func (tc *Tape) Rewind() {
	tc.waited = 0
	tc.hasInput = false
	tc.eof = false
	tc.Err = nil
}

// peek buffers the next input byte, returning false at end of input.
func (tc *Tape) peek() bool {
	if tc.hasInput {
		return true
	}
	if tc.eof || tc.Input == nil {
		return false
	}

	var one [1]byte
	n, err := tc.Input.Read(one[:])
	if n == 1 {
		tc.lastInput = one[0]
		tc.hasInput = true
		return true
	}
	if err != nil {
		tc.eof = true
	}
	return false
}

func (tc *Tape) send(value byte) {
	if tc.Output == nil || tc.Err != nil {
		return
	}

	_, tc.Err = tc.Output.Write([]byte{value})
}

// Access performs a tape register access after WaitStates stalled cycles.
func (tc *Tape) Access(txn bus.Transaction) (data uint32, ready bool) {
	if tc.waited < tc.WaitStates {
		tc.waited++
		return
	}
	tc.waited = 0
	ready = true

	switch txn.Offset() {
	case TAPE_DATA:
		if txn.Write {
			tc.send(byte(txn.Data))
			return
		}
		if !tc.peek() {
			data = TAPE_EOF
			return
		}
		data = uint32(tc.lastInput)
		tc.hasInput = false
	case TAPE_STATUS:
		if txn.Write {
			return
		}
		if tc.peek() {
			data |= TAPE_STATUS_RX_READY
		}
		if tc.Err == nil {
			data |= TAPE_STATUS_TX_READY
		}
	}

	return
}
