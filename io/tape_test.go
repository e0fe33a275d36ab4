package io

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/azpr/bus"
)

func TestTape_Read(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{Input: strings.NewReader("Hi")}

	read := func(offset uint32) uint32 {
		data, ready := tape.Access(bus.Transaction{Address: offset})
		assert.True(ready)
		return data
	}

	assert.Equal(uint32(TAPE_STATUS_RX_READY|TAPE_STATUS_TX_READY), read(TAPE_STATUS))
	assert.Equal(uint32('H'), read(TAPE_DATA))
	assert.Equal(uint32('i'), read(TAPE_DATA))
	assert.Equal(uint32(TAPE_STATUS_TX_READY), read(TAPE_STATUS))
	assert.Equal(uint32(TAPE_EOF), read(TAPE_DATA))
}

func TestTape_Write(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	tape := &Tape{Output: &out}

	for _, c := range []byte("ok\n") {
		_, ready := tape.Access(bus.Transaction{Address: TAPE_DATA, Write: true, Data: 0x100 | uint32(c)})
		assert.True(ready)
	}
	assert.Equal("ok\n", out.String())

	// No input stream
	data, _ := tape.Access(bus.Transaction{Address: TAPE_DATA})
	assert.Equal(uint32(TAPE_EOF), data)
}

type failWriter struct{}

var errFail = errors.New("fail")

func (failWriter) Write(p []byte) (int, error) {
	return 0, errFail
}

func TestTape_WriteError(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{Output: failWriter{}}
	tape.Access(bus.Transaction{Address: TAPE_DATA, Write: true, Data: 'x'})
	assert.ErrorIs(tape.Err, errFail)

	data, _ := tape.Access(bus.Transaction{Address: TAPE_STATUS})
	assert.Equal(uint32(0), data)

	tape.Rewind()
	assert.NoError(tape.Err)
}

func TestTape_WaitStates(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{Input: strings.NewReader("A"), WaitStates: 2}
	txn := bus.Transaction{Address: TAPE_DATA}

	_, ready := tape.Access(txn)
	assert.False(ready)
	_, ready = tape.Access(txn)
	assert.False(ready)
	data, ready := tape.Access(txn)
	assert.True(ready)
	assert.Equal(uint32('A'), data)
}

func TestTape_Bus(t *testing.T) {
	assert := assert.New(t)

	b, err := bus.NewBus(bus.POLICY_FIXED)
	assert.NoError(err)
	tape := &Tape{Input: strings.NewReader("z"), WaitStates: 1}
	assert.NoError(b.Attach(3, tape))

	assert.NoError(b.Request(0, bus.Base(3)+TAPE_DATA, false, 0))
	b.Cycle()
	assert.Equal(bus.STATE_STALL, b.State(0))
	b.Cycle()

	data, ok := b.Collect(0)
	assert.True(ok)
	assert.Equal(uint32('z'), data)
}
