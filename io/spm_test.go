package io

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/azpr/bus"
)

func TestSpm_Access(t *testing.T) {
	assert := assert.New(t)

	spm := NewSpm(32)

	_, ready := spm.Access(bus.Transaction{Address: 0x4, Write: true, Data: 0xdead_beef})
	assert.True(ready)

	data, ready := spm.Access(bus.Transaction{Address: 0x4})
	assert.True(ready)
	assert.Equal(uint32(0xdead_beef), data)

	// Slave window offset and depth wrap.
	data, _ = spm.Access(bus.Transaction{Address: bus.Base(1) + 0x24})
	assert.Equal(uint32(0xdead_beef), data)

	spm.Reset()
	data, _ = spm.Access(bus.Transaction{Address: 0x4})
	assert.Equal(uint32(0), data)
}

func TestSpm_Marshal(t *testing.T) {
	assert := assert.New(t)

	spm := NewSpm(32)
	spm.Data[1] = 0x1234
	spm.Data[7] = 0xffff_ffff

	var buff bytes.Buffer
	assert.NoError(spm.Marshal(&buff))
	assert.Equal("00000004: 00001234\n0000001c: ffffffff\n", buff.String())

	other := NewSpm(32)
	assert.NoError(other.Unmarshal(&buff))
	assert.Equal(spm.Data, other.Data)
}

func TestSpm_Unmarshal(t *testing.T) {
	assert := assert.New(t)

	table := [...]struct {
		text string
		err  error
	}{
		{"# comment\n\n0: 1\n", nil},
		{"0 1\n", ErrImageFormat},
		{"2: 1\n", ErrImageFormat},
		{"zz: 1\n", ErrImageFormat},
		{"0: 1ffffffff\n", ErrImageFormat},
		{"20: 1\n", ErrImageSize},
	}

	for _, entry := range table {
		spm := NewSpm(32)
		err := spm.Unmarshal(strings.NewReader(entry.text))
		if entry.err == nil {
			assert.NoError(err, entry.text)
		} else {
			assert.ErrorIs(err, entry.err, entry.text)
		}
	}
}
