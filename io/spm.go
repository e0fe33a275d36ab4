package io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ezrec/azpr/bus"
)

// Spm is the scratchpad memory, a read-write word memory.
type Spm struct {
	Data []uint32 // Words; the length is a power of two.
}

var _ bus.Slave = (*Spm)(nil)

// NewSpm creates a scratchpad of size bytes.
func NewSpm(size uint32) *Spm {
	return &Spm{Data: make([]uint32, size/4)}
}

// Reset clears the scratchpad.
func (spm *Spm) Reset() {
	clear(spm.Data)
}

// Access reads or writes a word. The word index wraps at the SPM depth.
func (spm *Spm) Access(txn bus.Transaction) (data uint32, ready bool) {
	ready = true
	if len(spm.Data) == 0 {
		return
	}

	index := wordIndex(txn.Offset(), len(spm.Data))
	if txn.Write {
		spm.Data[index] = txn.Data
	} else {
		data = spm.Data[index]
	}
	return
}

// Marshal writes the non-zero words of the scratchpad as 'offset: word'
// hexadecimal lines.
func (spm *Spm) Marshal(w io.Writer) (err error) {
	for n, word := range spm.Data {
		if word == 0 {
			continue
		}
		_, err = fmt.Fprintf(w, "%08x: %08x\n", n*4, word)
		if err != nil {
			return
		}
	}

	return
}

// Unmarshal loads scratchpad contents written by Marshal. Blank lines and
// lines starting with '#' are ignored.
func (spm *Spm) Unmarshal(r io.Reader) (err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		offset_text, word_text, ok := strings.Cut(line, ":")
		if !ok {
			err = ErrImageFormat
			return
		}

		var offset, word uint64
		offset, err = strconv.ParseUint(strings.TrimSpace(offset_text), 16, 32)
		if err != nil {
			err = ErrImageFormat
			return
		}
		word, err = strconv.ParseUint(strings.TrimSpace(word_text), 16, 32)
		if err != nil {
			err = ErrImageFormat
			return
		}

		if offset%4 != 0 {
			err = ErrImageFormat
			return
		}
		if int(offset/4) >= len(spm.Data) {
			err = ErrImageSize
			return
		}

		spm.Data[offset/4] = uint32(word)
	}

	err = scanner.Err()
	return
}
