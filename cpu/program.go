package cpu

import (
	"fmt"
	"io"
	"iter"
	"math"
	"strings"
)

// Link is the way a label is applied to a statement at link time.
type Link int

const (
	LINK_NONE    = Link(iota) // No label.
	LINK_BRANCH               // Word offset of a branch.
	LINK_ADDRESS              // Upper and lower halves of an la sequence.
	LINK_WORD                 // Absolute address in a .word.
)

// Statement is one assembled source line.
type Statement struct {
	LineNo    int      // Source line number.
	Address   uint32   // Byte address of the first word.
	Words     []string // Source words, after equate expansion.
	Codes     []uint32 // Assembled words.
	LinkLabel string   // Label resolved at link time.
	Link      Link     // How LinkLabel is applied.
}

// link resolves the statement label to target.
func (st *Statement) link(target uint32) (err error) {
	switch st.Link {
	case LINK_BRANCH:
		delta := int64(target) - int64(st.Address+ISA_WORD_SIZE)
		offset := delta / ISA_WORD_SIZE
		if offset < math.MinInt16 || offset > math.MaxInt16 {
			err = ErrBranchRange
			return
		}
		st.Codes[0] = st.Codes[0]&^ISA_IMM_MASK | uint32(uint16(int16(offset)))
	case LINK_ADDRESS:
		st.Codes[1] |= target >> 16
		st.Codes[3] |= target & ISA_IMM_MASK
	case LINK_WORD:
		st.Codes[0] = target
	}

	return
}

// Program is an assembled program.
type Program struct {
	Statements []Statement
}

// Debug locates the source statement of an address.
type Debug struct {
	*Statement
	Index int // Word index within the statement.
}

// Debug returns the statement containing the byte address.
func (prog *Program) Debug(address uint32) (dbg Debug) {
	for n, st := range prog.Statements {
		end := st.Address + uint32(len(st.Codes))*ISA_WORD_SIZE
		if address >= st.Address && address < end {
			dbg = Debug{
				Statement: &prog.Statements[n],
				Index:     int(address-st.Address) / ISA_WORD_SIZE,
			}
			break
		}
	}

	return
}

// Codes iterates over the address and word of every assembled word.
func (prog *Program) Codes() iter.Seq2[uint32, uint32] {
	return func(yield func(address uint32, code uint32) bool) {
		for _, st := range prog.Statements {
			for n, code := range st.Codes {
				if !yield(st.Address+uint32(n)*ISA_WORD_SIZE, code) {
					return
				}
			}
		}
	}
}

// Binary returns the memory image of the program, starting at address
// zero. Gaps left by .org are filled with nop.
func (prog *Program) Binary() (bins []uint32) {
	for address, code := range prog.Codes() {
		index := int(address / ISA_WORD_SIZE)
		if index >= len(bins) {
			bins = append(bins, make([]uint32, index+1-len(bins))...)
		}
		bins[index] = code
	}

	return
}

// Listing writes the disassembly of the program with its source lines.
func (prog *Program) Listing(w io.Writer) (err error) {
	for _, st := range prog.Statements {
		for n, code := range st.Codes {
			source := ""
			if n == 0 {
				source = fmt.Sprintf("%4d: %v", st.LineNo, strings.Join(st.Words, " "))
			}
			address := st.Address + uint32(n)*ISA_WORD_SIZE
			_, err = fmt.Fprintf(w, "%08x: %08x  %-24v %v\n", address, code, Decode(code), source)
			if err != nil {
				return
			}
		}
	}

	return
}
