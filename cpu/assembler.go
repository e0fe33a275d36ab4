// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":    "0",
	"WORD_SIZE": fmt.Sprintf("%d", ISA_WORD_SIZE),
}

// Assembler is a single pass macro assembler for the AZPR instruction set.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Size      uint32      // Image size limit in bytes; 0 is unlimited.
	Statement []Statement // List of assembled statements.

	predefine map[string]string   // Predefines
	address   uint32              // Address of the next statement.
	Label     map[string]uint32   // Map of labels to byte addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register names to register numbers.
var regMap = map[string]int{}

// opMap is a map of mnemonics to opcodes.
var opMap = map[string]Opcode{}

func init() {
	for n := range REG_NUM {
		regMap[fmt.Sprintf("r%d", n)] = n
	}
	for op := range opTable {
		opMap[op.String()] = op
	}
}

var reLabel = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
		if len(word) == 0 {
			err = ErrParseNumber("~")
			return
		}
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(word, 0, 64)
	if err != nil || v64 > math.MaxUint32 || v64 < math.MinInt32 {
		err = ErrParseNumber(word)
		return
	}

	value = uint32(v64)

	if invert {
		value = ^value
	}

	return
}

// register returns the general register number of a word.
func (asm *Assembler) register(word string) (reg int, err error) {
	reg, ok := regMap[word]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// creg returns the control register address of a word.
func (asm *Assembler) creg(word string) (cr CregAddr, err error) {
	cr, ok := ParseCregAddr(word)
	if ok {
		return
	}

	if strings.HasPrefix(word, "cr") {
		word = word[2:]
	}
	value, verr := asm.valueOf(word)
	if verr != nil || value >= CREG_NUM {
		err = ErrCregInvalid
		return
	}

	cr = CregAddr(value)
	return
}

// immediate returns a 16 bit immediate. Sign extended immediates hold
// -32768..32767, zero extended ones 0..0xffff.
func (asm *Assembler) immediate(word string, kind Imm) (imm uint16, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	switch kind {
	case IMM_SIGNED:
		if value > 0x7fff && value < 0xffff8000 {
			err = ErrImmediateRange
			return
		}
	default:
		if value > 0xffff {
			err = ErrImmediateRange
			return
		}
	}

	imm = uint16(value)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value32))
	}
	err = nil
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = slices.DeleteFunc(strings.Fields(line), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]uint32, 16)
		}
		asm.Label[label] = asm.address
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", fmt.Sprintf("%v_%v_", name, lineno))
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, macro.LineNo+n)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Statement = asm.Statement[:0]
	asm.address = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			logrus.Debugf("asm: %v: %v", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Statement {
		st := &asm.Statement[n]
		if st.Link == LINK_NONE {
			continue
		}

		lineno = st.LineNo
		line = strings.Join(st.Words, " ")

		target, ok := asm.Label[st.LinkLabel]
		if !ok {
			err = ErrLabelMissing(st.LinkLabel)
			return
		}

		err = st.link(target)
		if err != nil {
			return
		}
	}

	prog = &Program{
		Statements: slices.Clone(asm.Statement),
	}

	return
}

// register3 parses three register operands.
func (asm *Assembler) register3(words []string) (a, b, c int, err error) {
	if len(words) < 3 {
		err = ErrOpcodeValueMissing
		return
	}
	if len(words) > 3 {
		err = ErrOpcodeExtraArgs
		return
	}
	out := [3](*int){&a, &b, &c}
	for n, word := range words {
		*out[n], err = asm.register(word)
		if err != nil {
			return
		}
	}
	return
}

// target parses a branch target, which is either a label to link or a
// literal word offset.
func (asm *Assembler) target(word string) (offset int16, label string, err error) {
	value, verr := asm.valueOf(word)
	if verr == nil {
		if int32(value) < math.MinInt16 || int32(value) > math.MaxInt16 {
			err = ErrBranchRange
			return
		}
		offset = int16(int32(value))
		return
	}

	if !reLabel.MatchString(word) {
		err = verr
		return
	}

	label = word
	return
}

// argCount checks the number of operands.
func argCount(words []string, count int) (err error) {
	switch {
	case len(words) < count:
		err = ErrOpcodeValueMissing
	case len(words) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []uint32
	var label string
	var link Link

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(codes) == 0 {
			return
		}
		end := uint64(asm.address) + uint64(len(codes))*ISA_WORD_SIZE
		if asm.Size != 0 && end > uint64(asm.Size) {
			err = ErrImageRange
			return
		}
		st := Statement{LineNo: lineno, Address: asm.address, Words: initial_words, Codes: codes, LinkLabel: label, Link: link}
		asm.Statement = append(asm.Statement, st)
		asm.address += uint32(len(codes)) * ISA_WORD_SIZE
	}()

	args := words[1:]

	// Directives and pseudo-instructions
	switch words[0] {
	case ".org":
		if err = argCount(args, 1); err != nil {
			return
		}
		var value uint32
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if value%ISA_WORD_SIZE != 0 {
			err = ErrOrgSyntax
			return
		}
		if value < asm.address {
			err = ErrOrgBackwards
			return
		}
		if asm.Size != 0 && value > asm.Size {
			err = ErrImageRange
			return
		}
		asm.address = value
		return
	case ".word":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, arg := range args {
			value, verr := asm.valueOf(arg)
			if verr != nil {
				if len(args) != 1 || !reLabel.MatchString(arg) {
					err = verr
					return
				}
				label = arg
				link = LINK_WORD
			}
			codes = append(codes, value)
		}
		return
	case "nop":
		if err = argCount(args, 0); err != nil {
			return
		}
		codes = append(codes, ISA_NOP)
		return
	case "ret":
		if err = argCount(args, 0); err != nil {
			return
		}
		codes = append(codes, MakeCodeJump(OP_JMP, REG_LINK))
		return
	case "b":
		if err = argCount(args, 1); err != nil {
			return
		}
		var offset int16
		offset, label, err = asm.target(args[0])
		if err != nil {
			return
		}
		if len(label) != 0 {
			link = LINK_BRANCH
		}
		codes = append(codes, MakeCodeBranch(OP_BE, 0, 0, offset))
		return
	case "li", "la":
		if err = argCount(args, 2); err != nil {
			return
		}
		var reg int
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		var value uint32
		if words[0] == "la" {
			if !reLabel.MatchString(args[1]) {
				err = ErrParseNumber(args[1])
				return
			}
			label = args[1]
			link = LINK_ADDRESS
		} else {
			value, err = asm.valueOf(args[1])
			if err != nil {
				return
			}
		}
		codes = append(codes, MakeCodeI(OP_ANDI, reg, reg, 0))
		if link == LINK_NONE && value <= 0xffff {
			codes = append(codes, MakeCodeI(OP_ORI, reg, reg, uint16(value)))
			return
		}
		codes = append(codes,
			MakeCodeI(OP_ORI, reg, reg, uint16(value>>16)),
			MakeCodeI(OP_SHLLI, reg, reg, 16),
			MakeCodeI(OP_ORI, reg, reg, uint16(value)),
		)
		return
	}

	op, ok := opMap[words[0]]
	if !ok {
		err = ErrInstructionInvalid
		return
	}
	info := opTable[op]

	switch info.Format {
	case FORMAT_NONE:
		if err = argCount(args, 0); err != nil {
			return
		}
		codes = append(codes, makeWord(op, 0, 0, 0))
	case FORMAT_R:
		var rc, ra, rb int
		rc, ra, rb, err = asm.register3(args)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeR(op, rc, ra, rb))
	case FORMAT_I, FORMAT_MEM:
		if err = argCount(args, 3); err != nil {
			return
		}
		var rb, ra int
		var imm uint16
		if rb, err = asm.register(args[0]); err != nil {
			return
		}
		if ra, err = asm.register(args[1]); err != nil {
			return
		}
		if imm, err = asm.immediate(args[2], info.Imm); err != nil {
			return
		}
		codes = append(codes, MakeCodeI(op, rb, ra, imm))
	case FORMAT_BRANCH:
		if err = argCount(args, 3); err != nil {
			return
		}
		var ra, rb int
		var offset int16
		if ra, err = asm.register(args[0]); err != nil {
			return
		}
		if rb, err = asm.register(args[1]); err != nil {
			return
		}
		offset, label, err = asm.target(args[2])
		if err != nil {
			return
		}
		if len(label) != 0 {
			link = LINK_BRANCH
		}
		codes = append(codes, MakeCodeBranch(op, ra, rb, offset))
	case FORMAT_JUMP:
		if err = argCount(args, 1); err != nil {
			return
		}
		var ra int
		if ra, err = asm.register(args[0]); err != nil {
			return
		}
		codes = append(codes, MakeCodeJump(op, ra))
	case FORMAT_RDCR:
		if err = argCount(args, 2); err != nil {
			return
		}
		var rb int
		var cr CregAddr
		if rb, err = asm.register(args[0]); err != nil {
			return
		}
		if cr, err = asm.creg(args[1]); err != nil {
			return
		}
		codes = append(codes, MakeCodeRdcr(rb, cr))
	case FORMAT_WRCR:
		if err = argCount(args, 2); err != nil {
			return
		}
		var ra int
		var cr CregAddr
		if cr, err = asm.creg(args[0]); err != nil {
			return
		}
		if ra, err = asm.register(args[1]); err != nil {
			return
		}
		codes = append(codes, MakeCodeWrcr(cr, ra))
	default:
		err = ErrInstructionInvalid
	}

	return
}
