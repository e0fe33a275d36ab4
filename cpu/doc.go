// Package cpu implements the processor core and assembler for the AZPR system.
//
// The core has 32 general purpose 32-bit registers, a control register file
// holding the execution mode, interrupt and exception state, and an
// arithmetic logic unit. Instructions are fixed 32-bit words fetched through
// the bus fabric by one bus master, while loads and stores use a second
// master. Every branch has a single delay slot.
//
// Exceptions (external interrupt, undefined instruction, overflow,
// misaligned access, trap and privilege violation) save the state of the
// interrupted instruction and vector to the handler in EXP_VECTOR. The exrt
// instruction restores that state, including a pending branch when the
// exception was taken in a delay slot.
//
// The assembler provides an assembly language for the instruction set,
// supporting macros, labels, equates, and compile-time expression evaluation.
package cpu
