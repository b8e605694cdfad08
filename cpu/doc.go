// Package cpu implements the execution core and assembler for the
// C6461 teaching machine.
//
// The machine executes 16-bit instruction words in a 12-bit address
// space through a classical fetch/decode/execute loop over four
// general-purpose registers, three index registers, and a 4-bit
// condition code. Effective addresses apply indexing and one
// optional indirect dereference, with the reserved range 0..5 and
// the 2048-word bound checked on every step.
//
// The assembler is a two-pass translator for the machine's
// line-oriented source dialect, supporting labels, the LOC and DATA
// directives, predefined machine constants, and compile-time $()
// expression evaluation. Assembler and execution unit share one
// canonical opcode table.
package cpu
