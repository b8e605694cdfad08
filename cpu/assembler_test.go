package cpu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		raw  string
		want *TokenizedLine
	}){
		{"blank", "   ", nil},
		{"comment_only", "  ; just a note", nil},
		{"label_only", "END:", &TokenizedLine{LineNo: 1, Raw: "END:", Label: "END"}},
		{"directive", "LOC 6", &TokenizedLine{LineNo: 1, Raw: "LOC 6", Directive: "LOC", Operands: []string{"6"}}},
		{"data_label", "X: DATA 7", &TokenizedLine{LineNo: 1, Raw: "X: DATA 7", Label: "X", Directive: "DATA", Operands: []string{"7"}}},
		{"opcode", "ldr 0, 0, 10", &TokenizedLine{LineNo: 1, Raw: "ldr 0, 0, 10", Opcode: "LDR", Operands: []string{"0", "0", "10"}}},
		{"trailing_comment", "HLT ; stop", &TokenizedLine{LineNo: 1, Raw: "HLT ; stop", Opcode: "HLT", Comment: "; stop"}},
	}

	for _, entry := range table {
		got := Tokenize(entry.raw, 1)
		assert.Equal(entry.want, got, entry.name)
	}
}

func TestSymbolTable(t *testing.T) {
	assert := assert.New(t)

	st := SymbolTable{}
	assert.False(st.Contains("A"))

	assert.NoError(st.Put("A", 10))
	assert.True(st.Contains("A"))

	addr, ok := st.Get("A")
	assert.True(ok)
	assert.Equal(uint16(10), addr)

	err := st.Put("A", 11)
	assert.ErrorIs(err, ErrDuplicateLabel("A"))
}

func TestAssembleSmoke(t *testing.T) {
	assert := assert.New(t)

	source := strings.Join([]string{
		"START: LOC 6",
		"       LDR 0,0,10",
		"       HLT",
	}, "\n")

	asm := &Assembler{}
	prog, err := asm.Assemble(strings.NewReader(source))
	require.NoError(t, err)

	expected := []Record{
		{Addr: 6, Word: Word(0o2012), LineNo: 2},
		{Addr: 7, Word: Word(0), LineNo: 3},
	}
	assert.Equal(expected, prog.Records)

	load := &bytes.Buffer{}
	assert.NoError(prog.WriteLoad(load))
	assert.Equal("000006\t002012\n000007\t000000\n", load.String())
}

func TestAssembleForwardReference(t *testing.T) {
	assert := assert.New(t)

	source := strings.Join([]string{
		"LOC 6",
		"       JMA 0,0,END",
		"       DATA 7",
		"END:   HLT",
	}, "\n")

	asm := &Assembler{}
	prog, err := asm.Assemble(strings.NewReader(source))
	require.NoError(t, err)

	addr, ok := asm.Symbols.Get("END")
	assert.True(ok)
	assert.Equal(uint16(8), addr)

	expected := []Record{
		{Addr: 6, Word: Word(0o26010), LineNo: 2},
		{Addr: 7, Word: Word(7), LineNo: 3},
		{Addr: 8, Word: Word(0), LineNo: 4},
	}
	assert.Equal(expected, prog.Records)
}

func TestAssembleLocSegments(t *testing.T) {
	assert := assert.New(t)

	source := strings.Join([]string{
		"LOC 6",
		"DATA 1",
		"DATA 2",
		"LOC 100",
		"DATA 3",
		"DATA 4",
	}, "\n")

	asm := &Assembler{}
	prog, err := asm.Assemble(strings.NewReader(source))
	require.NoError(t, err)

	// Addresses within a segment advance by exactly one word.
	addrs := []uint16{}
	for addr := range prog.Words() {
		addrs = append(addrs, addr)
	}
	assert.Equal([]uint16{6, 7, 100, 101}, addrs)
}

func TestAssembleDataLabelAndIndirect(t *testing.T) {
	assert := assert.New(t)

	source := strings.Join([]string{
		"LOC 6",
		"TAB:   DATA 9",
		"       LDR 1,0,TAB,I",
		"       DATA TAB",
		"       HLT",
	}, "\n")

	asm := &Assembler{}
	prog, err := asm.Assemble(strings.NewReader(source))
	require.NoError(t, err)

	expected := []Record{
		{Addr: 6, Word: Word(9), LineNo: 2},
		{Addr: 7, Word: MakeMem(OP_LDR, 1, 0, 1, 6), LineNo: 3},
		{Addr: 8, Word: Word(6), LineNo: 4},
		{Addr: 9, Word: MakeHalt(), LineNo: 5},
	}
	assert.Equal(expected, prog.Records)
}

func TestAssembleExpressions(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("MEMORY_SIZE", "2048")
	asm.Predefine("DEVICE_PRINTER", "1")

	source := strings.Join([]string{
		"LOC 6",
		"TOP:  DATA $(MEMORY_SIZE - 1)",
		"      DATA $(2 * 3 + 1)",
		"      DATA $(TOP + 2)",
		"      OUT 0,DEVICE_PRINTER",
	}, "\n")

	prog, err := asm.Assemble(strings.NewReader(source))
	require.NoError(t, err)

	expected := []Record{
		{Addr: 6, Word: Word(2047), LineNo: 2},
		{Addr: 7, Word: Word(7), LineNo: 3},
		{Addr: 8, Word: Word(8), LineNo: 4},
		{Addr: 9, Word: MakeIo(OP_OUT, 0, 1), LineNo: 5},
	}
	assert.Equal(expected, prog.Records)
}

func TestWriteListing(t *testing.T) {
	assert := assert.New(t)

	source := strings.Join([]string{
		"; demo",
		"LOC 6",
		"",
		"GO:    LDR 0,0,10 ; fetch",
		"END:",
		"       HLT",
	}, "\n")

	asm := &Assembler{}
	prog, err := asm.Assemble(strings.NewReader(source))
	require.NoError(t, err)

	listing := &bytes.Buffer{}
	assert.NoError(prog.WriteListing(listing))

	expected := strings.Join([]string{
		"; demo",
		"LOC 6",
		"",
		"000006\t002012 GO:    LDR 0,0,10 ; fetch",
		"END:",
		"000007\t000000        HLT",
		"",
	}, "\n")
	assert.Equal(expected, listing.String())
}

func TestAssembleErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		source string
		line   int
		check  func(err error) bool
	}){
		{"duplicate_label", "A: HLT\nA: HLT\n", 2,
			func(err error) bool { return errors.Is(err, ErrDuplicateLabel("A")) }},
		{"undefined_symbol", "LDR 0,0,MISSING\n", 1,
			func(err error) bool { return errors.Is(err, ErrUndefinedSymbol("MISSING")) }},
		{"unknown_opcode", "FROB 1\n", 1,
			func(err error) bool { return errors.Is(err, ErrUnknownOpcode("FROB")) }},
		{"operand_count", "LDR 0,0\n", 1,
			func(err error) bool { var oc *ErrOperandCount; return errors.As(err, &oc) }},
		{"register_range", "LDR 7,0,10\n", 1,
			func(err error) bool { var or *ErrOperandRange; return errors.As(err, &or) }},
		{"address_range", "LDR 0,0,32\n", 1,
			func(err error) bool { var or *ErrOperandRange; return errors.As(err, &or) }},
		{"immediate_range", "AIR 0,256\n", 1,
			func(err error) bool { var or *ErrOperandRange; return errors.As(err, &or) }},
		{"index_zero", "LDX 0,10\n", 1,
			func(err error) bool { var or *ErrOperandRange; return errors.As(err, &or) }},
		{"odd_pair", "MLT 1,2\n", 1,
			func(err error) bool { var or *ErrOperandRange; return errors.As(err, &or) }},
		{"shift_count", "SRC 0,16,1,0\n", 1,
			func(err error) bool { var or *ErrOperandRange; return errors.As(err, &or) }},
		{"trap_range", "TRAP 16\n", 1,
			func(err error) bool { var or *ErrOperandRange; return errors.As(err, &or) }},
		{"loc_missing", "LOC\n", 1,
			func(err error) bool { var md *ErrMalformedDirective; return errors.As(err, &md) }},
		{"loc_nondecimal", "LOC pizza\n", 1,
			func(err error) bool { var md *ErrMalformedDirective; return errors.As(err, &md) }},
		{"data_missing", "DATA\n", 1,
			func(err error) bool { var md *ErrMalformedDirective; return errors.As(err, &md) }},
		{"bad_expression", "DATA $(nope +)\n", 1,
			func(err error) bool { var ee ErrExpression; return errors.As(err, &ee) }},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Assemble(strings.NewReader(entry.source))
		assert.Error(err, entry.name)
		if err == nil {
			continue
		}

		var se *ErrSource
		assert.True(errors.As(err, &se), entry.name)
		if se != nil {
			assert.Equal(entry.line, se.LineNo, entry.name)
		}
		assert.True(entry.check(err), entry.name)
	}
}
