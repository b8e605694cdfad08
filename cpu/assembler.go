// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/c6461/mem"
)

// TokenizedLine is one parsed source line. Exactly one of Directive
// and Opcode is set for any line that is not blank or label-only.
type TokenizedLine struct {
	LineNo    int
	Raw       string
	Label     string
	Directive string // "LOC" or "DATA"
	Opcode    string // uppercased mnemonic
	Operands  []string
	Comment   string // from ';' to end of line, verbatim
}

var labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Tokenize splits one raw source line. It returns nil for blank and
// comment-only lines. Operand count and type are not validated here.
func Tokenize(raw string, lineNo int) (t *TokenizedLine) {
	code := raw
	comment := ""
	if semi := strings.IndexByte(raw, ';'); semi >= 0 {
		code = raw[:semi]
		comment = raw[semi:]
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return
	}

	t = &TokenizedLine{LineNo: lineNo, Raw: raw, Comment: comment}

	if colon := strings.IndexByte(code, ':'); colon >= 0 {
		name := strings.TrimSpace(code[:colon])
		if labelPattern.MatchString(name) {
			t.Label = name
			code = strings.TrimSpace(code[colon+1:])
		}
	}

	fields := strings.Fields(code)
	if len(fields) == 0 {
		// label-only line
		return
	}

	head := strings.ToUpper(fields[0])
	switch head {
	case "LOC", "DATA":
		t.Directive = head
	default:
		t.Opcode = head
	}

	if len(fields) > 1 {
		rest := strings.Join(fields[1:], " ")
		for _, operand := range strings.Split(rest, ",") {
			t.Operands = append(t.Operands, strings.TrimSpace(operand))
		}
	}

	return
}

// SymbolTable maps labels to absolute addresses.
type SymbolTable map[string]uint16

// Contains reports whether name is defined.
func (st SymbolTable) Contains(name string) bool {
	_, ok := st[name]
	return ok
}

// Get looks up a label; lookups never mutate.
func (st SymbolTable) Get(name string) (addr uint16, ok bool) {
	addr, ok = st[name]
	return
}

// Put defines a label. Redefinition fails.
func (st SymbolTable) Put(name string, addr uint16) (err error) {
	if st.Contains(name) {
		err = ErrDuplicateLabel(name)
		return
	}

	st[name] = addr
	return
}

// Assembler is the two-pass assembler for the machine's source
// dialect. The first error is fatal; diagnostics carry the 1-based
// source line.
type Assembler struct {
	Verbose bool        // If set, verbosely logs the assembler actions.
	Symbols SymbolTable // Label to address map, built by pass 1.

	predefine map[string]string
}

// Predefine binds a name usable in operands and $() expressions.
func (asm *Assembler) Predefine(name string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// evalExpr does compile-time $(...) evaluations over the predefines
// and the symbol table.
func (asm *Assembler) evalExpr(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}

	pred := starlark.StringDict{}
	for name, str := range asm.predefine {
		n, perr := strconv.Atoi(str)
		if perr != nil {
			// Non-integer predefines are not visible to expressions.
			continue
		}
		pred[name] = starlark.MakeInt(n)
	}
	for name, addr := range asm.Symbols {
		pred[name] = starlark.MakeInt(int(addr))
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrExpression(expr)
		return
	}

	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrExpression(expr)
		return
	}

	value = int(st_int64)
	return
}

// resolveOperand turns an operand token into a value: a $()
// expression, a label, a predefine, or a decimal integer, in that
// order.
func (asm *Assembler) resolveOperand(token string) (value int, err error) {
	if strings.HasPrefix(token, "$(") && strings.HasSuffix(token, ")") {
		return asm.evalExpr(token[2 : len(token)-1])
	}

	if addr, ok := asm.Symbols.Get(token); ok {
		value = int(addr)
		return
	}

	if str, ok := asm.predefine[token]; ok {
		if n, perr := strconv.Atoi(str); perr == nil {
			value = n
			return
		}
	}

	value, err = strconv.Atoi(token)
	if err != nil {
		err = ErrUndefinedSymbol(token)
	}
	return
}

// locOperand parses the LOC directive argument: a literal decimal
// location in [0, 2047].
func locOperand(t *TokenizedLine) (loc int, err error) {
	if len(t.Operands) != 1 {
		err = &ErrMalformedDirective{Directive: "LOC", Detail: f("expected one decimal address")}
		return
	}

	loc, err = strconv.Atoi(t.Operands[0])
	if err != nil {
		err = &ErrMalformedDirective{Directive: "LOC", Detail: f("'%v' is not a decimal address", t.Operands[0])}
		return
	}

	if loc < 0 || loc >= mem.Size {
		err = &ErrOperandRange{Field: "location", Min: 0, Max: mem.Size - 1, Actual: loc}
	}
	return
}

// Assemble runs both passes over the source and returns the program
// with its emitted records.
func (asm *Assembler) Assemble(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var source []string
	var lines []*TokenizedLine

	for scanner.Scan() {
		raw := scanner.Text()
		source = append(source, raw)

		if asm.Verbose {
			log.Printf("asm: %v: %v", len(source), raw)
		}

		t := Tokenize(raw, len(source))
		if t != nil {
			lines = append(lines, t)
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}

	asm.Symbols = SymbolTable{}

	// Pass 1: assign addresses and collect labels.
	loc := 0
	for _, t := range lines {
		if t.Label != "" {
			err = asm.Symbols.Put(t.Label, uint16(loc))
			if err != nil {
				err = &ErrSource{LineNo: t.LineNo, Line: t.Raw, Err: err}
				return
			}
		}

		switch {
		case t.Directive == "LOC":
			loc, err = locOperand(t)
		case t.Directive == "DATA":
			if len(t.Operands) != 1 {
				err = &ErrMalformedDirective{Directive: "DATA", Detail: f("expected one value")}
			}
			loc++
		case t.Opcode != "":
			if _, ok := Mnemonic(t.Opcode); !ok {
				err = ErrUnknownOpcode(t.Opcode)
			}
			loc++
		}
		if err != nil {
			err = &ErrSource{LineNo: t.LineNo, Line: t.Raw, Err: err}
			return
		}
	}

	// Pass 2: encode and emit.
	var records []Record
	loc = 0
	for _, t := range lines {
		switch {
		case t.Directive == "LOC":
			loc, err = locOperand(t)
			if err != nil {
				err = &ErrSource{LineNo: t.LineNo, Line: t.Raw, Err: err}
				return
			}
			continue
		case t.Directive == "DATA":
			var value int
			value, err = asm.resolveOperand(t.Operands[0])
			if err != nil {
				err = &ErrSource{LineNo: t.LineNo, Line: t.Raw, Err: err}
				return
			}
			records = append(records, Record{Addr: uint16(loc), Word: Word(value & 0xffff), LineNo: t.LineNo})
			loc++
		case t.Opcode != "":
			var w Word
			w, err = asm.encode(t)
			if err != nil {
				err = &ErrSource{LineNo: t.LineNo, Line: t.Raw, Err: err}
				return
			}
			records = append(records, Record{Addr: uint16(loc), Word: w, LineNo: t.LineNo})
			loc++
		default:
			continue
		}

		if loc > mem.Size {
			err = &ErrSource{
				LineNo: t.LineNo,
				Line:   t.Raw,
				Err:    &ErrOperandRange{Field: "location", Min: 0, Max: mem.Size - 1, Actual: loc - 1},
			}
			return
		}
	}

	prog = &Program{Source: source, Records: records}
	return
}
