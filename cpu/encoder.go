package cpu

import (
	"strings"
)

// field resolves an operand token and range-checks it.
func (asm *Assembler) field(token string, name string, min, max int) (value uint16, err error) {
	v, err := asm.resolveOperand(token)
	if err != nil {
		return
	}

	if v < min || v > max {
		err = &ErrOperandRange{Field: name, Min: min, Max: max, Actual: v}
		return
	}

	value = uint16(v)
	return
}

// pair resolves a MLT/DVD register operand, which must select an
// even register so the companion register can hold the second half
// of the result.
func (asm *Assembler) pair(token string, name string) (value uint16, err error) {
	value, err = asm.field(token, name, 0, 3)
	if err != nil {
		return
	}

	if value&1 != 0 {
		err = &ErrOperandRange{Field: name, Min: 0, Max: 2, Actual: int(value)}
	}
	return
}

// stripIndirect consumes a trailing indirect marker ("I" or "1", or
// an explicit "0") when the operand list is one longer than the
// format's base shape.
func stripIndirect(operands []string, base int) (trimmed []string, indirect uint16, err error) {
	trimmed = operands
	if len(operands) != base+1 {
		return
	}

	switch strings.ToUpper(operands[len(operands)-1]) {
	case "I", "1":
		indirect = 1
	case "0":
		indirect = 0
	default:
		err = &ErrOperandRange{Field: "indirect", Min: 0, Max: 1, Actual: -1}
		return
	}

	trimmed = operands[:len(operands)-1]
	return
}

// encode turns one tokenized instruction line into its 16-bit word.
func (asm *Assembler) encode(t *TokenizedLine) (w Word, err error) {
	op, ok := Mnemonic(t.Opcode)
	if !ok {
		err = ErrUnknownOpcode(t.Opcode)
		return
	}

	info := opTable[op]
	ops := t.Operands

	count := func(expected int) error {
		if len(ops) != expected {
			return &ErrOperandCount{Mnemonic: info.Name, Expected: expected, Actual: len(t.Operands)}
		}
		return nil
	}

	switch info.Kind {
	case KIND_HALT:
		if err = count(0); err != nil {
			return
		}
		w = MakeHalt()

	case KIND_MEMORY:
		var indirect uint16
		ops, indirect, err = stripIndirect(ops, 3)
		if err != nil {
			return
		}
		if err = count(3); err != nil {
			return
		}

		rField := "register"
		if op == OP_JCC {
			rField = "condition code"
		}

		var r, ix, addr uint16
		if r, err = asm.field(ops[0], rField, 0, 3); err != nil {
			return
		}
		if ix, err = asm.field(ops[1], "index register", 0, 3); err != nil {
			return
		}
		if addr, err = asm.field(ops[2], "address", 0, 31); err != nil {
			return
		}
		w = MakeMem(op, r, ix, indirect, addr)

	case KIND_INDEX_MEMORY:
		var indirect uint16
		ops, indirect, err = stripIndirect(ops, 2)
		if err != nil {
			return
		}
		if err = count(2); err != nil {
			return
		}

		var ix, addr uint16
		if ix, err = asm.field(ops[0], "index register", 1, 3); err != nil {
			return
		}
		if addr, err = asm.field(ops[1], "address", 0, 31); err != nil {
			return
		}
		w = MakeMem(op, 0, ix, indirect, addr)

	case KIND_IMMEDIATE:
		if op == OP_RFS {
			if err = count(1); err != nil {
				return
			}
			var imm uint16
			if imm, err = asm.field(ops[0], "immediate", 0, 31); err != nil {
				return
			}
			w = MakeRfs(imm)
			return
		}

		if err = count(2); err != nil {
			return
		}
		var r, imm uint16
		if r, err = asm.field(ops[0], "register", 0, 3); err != nil {
			return
		}
		if imm, err = asm.field(ops[1], "immediate", 0, 255); err != nil {
			return
		}
		w = MakeImm(op, r, imm)

	case KIND_REGREG:
		switch op {
		case OP_NOT:
			if err = count(1); err != nil {
				return
			}
			var rx uint16
			if rx, err = asm.field(ops[0], "register", 0, 3); err != nil {
				return
			}
			w = MakeReg(op, rx, 0)
		case OP_MLT, OP_DVD:
			if err = count(2); err != nil {
				return
			}
			var rx, ry uint16
			if rx, err = asm.pair(ops[0], "register"); err != nil {
				return
			}
			if ry, err = asm.pair(ops[1], "register"); err != nil {
				return
			}
			w = MakeReg(op, rx, ry)
		default:
			if err = count(2); err != nil {
				return
			}
			var rx, ry uint16
			if rx, err = asm.field(ops[0], "register", 0, 3); err != nil {
				return
			}
			if ry, err = asm.field(ops[1], "register", 0, 3); err != nil {
				return
			}
			w = MakeReg(op, rx, ry)
		}

	case KIND_SHIFT:
		if err = count(4); err != nil {
			return
		}
		var r, shift, lr, al uint16
		if r, err = asm.field(ops[0], "register", 0, 3); err != nil {
			return
		}
		if shift, err = asm.field(ops[1], "count", 0, 15); err != nil {
			return
		}
		if lr, err = asm.field(ops[2], "L/R", 0, 1); err != nil {
			return
		}
		if al, err = asm.field(ops[3], "A/L", 0, 1); err != nil {
			return
		}
		w = MakeShift(op, r, al, lr, shift)

	case KIND_IO:
		if err = count(2); err != nil {
			return
		}
		var r, dev uint16
		if r, err = asm.field(ops[0], "register", 0, 3); err != nil {
			return
		}
		if dev, err = asm.field(ops[1], "device", 0, 31); err != nil {
			return
		}
		w = MakeIo(op, r, dev)

	case KIND_TRAP:
		if err = count(1); err != nil {
			return
		}
		var code uint16
		if code, err = asm.field(ops[0], "trap code", 0, 15); err != nil {
			return
		}
		w = MakeTrap(code)
	}

	return
}
