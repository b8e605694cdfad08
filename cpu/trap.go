package cpu

import (
	"strings"
	"unicode"

	"github.com/ezrec/c6461/io"
)

// Trap service codes. Codes 4..15 are reserved and fault.
const (
	TRAP_LOAD_FILE   = 0 // load TrapFile into memory at GPR0, length to GPR1
	TRAP_PRINT_MEM   = 1 // print GPR1 bytes starting at GPR0
	TRAP_READ_WORD   = 2 // read one input word to memory at GPR0, length to GPR1
	TRAP_WORD_SEARCH = 3 // locate word GPR2/GPR3 within paragraph GPR0/GPR1
)

func (c *Cpu) trap(code uint16) (err error) {
	switch code {
	case TRAP_LOAD_FILE:
		err = c.trapLoadFile()
	case TRAP_PRINT_MEM:
		err = c.trapPrintMemory()
	case TRAP_READ_WORD:
		err = c.trapReadWord()
	case TRAP_WORD_SEARCH:
		err = c.trapWordSearch()
	default:
		err = c.fault(FAULT_TRAP_CODE)
	}

	return
}

// trapLoadFile deposits the configured file bytes into successive
// words starting at GPR0, one character per word, and returns the
// length in GPR1.
func (c *Cpu) trapLoadFile() (err error) {
	dst := int(c.Reg.Gpr[0] & AddressMask)

	for n, b := range c.TrapFile {
		if fa := addressFault(dst + n); fa != 0 {
			return c.fault(fa)
		}
		_ = c.Mem.Write(uint16(dst+n), uint16(b))
	}

	c.Reg.Gpr[1] = uint16(len(c.TrapFile))
	return
}

// trapPrintMemory emits the low byte of GPR1 successive words
// starting at GPR0 to the printer.
func (c *Cpu) trapPrintMemory() (err error) {
	addr := int(c.Reg.Gpr[0])
	length := int(c.Reg.Gpr[1])
	printer := c.device[io.DEVICE_PRINTER]

	for n := range length {
		if fa := addressFault(addr + n); fa != 0 {
			return c.fault(fa)
		}
		word, _ := c.Mem.Read(uint16(addr + n))
		if printer != nil {
			_ = printer.Write(word & 0xff)
		}
	}

	return
}

// trapReadWord consumes one whitespace-delimited word from the
// keyboard into successive words starting at GPR0 and returns its
// length in GPR1. Leading whitespace is skipped and the terminating
// whitespace character is consumed.
func (c *Cpu) trapReadWord() (err error) {
	dst := int(c.Reg.Gpr[0])
	keyboard := c.device[io.DEVICE_KEYBOARD]

	count := 0
	for keyboard != nil {
		value, ok := keyboard.Read()
		if !ok {
			break
		}
		if unicode.IsSpace(rune(value)) {
			if count > 0 {
				break
			}
			continue
		}
		if fa := addressFault(dst + count); fa != 0 {
			return c.fault(fa)
		}
		_ = c.Mem.Write(uint16(dst+count), value)
		count++
	}

	c.Reg.Gpr[1] = uint16(count)
	return
}

// trapWordSearch locates the word at GPR2 (length GPR3) within the
// paragraph at GPR0 (length GPR1) and returns the 1-based sentence
// number in GPR0 and word-within-sentence number in GPR1, or zero in
// both when absent.
func (c *Cpu) trapWordSearch() (err error) {
	paragraph, err := c.readString(c.Reg.Gpr[0], c.Reg.Gpr[1])
	if err != nil {
		return
	}
	target, err := c.readString(c.Reg.Gpr[2], c.Reg.Gpr[3])
	if err != nil {
		return
	}

	sentence, word := searchParagraph(paragraph, target)
	c.Reg.Gpr[0] = uint16(sentence)
	c.Reg.Gpr[1] = uint16(word)
	return
}

// readString collects the low bytes of length successive words.
func (c *Cpu) readString(addr, length uint16) (text string, err error) {
	var sb strings.Builder

	for n := range int(length) {
		if fa := addressFault(int(addr) + n); fa != 0 {
			err = c.fault(fa)
			return
		}
		word, _ := c.Mem.Read(addr + uint16(n))
		sb.WriteByte(byte(word & 0xff))
	}

	text = sb.String()
	return
}

// searchParagraph returns the 1-based sentence and word position of
// target, or (0, 0) when absent. Sentences end at '.', '!' or '?';
// words are maximal runs of alphanumeric characters. Matching is
// case-sensitive.
func searchParagraph(paragraph, target string) (sentence, word int) {
	var sentences []string
	start := 0
	for n, r := range paragraph {
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, paragraph[start:n])
			start = n + 1
		}
	}
	sentences = append(sentences, paragraph[start:])

	notAlnum := func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}

	for n, text := range sentences {
		for k, candidate := range strings.FieldsFunc(text, notAlnum) {
			if candidate == target {
				return n + 1, k + 1
			}
		}
	}

	return 0, 0
}
