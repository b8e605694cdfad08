package emulator

import (
	"bufio"
	"io"
	"log"
	"strconv"
	"strings"
)

// IPL performs the initial program load: reset, then one deposit per
// record of the textual load image (two octal fields, address then
// word), then PC and MAR set to the first record's address. Deposits
// bypass the cache. A malformed line fails the load with nothing
// from that line deposited.
func (ma *Machine) IPL(input io.Reader) (err error) {
	ma.Reset()

	scanner := bufio.NewScanner(input)

	first := -1
	records := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			err = &ErrLoadRecord{LineNo: lineNo, Line: line, Err: ErrRecordShort}
			return
		}

		addr64, perr := strconv.ParseUint(fields[0], 8, 16)
		if perr != nil {
			err = &ErrLoadRecord{LineNo: lineNo, Line: line, Err: ErrRecordOctal}
			return
		}
		value64, perr := strconv.ParseUint(fields[1], 8, 16)
		if perr != nil {
			err = &ErrLoadRecord{LineNo: lineNo, Line: line, Err: ErrRecordOctal}
			return
		}

		err = ma.Mem.DirectWrite(uint16(addr64), uint16(value64))
		if err != nil {
			err = &ErrLoadRecord{LineNo: lineNo, Line: line, Err: err}
			return
		}

		if first < 0 {
			first = int(addr64)
		}
		records++
	}
	if err = scanner.Err(); err != nil {
		return
	}

	if first < 0 {
		log.Printf("IPL warning: load file was empty.")
		return
	}

	ma.Cpu.Reg.SetPc(uint16(first))
	ma.Cpu.Reg.SetMar(uint16(first))
	log.Printf("IPL successful. Loaded %d records starting at octal address %06o.", records, first)

	return
}
