package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"math/bits"

	"github.com/ezrec/c6461/io"
	"github.com/ezrec/c6461/mem"
)

// Device is a character-level I/O channel attached to the CPU.
type Device = io.Device

// AddressMask truncates a value to the 12-bit address space.
const AddressMask = uint16(0o7777)

// Condition code bits. JCC with condition index cc tests bit 3-cc,
// so index 0 names OVERFLOW and index 3 names EQUALORNOT.
const (
	CC_OVERFLOW   = uint8(0b1000) // overflow
	CC_UNDERFLOW  = uint8(0b0100) // underflow
	CC_DIVZERO    = uint8(0b0010) // divzero
	CC_EQUALORNOT = uint8(0b0001) // equalornot
)

var _cpu_defines = map[string]string{
	"TRAP_LOAD_FILE":   fmt.Sprintf("%v", TRAP_LOAD_FILE),
	"TRAP_PRINT_MEM":   fmt.Sprintf("%v", TRAP_PRINT_MEM),
	"TRAP_READ_WORD":   fmt.Sprintf("%v", TRAP_READ_WORD),
	"TRAP_WORD_SEARCH": fmt.Sprintf("%v", TRAP_WORD_SEARCH),
}

// Defines returns the trap service codes by name.
func Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Registers is the machine's register file. PC and MAR hold 12 bits;
// use SetPc/SetMar so assignments mask silently.
type Registers struct {
	Gpr [4]uint16 // General purpose registers R0..R3.
	Ixr [4]uint16 // Index registers X1..X3; Ixr[0] never indexes.
	Pc  uint16    // Program counter (12-bit).
	Mar uint16    // Memory address register (12-bit).
	Mbr uint16    // Memory buffer register.
	Ir  uint16    // Instruction register.
	Cc  uint8     // Condition code (4-bit).
	Mfr uint8     // Machine fault register (4-bit); non-zero halts.
}

// Reset clears every register.
func (reg *Registers) Reset() {
	*reg = Registers{}
}

// SetPc assigns the program counter, masked to 12 bits.
func (reg *Registers) SetPc(value uint16) {
	reg.Pc = value & AddressMask
}

// SetMar assigns the memory address register, masked to 12 bits.
func (reg *Registers) SetMar(value uint16) {
	reg.Mar = value & AddressMask
}

// String returns the register file in octal, for operator displays.
func (reg *Registers) String() (text string) {
	text = fmt.Sprintf("  PC: %04o   MAR: %04o\n MBR: %06o  IR: %06o\n  CC: %04b    MFR: %04b\n",
		reg.Pc, reg.Mar, reg.Mbr, reg.Ir, reg.Cc, reg.Mfr)
	for n := range reg.Gpr {
		text += fmt.Sprintf("GPR%d: %06o\n", n, reg.Gpr[n])
	}
	for n := 1; n < len(reg.Ixr); n++ {
		text += fmt.Sprintf("IXR%d: %06o\n", n, reg.Ixr[n])
	}

	return
}

// Cpu is the execution core: the register file, a reference to the
// machine's memory, and the attached devices. One Step executes one
// fetch/decode/execute cycle.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Reg Registers   // Register file.
	Mem *mem.Memory // Main store (shared with the owning machine).

	TrapFile []byte // Source bytes for the load-file trap service.

	device [io.DEVICE_COUNT]Device
}

// New creates a CPU attached to a memory.
func New(m *mem.Memory) (c *Cpu) {
	c = &Cpu{Mem: m}
	return
}

// Reset clears the register file and resets every attached device.
// Memory is owned by the machine aggregate and reset there.
func (c *Cpu) Reset() {
	if c.Verbose {
		log.Printf("cpu: reset")
	}

	c.Reg.Reset()
	for _, dev := range c.device {
		if dev != nil {
			dev.Reset()
		}
	}
}

// SetDevice attaches a device model at a device id.
func (c *Cpu) SetDevice(id int, dev Device) {
	c.device[id] = dev
}

// Device returns the device model at a device id, or nil.
func (c *Cpu) Device(id int) Device {
	return c.device[id]
}

// fault records a machine fault in the MFR and returns it. The PC is
// never advanced on the faulting cycle.
func (c *Cpu) fault(fa Fault) error {
	c.Reg.Mfr |= uint8(fa)
	if c.Verbose {
		log.Printf("cpu: fault %04b at pc %04o", uint8(fa), c.Reg.Pc)
	}

	return fa
}

// addressFault classifies an un-truncated address: the reserved
// range 0..5 and anything past the 2048-word store both fault. The
// raw sum is checked, not the 12-bit truncation.
func addressFault(ea int) Fault {
	switch {
	case ea <= mem.ReservedTop:
		return FAULT_RESERVED_MEM
	case ea >= mem.Size:
		return FAULT_BEYOND_MEM
	}

	return Fault(0)
}

// effectiveAddress applies indexing and one optional indirect
// dereference to the 5-bit address field. Both the indexed sum and
// the dereferenced address are validated.
func (c *Cpu) effectiveAddress(ix, i, addr uint16) (ea uint16, err error) {
	raw := int(addr)
	if ix != 0 {
		raw += int(c.Reg.Ixr[ix])
	}

	if fa := addressFault(raw); fa != 0 {
		err = c.fault(fa)
		return
	}

	if i != 0 {
		word, _ := c.Mem.Read(uint16(raw))
		raw = int(word & AddressMask)
		if fa := addressFault(raw); fa != 0 {
			err = c.fault(fa)
			return
		}
	}

	ea = uint16(raw) & AddressMask
	return
}

// Step executes a single fetch/decode/execute cycle.
//
// The sentinel returns are part of the driver contract: ErrHalted
// after HLT, ErrInputPending when IN finds its buffer empty (the PC
// is not advanced; deposit input and call Step again), and a Fault
// when the MFR went non-zero.
func (c *Cpu) Step() (err error) {
	pc := c.Reg.Pc

	// Fetch
	if fa := addressFault(int(pc)); fa != 0 {
		return c.fault(fa)
	}
	c.Reg.SetMar(pc)
	word, _ := c.Mem.Read(pc)
	c.Reg.Ir = word
	c.Reg.Mbr = word

	// Decode
	w := Word(word)
	op := w.Op()
	info, ok := opTable[op]
	if !ok {
		return c.fault(FAULT_OPCODE)
	}

	if c.Verbose {
		source, _ := w.Source()
		log.Printf("cpu: %04o: %06o %v", pc, word, source)
	}

	// Execute
	next := (pc + 1) & AddressMask

	switch info.Kind {
	case KIND_HALT:
		return ErrHalted
	case KIND_MEMORY:
		next, err = c.execMemory(op, w, next)
	case KIND_INDEX_MEMORY:
		err = c.execIndexMemory(op, w)
	case KIND_IMMEDIATE:
		next = c.execImmediate(op, w, next)
	case KIND_REGREG:
		c.execRegReg(op, w)
	case KIND_SHIFT:
		c.execShift(op, w)
	case KIND_IO:
		err = c.execIo(op, w)
	case KIND_TRAP:
		err = c.trap(w.TrapDecode())
	}
	if err != nil {
		return
	}

	// Update PC
	c.Reg.SetPc(next)
	return
}

// addTo adds delta to GPR[r], setting OVERFLOW or UNDERFLOW when the
// 32-bit signed result falls outside the 16-bit signed range.
func (c *Cpu) addTo(r uint16, delta int32) {
	result := int32(int16(c.Reg.Gpr[r])) + delta

	c.Reg.Cc &^= CC_OVERFLOW | CC_UNDERFLOW
	switch {
	case result > 32767:
		c.Reg.Cc |= CC_OVERFLOW
	case result < -32768:
		c.Reg.Cc |= CC_UNDERFLOW
	}

	c.Reg.Gpr[r] = uint16(result)
}

func (c *Cpu) execMemory(op Op, w Word, next uint16) (newNext uint16, err error) {
	r, ix, i, addr := w.MemDecode()

	ea, err := c.effectiveAddress(ix, i, addr)
	if err != nil {
		return
	}

	newNext = next
	switch op {
	case OP_LDR:
		value, _ := c.Mem.Read(ea)
		c.Reg.Gpr[r] = value
	case OP_STR:
		_ = c.Mem.Write(ea, c.Reg.Gpr[r])
	case OP_LDA:
		// The register receives the address itself.
		c.Reg.Gpr[r] = ea
	case OP_AMR:
		value, _ := c.Mem.Read(ea)
		c.addTo(r, int32(int16(value)))
	case OP_SMR:
		value, _ := c.Mem.Read(ea)
		c.addTo(r, -int32(int16(value)))
	case OP_JZ:
		if c.Reg.Gpr[r] == 0 {
			newNext = ea
		}
	case OP_JNE:
		if c.Reg.Gpr[r] != 0 {
			newNext = ea
		}
	case OP_JGE:
		if int16(c.Reg.Gpr[r]) >= 0 {
			newNext = ea
		}
	case OP_JCC:
		// The R field holds the condition code index.
		if c.Reg.Cc&uint8(1<<(3-r)) != 0 {
			newNext = ea
		}
	case OP_JMA:
		newNext = ea
	case OP_JSR:
		// R3 is the link register.
		c.Reg.Gpr[3] = next
		newNext = ea
	case OP_SOB:
		result := int16(c.Reg.Gpr[r]) - 1
		c.Reg.Gpr[r] = uint16(result)
		if result > 0 {
			newNext = ea
		}
	}

	return
}

func (c *Cpu) execIndexMemory(op Op, w Word) (err error) {
	_, ix, i, addr := w.MemDecode()

	// The IX field selects the target register; the address is
	// computed without indexing.
	ea, err := c.effectiveAddress(0, i, addr)
	if err != nil {
		return
	}

	switch op {
	case OP_LDX:
		value, _ := c.Mem.Read(ea)
		c.Reg.Ixr[ix] = value
	case OP_STX:
		_ = c.Mem.Write(ea, c.Reg.Ixr[ix])
	}

	return
}

func (c *Cpu) execImmediate(op Op, w Word, next uint16) (newNext uint16) {
	newNext = next

	switch op {
	case OP_AIR, OP_SIR:
		r, imm := w.ImmDecode()
		if imm == 0 {
			// Immediate zero is a no-op.
			return
		}
		delta := int32(imm)
		if op == OP_SIR {
			delta = -delta
		}
		if c.Reg.Gpr[r] == 0 {
			// A zero register receives the signed immediate directly.
			c.Reg.Gpr[r] = uint16(delta)
			return
		}
		c.addTo(r, delta)
	case OP_RFS:
		c.Reg.Gpr[0] = w.RfsDecode()
		newNext = c.Reg.Gpr[3] & AddressMask
	}

	return
}

func (c *Cpu) execRegReg(op Op, w Word) {
	rx, ry := w.RegDecode()

	switch op {
	case OP_ADD:
		c.addTo(rx, int32(int16(c.Reg.Gpr[ry])))
	case OP_SUB:
		c.addTo(rx, -int32(int16(c.Reg.Gpr[ry])))
	case OP_MLT:
		c.multiply(rx, ry)
	case OP_DVD:
		c.divide(rx, ry)
	case OP_TRR:
		if c.Reg.Gpr[rx] == c.Reg.Gpr[ry] {
			c.Reg.Cc |= CC_EQUALORNOT
		} else {
			c.Reg.Cc &^= CC_EQUALORNOT
		}
	case OP_AND:
		c.Reg.Gpr[rx] &= c.Reg.Gpr[ry]
	case OP_ORR:
		c.Reg.Gpr[rx] |= c.Reg.Gpr[ry]
	case OP_NOT:
		c.Reg.Gpr[rx] = ^c.Reg.Gpr[rx]
	}
}

// multiply forms the 32-bit signed product in the rx/rx+1 pair.
// Odd register encodings collapse to the even register of the pair.
func (c *Cpu) multiply(rx, ry uint16) {
	rx &^= 1
	ry &^= 1

	product := int32(int16(c.Reg.Gpr[rx])) * int32(int16(c.Reg.Gpr[ry]))
	c.Reg.Gpr[rx] = uint16(uint32(product) >> 16)
	c.Reg.Gpr[rx+1] = uint16(uint32(product))

	c.Reg.Cc &^= CC_OVERFLOW
	if product > 32767 || product < -32768 {
		// High half carries significance beyond sign extension.
		c.Reg.Cc |= CC_OVERFLOW
	}
}

// divide places quotient and remainder in the rx/rx+1 pair. Division
// by zero sets DIVZERO and writes nothing.
func (c *Cpu) divide(rx, ry uint16) {
	rx &^= 1
	ry &^= 1

	divisor := int32(int16(c.Reg.Gpr[ry]))
	if divisor == 0 {
		c.Reg.Cc |= CC_DIVZERO
		return
	}

	dividend := int32(int16(c.Reg.Gpr[rx]))
	quotient := dividend / divisor
	remainder := dividend % divisor

	c.Reg.Gpr[rx] = uint16(quotient)
	c.Reg.Gpr[rx+1] = uint16(remainder)

	c.Reg.Cc &^= CC_OVERFLOW
	if quotient > 32767 || quotient < -32768 {
		c.Reg.Cc |= CC_OVERFLOW
	}
}

func (c *Cpu) execShift(op Op, w Word) {
	r, al, lr, count := w.ShiftDecode()
	if count == 0 {
		return
	}

	value := c.Reg.Gpr[r]
	switch op {
	case OP_SRC:
		switch {
		case lr == 1:
			value <<= count
		case al == 1:
			value >>= count
		default:
			// Arithmetic right shift sign-extends.
			value = uint16(int16(value) >> count)
		}
	case OP_RRC:
		if lr == 1 {
			value = bits.RotateLeft16(value, int(count))
		} else {
			value = bits.RotateLeft16(value, -int(count))
		}
	}

	c.Reg.Gpr[r] = value
}

func (c *Cpu) execIo(op Op, w Word) (err error) {
	r, dev := w.IoDecode()
	device := c.device[dev]

	switch op {
	case OP_IN:
		if device == nil {
			c.Reg.Gpr[r] = 0
			return
		}
		value, ok := device.Read()
		if !ok {
			// Suspend with the PC unchanged; the driver deposits
			// input and resumes.
			err = ErrInputPending
			return
		}
		c.Reg.Gpr[r] = value
	case OP_OUT:
		if device != nil {
			_ = device.Write(c.Reg.Gpr[r])
		}
	case OP_CHK:
		if device != nil && device.Ready() {
			c.Reg.Gpr[r] = 1
		} else {
			c.Reg.Gpr[r] = 0
		}
	}

	return
}
