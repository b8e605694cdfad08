// Package mem models the machine's 2048-word main store and its
// single-word, fully-associative cache. All program accesses route
// through the cache, which fills from and writes through to the word
// store itself; DirectRead/DirectWrite bypass the cache for the IPL
// loader and operator deposits.
package mem

import (
	"iter"
	"maps"
)

const (
	Size        = 2048 // Words of main memory.
	ReservedTop = 5    // Addresses 0..ReservedTop are reserved.
)

var _mem_defines = map[string]string{
	"MEMORY_SIZE":  "2048",
	"RESERVED_TOP": "5",
	"CACHE_LINES":  "16",
}

// Defines returns the memory geometry constants by name.
func Defines() iter.Seq2[string, string] {
	return maps.All(_mem_defines)
}

// Memory owns the word store and the cache jointly; the cache never
// holds its own reference back to memory.
type Memory struct {
	words [Size]uint16
	cache Cache
}

// New creates a zeroed memory with an invalid cache.
func New() (m *Memory) {
	m = &Memory{}
	m.Reset()
	return
}

// Reset zeroes every word and invalidates the cache.
func (m *Memory) Reset() {
	clear(m.words[:])
	m.cache.Reset()
}

// Cache exposes the cache for telemetry and state rendering.
func (m *Memory) Cache() *Cache {
	return &m.cache
}

// Read returns the word at addr through the cache.
func (m *Memory) Read(addr uint16) (value uint16, err error) {
	if int(addr) >= Size {
		err = ErrAddressRange(addr)
		return
	}

	value = m.cache.read(m, addr)
	return
}

// Write stores value at addr through the cache (write-through,
// write-allocate).
func (m *Memory) Write(addr uint16, value uint16) (err error) {
	if int(addr) >= Size {
		err = ErrAddressRange(addr)
		return
	}

	m.cache.write(m, addr, value)
	return
}

// DirectRead returns the word at addr, bypassing the cache.
func (m *Memory) DirectRead(addr uint16) (value uint16, err error) {
	if int(addr) >= Size {
		err = ErrAddressRange(addr)
		return
	}

	value = m.words[addr]
	return
}

// DirectWrite stores value at addr, bypassing the cache.
func (m *Memory) DirectWrite(addr uint16, value uint16) (err error) {
	if int(addr) >= Size {
		err = ErrAddressRange(addr)
		return
	}

	m.words[addr] = value & 0xffff
	return
}
