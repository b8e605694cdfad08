package mem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheFifoTurnover(t *testing.T) {
	assert := assert.New(t)

	m := New()
	for addr := uint16(6); addr <= 22; addr++ {
		assert.NoError(m.DirectWrite(addr, addr+0o100))
	}

	// 17 distinct reads wrap the 16-line cache once.
	for addr := uint16(6); addr <= 22; addr++ {
		value, err := m.Read(addr)
		assert.NoError(err)
		assert.Equal(addr+0o100, value)
	}

	c := m.Cache()
	assert.Equal(1, c.Victim())
	assert.Equal(17, c.Misses)
	assert.Equal(0, c.Hits)

	// Line 0 was recycled for the 17th address; 1..15 keep 7..21.
	assert.Equal(Line{Valid: true, Tag: 22, Data: 22 + 0o100}, c.Line(0))
	for n := 1; n < CacheLines; n++ {
		tag := uint16(6 + n)
		assert.Equal(Line{Valid: true, Tag: tag, Data: tag + 0o100}, c.Line(n))
	}
}

func TestCacheVictimModulo(t *testing.T) {
	assert := assert.New(t)

	m := New()

	// After N misses the victim pointer is N mod 16.
	for n := 0; n < 40; n++ {
		_, err := m.Read(uint16(6 + n))
		assert.NoError(err)
		assert.Equal((n+1)%CacheLines, m.Cache().Victim())
	}
}

func TestCacheWriteHitKeepsVictim(t *testing.T) {
	assert := assert.New(t)

	m := New()

	assert.NoError(m.Write(100, 1)) // write-allocate installs
	victim := m.Cache().Victim()

	assert.NoError(m.Write(100, 2)) // write-hit updates in place
	assert.Equal(victim, m.Cache().Victim())
	assert.Equal(WRITE_HIT, m.Cache().LastKind)

	value, err := m.Read(100)
	assert.NoError(err)
	assert.Equal(uint16(2), value)
	assert.Equal(READ_HIT, m.Cache().LastKind)

	direct, _ := m.DirectRead(100)
	assert.Equal(uint16(2), direct)
}

func TestCacheTelemetry(t *testing.T) {
	assert := assert.New(t)

	m := New()
	c := m.Cache()

	table := [](struct {
		name  string
		do    func()
		kind  AccessKind
		index int
	}){
		{"read_miss", func() { m.Read(50) }, READ_MISS, 0},
		{"read_hit", func() { m.Read(50) }, READ_HIT, 0},
		{"write_miss", func() { m.Write(51, 1) }, WRITE_MISS, 1},
		{"write_hit", func() { m.Write(51, 2) }, WRITE_HIT, 1},
	}

	for _, entry := range table {
		entry.do()
		assert.Equal(entry.kind, c.LastKind, entry.name)
		assert.Equal(entry.index, c.LastIndex, entry.name)
	}

	assert.Equal(2, c.Hits)
	assert.Equal(2, c.Misses)
}

func TestCacheStateString(t *testing.T) {
	assert := assert.New(t)

	m := New()
	m.Read(0o100)

	text := m.Cache().StateString()
	assert.True(strings.HasPrefix(text, "FIFO Ptr -> 01\n"))
	assert.Contains(text, "00 | 1 | 0100 | 000000")
	assert.Contains(text, "15 | 0 | ---- | ------")
}

func TestCacheStaleLineAfterDirectWrite(t *testing.T) {
	assert := assert.New(t)

	m := New()

	assert.NoError(m.Write(200, 7))

	// A direct write bypasses the cache; the cached line keeps the
	// stale value until invalidated.
	assert.NoError(m.DirectWrite(200, 9))
	value, err := m.Read(200)
	assert.NoError(err)
	assert.Equal(uint16(7), value)

	m.Cache().Reset()
	value, err = m.Read(200)
	assert.NoError(err)
	assert.Equal(uint16(9), value)
}
