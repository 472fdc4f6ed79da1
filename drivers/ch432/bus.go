package ch432

import (
	"sync"

	"tinygo.org/x/drivers"

	"github.com/SoldierJazz/ch432ser-linux/errcode"
)

// regBus frames register operations onto the shared SPI connection. Every
// physical transaction runs under one exclusive lock, so exactly one is
// outstanding system-wide at any time. The lock is never held across a
// sleep.
//
// Command byte layout (one command byte, then the data phase):
//
//	read:  0xFD & ((reg + channel*8) << 2)
//	write: 0x02 | ((reg + channel*8) << 2)
type regBus struct {
	mu   sync.Mutex
	conn drivers.SPI

	// Fixed transaction buffers, guarded by mu.
	w [1 + FIFOSize]byte
	r [1 + FIFOSize]byte
}

func newRegBus(conn drivers.SPI) *regBus {
	return &regBus{conn: conn}
}

func readCmd(channel, reg uint8) uint8 {
	return 0xFD & ((reg + channel*8) << regShift)
}

func writeCmd(channel, reg uint8) uint8 {
	return 0x02 | ((reg + channel*8) << regShift)
}

// read returns one register byte. On a bus fault the returned byte is
// whatever the transfer left behind and must not be trusted.
func (b *regBus) read(channel, reg uint8) (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readLocked(channel, reg)
}

func (b *regBus) readLocked(channel, reg uint8) (uint8, error) {
	b.w[0] = readCmd(channel, reg)
	b.w[1] = 0
	if err := b.conn.Tx(b.w[:2], b.r[:2]); err != nil {
		return b.r[1], errcode.Wrap(errcode.BusFault, "reg read", err)
	}
	return b.r[1], nil
}

// write stores one register byte. The write is not retried on failure.
func (b *regBus) write(channel, reg, val uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeLocked(channel, reg, val)
}

func (b *regBus) writeLocked(channel, reg, val uint8) error {
	b.w[0] = writeCmd(channel, reg)
	b.w[1] = val
	if err := b.conn.Tx(b.w[:2], nil); err != nil {
		return errcode.Wrap(errcode.BusFault, "reg write", err)
	}
	return nil
}

// update clears the mask bits, then sets the bits of val that fall inside
// mask. The bus lock is held across the read and the write, so concurrent
// update calls serialize; register changes made by the chip itself between
// the two phases are not defended against.
func (b *regBus) update(channel, reg, mask, val uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.readLocked(channel, reg)
	if err != nil {
		return err
	}
	cur &^= mask
	cur |= val & mask
	return b.writeLocked(channel, reg, cur)
}

// burstWrite pushes data into the channel's TX FIFO as one transaction.
// The caller caps len(data) at the FIFO capacity.
func (b *regBus) burstWrite(channel uint8, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.w[0] = writeCmd(channel, regTHR)
	n := copy(b.w[1:], data)
	if err := b.conn.Tx(b.w[:1+n], nil); err != nil {
		return errcode.Wrap(errcode.BusFault, "fifo write", err)
	}
	return nil
}

// burstRead pulls len(out) bytes from the channel's RX FIFO as one
// transaction.
func (b *regBus) burstRead(channel uint8, out []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(out)
	if n > FIFOSize {
		n = FIFOSize
	}
	b.w[0] = readCmd(channel, regRHR)
	for i := 1; i <= n; i++ {
		b.w[i] = 0
	}
	if err := b.conn.Tx(b.w[:1+n], b.r[:1+n]); err != nil {
		return errcode.Wrap(errcode.BusFault, "fifo read", err)
	}
	copy(out, b.r[1:1+n])
	return nil
}
