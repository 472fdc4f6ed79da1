//go:build linux

// Package spidev drives a Linux /dev/spidevB.C character device through
// the SPI_IOC ioctl interface. It satisfies the drivers.SPI bus contract
// used by the chip driver.
package spidev

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/SoldierJazz/ch432ser-linux/errcode"
)

const (
	iocWrMode        = 0x40016b01 // SPI_IOC_WR_MODE
	iocWrBitsPerWord = 0x40016b03 // SPI_IOC_WR_BITS_PER_WORD
	iocWrMaxSpeedHz  = 0x40046b04 // SPI_IOC_WR_MAX_SPEED_HZ
	iocMessage1      = 0x40206b00 // SPI_IOC_MESSAGE(1)
)

// iocTransfer mirrors struct spi_ioc_transfer from <linux/spi/spidev.h>.
type iocTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	pad         uint16
}

// Device is an open spidev handle. Methods are not safe for concurrent
// use; the chip driver serializes access behind its own bus lock.
type Device struct {
	f       *os.File
	speedHz uint32
}

// Open opens path and configures mode, 8 bits per word, and the given
// maximum clock speed.
func Open(path string, mode uint8, speedHz uint32) (*Device, error) {
	const op = "spidev.Open"
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errcode.Wrap(errcode.BusFault, op, err)
	}
	d := &Device{f: f, speedHz: speedHz}

	m := mode
	if err := d.ioctl(iocWrMode, unsafe.Pointer(&m)); err != nil {
		f.Close()
		return nil, errcode.Wrap(errcode.BusFault, op, err)
	}
	bits := uint8(8)
	if err := d.ioctl(iocWrBitsPerWord, unsafe.Pointer(&bits)); err != nil {
		f.Close()
		return nil, errcode.Wrap(errcode.BusFault, op, err)
	}
	if err := d.ioctl(iocWrMaxSpeedHz, unsafe.Pointer(&d.speedHz)); err != nil {
		f.Close()
		return nil, errcode.Wrap(errcode.BusFault, op, err)
	}
	return d, nil
}

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, e := unix.Syscall6(unix.SYS_IOCTL,
		d.f.Fd(),
		req,
		uintptr(arg),
		0, 0, 0)
	if e != 0 {
		return e
	}
	return nil
}

// Tx performs one full-duplex transfer with chip select held for its
// duration. Either buffer may be nil; a non-nil r must be at least as long
// as w.
func (d *Device) Tx(w, r []byte) error {
	const op = "spidev.Tx"

	n := len(w)
	if n == 0 {
		n = len(r)
	}
	if n == 0 {
		return nil
	}

	var t iocTransfer
	t.length = uint32(n)
	t.speedHz = d.speedHz
	t.bitsPerWord = 8
	if len(w) > 0 {
		t.txBuf = uint64(uintptr(unsafe.Pointer(&w[0])))
	}
	if len(r) > 0 {
		if len(r) < n {
			return errcode.Wrap(errcode.InvalidParams, op, nil)
		}
		t.rxBuf = uint64(uintptr(unsafe.Pointer(&r[0])))
	}

	if err := d.ioctl(iocMessage1, unsafe.Pointer(&t)); err != nil {
		return errcode.Wrap(errcode.BusFault, op, err)
	}
	return nil
}

// Transfer shifts one byte out and returns the byte shifted in.
func (d *Device) Transfer(b byte) (byte, error) {
	w := [1]byte{b}
	var r [1]byte
	if err := d.Tx(w[:], r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (d *Device) Close() error {
	return d.f.Close()
}
