package ch432

import (
	"errors"
	"testing"

	"github.com/SoldierJazz/ch432ser-linux/errcode"
)

func TestCommandEncoding(t *testing.T) {
	cases := []struct {
		channel, reg uint8
		read, write  uint8
	}{
		{0, regRHR, 0x00, 0x02},
		{0, regIER, 0x04, 0x06},
		{0, regLSR, 0x14, 0x16},
		{0, regSPR, 0x1c, 0x1e},
		{1, regRHR, 0x20, 0x22},
		{1, regIER, 0x24, 0x26},
		{1, regLSR, 0x34, 0x36},
		{1, regSPR, 0x3c, 0x3e},
	}
	for _, tc := range cases {
		if got := readCmd(tc.channel, tc.reg); got != tc.read {
			t.Errorf("readCmd(%d, %#02x) = %#02x, want %#02x", tc.channel, tc.reg, got, tc.read)
		}
		if got := writeCmd(tc.channel, tc.reg); got != tc.write {
			t.Errorf("writeCmd(%d, %#02x) = %#02x, want %#02x", tc.channel, tc.reg, got, tc.write)
		}
	}
}

func TestBusReadWrite(t *testing.T) {
	sim := &chipSim{}
	b := newRegBus(sim)

	if err := b.write(1, regSPR, 0x5a); err != nil {
		t.Fatalf("write: %v", err)
	}
	if sim.ch[1].spr != 0x5a {
		t.Fatalf("spr = %#02x, want 0x5a", sim.ch[1].spr)
	}
	got, err := b.read(1, regSPR)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != 0x5a {
		t.Fatalf("read = %#02x, want 0x5a", got)
	}
}

func TestBusUpdate(t *testing.T) {
	sim := &chipSim{}
	b := newRegBus(sim)
	sim.ch[0].mcr = mcrDTR | mcrOUT2

	// Set RTS without touching the other bits.
	if err := b.update(0, regMCR, mcrRTS, mcrRTS); err != nil {
		t.Fatalf("update: %v", err)
	}
	if want := uint8(mcrDTR | mcrOUT2 | mcrRTS); sim.ch[0].mcr != want {
		t.Fatalf("mcr = %#02x, want %#02x", sim.ch[0].mcr, want)
	}

	// Clear DTR; value bits outside the mask must not leak.
	if err := b.update(0, regMCR, mcrDTR, mcrLoop); err != nil {
		t.Fatalf("update: %v", err)
	}
	if want := uint8(mcrOUT2 | mcrRTS); sim.ch[0].mcr != want {
		t.Fatalf("mcr = %#02x, want %#02x", sim.ch[0].mcr, want)
	}
}

func TestBusBurstWrite(t *testing.T) {
	sim := &chipSim{}
	b := newRegBus(sim)

	data := []byte("0123456789abcdef")
	if err := b.burstWrite(0, data); err != nil {
		t.Fatalf("burstWrite: %v", err)
	}
	if string(sim.ch[0].tx) != string(data) {
		t.Fatalf("tx = %q, want %q", sim.ch[0].tx, data)
	}
	if len(sim.ch[0].bursts) != 1 || sim.ch[0].bursts[0] != len(data) {
		t.Fatalf("bursts = %v, want one transaction of %d", sim.ch[0].bursts, len(data))
	}
}

func TestBusBurstRead(t *testing.T) {
	sim := &chipSim{}
	b := newRegBus(sim)
	for _, c := range []byte("hello") {
		sim.inject(1, c, 0)
	}

	out := make([]byte, 5)
	if err := b.burstRead(1, out); err != nil {
		t.Fatalf("burstRead: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("out = %q, want %q", out, "hello")
	}
	if len(sim.ch[1].rx) != 0 {
		t.Fatalf("fifo not drained: %d left", len(sim.ch[1].rx))
	}
}

func TestBusFaultCode(t *testing.T) {
	sim := &chipSim{err: errors.New("boom")}
	b := newRegBus(sim)

	if _, err := b.read(0, regLSR); !errcode.Is(err, errcode.BusFault) {
		t.Fatalf("read error = %v, want BusFault", err)
	}
	if err := b.write(0, regSPR, 1); !errcode.Is(err, errcode.BusFault) {
		t.Fatalf("write error = %v, want BusFault", err)
	}
}
