package ch432

import (
	"sync"
	"testing"
)

// --- register-level chip fake implementing drivers.SPI ---

// simByte is one queued RX byte plus the LSR error bits it carries.
type simByte struct {
	b   byte
	lsr uint8
}

type simChannel struct {
	ier uint8
	fcr uint8
	lcr uint8
	mcr uint8
	spr uint8
	dll uint8
	dlh uint8
	msr uint8

	msiPending bool
	txBusy     bool // clears THRE/TEMT while set
	sprBroken  bool // scratchpad reads back inverted

	rx     []simByte
	tx     []byte
	bursts []int // payload length of every THR write transaction
}

func (sc *simChannel) iirValue() uint8 {
	if sc.ier&ierRLSI != 0 && len(sc.rx) > 0 && sc.rx[0].lsr != 0 {
		return srcRLS
	}
	if sc.ier&ierRDI != 0 && len(sc.rx) > 0 {
		return srcRDI
	}
	if sc.ier&ierMSI != 0 && sc.msiPending {
		return srcMSI
	}
	if sc.ier&ierTHRI != 0 && !sc.txBusy {
		return srcTHRI
	}
	return iirNoInt
}

func (sc *simChannel) lsrValue() uint8 {
	var v uint8
	if !sc.txBusy {
		v |= lsrTHRE | lsrTEMT
	}
	if len(sc.rx) > 0 {
		v |= lsrDR | sc.rx[0].lsr
		if sc.rx[0].lsr != 0 {
			v |= lsrFIFOErr
		}
	}
	return v
}

type chipSim struct {
	mu  sync.Mutex
	ch  [2]simChannel
	err error // returned from every transfer while set
}

func (s *chipSim) inject(channel int, b byte, lsr uint8) {
	s.mu.Lock()
	s.ch[channel].rx = append(s.ch[channel].rx, simByte{b: b, lsr: lsr})
	s.mu.Unlock()
}

func (s *chipSim) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := s.Tx([]byte{b}, r[:])
	return r[0], err
}

// Tx decodes one command-byte transaction the way the chip does: bit 1
// selects write, the upper bits address (reg + channel*8).
func (s *chipSim) Tx(w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if len(w) == 0 {
		return nil
	}

	isWrite := w[0]&0x02 != 0
	off := w[0] >> 2
	sc := &s.ch[off/8]
	reg := off % 8
	dlab := sc.lcr&lcrDLAB != 0

	if isWrite {
		payload := w[1:]
		switch {
		case reg == regTHR && !dlab:
			sc.tx = append(sc.tx, payload...)
			sc.bursts = append(sc.bursts, len(payload))
		default:
			for _, v := range payload {
				sc.writeReg(reg, dlab, v)
			}
		}
		return nil
	}

	for i := 1; i < len(w) && i < len(r); i++ {
		r[i] = sc.readReg(reg, dlab)
	}
	return nil
}

func (sc *simChannel) writeReg(reg uint8, dlab bool, v uint8) {
	switch {
	case dlab && reg == regDLL:
		sc.dll = v
	case dlab && reg == regDLH:
		sc.dlh = v
	case reg == regIER:
		sc.ier = v
	case reg == regFCR:
		if v&fcrRXReset != 0 {
			sc.rx = nil
		}
		sc.fcr = v
	case reg == regLCR:
		sc.lcr = v
	case reg == regMCR:
		sc.mcr = v
	case reg == regSPR:
		sc.spr = v
	}
}

func (sc *simChannel) readReg(reg uint8, dlab bool) uint8 {
	switch {
	case dlab && reg == regDLL:
		return sc.dll
	case dlab && reg == regDLH:
		return sc.dlh
	case reg == regRHR:
		if len(sc.rx) == 0 {
			return 0
		}
		b := sc.rx[0].b
		sc.rx = sc.rx[1:]
		return b
	case reg == regIER:
		return sc.ier
	case reg == regIIR:
		return sc.iirValue()
	case reg == regLCR:
		return sc.lcr
	case reg == regMCR:
		return sc.mcr
	case reg == regLSR:
		return sc.lsrValue()
	case reg == regMSR:
		v := sc.msr
		sc.msiPending = false
		sc.msr &^= msrDeltaMask
		return v
	case reg == regSPR:
		if sc.sprBroken {
			return ^sc.spr
		}
		return sc.spr
	}
	return 0
}

// --- recording sink ---

type recSink struct {
	mu      sync.Mutex
	data    []byte
	flags   []Flag
	wakeups int
	cts     []bool
}

func (s *recSink) ReceiveChars(data []byte, flags []Flag) {
	s.mu.Lock()
	s.data = append(s.data, data...)
	s.flags = append(s.flags, flags...)
	s.mu.Unlock()
}

func (s *recSink) WriteWakeup() {
	s.mu.Lock()
	s.wakeups++
	s.mu.Unlock()
}

func (s *recSink) CTSChange(asserted bool) {
	s.mu.Lock()
	s.cts = append(s.cts, asserted)
	s.mu.Unlock()
}

// --- helpers ---

func newTestController(t *testing.T) (*chipSim, *Controller) {
	t.Helper()
	sim := &chipSim{}
	c, err := New(Config{Conn: sim, Logf: t.Logf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sim, c
}

func mustPort(t *testing.T, c *Controller, i int) *Channel {
	t.Helper()
	ch, err := c.Port(i)
	if err != nil {
		t.Fatalf("Port(%d): %v", i, err)
	}
	return ch
}
