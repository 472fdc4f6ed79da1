package ch432

import "github.com/SoldierJazz/ch432ser-linux/errcode"

// Parity describes the parity setting of a channel.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// StopBits describes the stop-bit setting of a channel.
type StopBits uint8

const (
	OneStopBit StopBits = iota
	// TwoStopBits selects 2 stop bits, or 1.5 with 5-bit words.
	TwoStopBits
)

// Mode carries the requested serial parameters for one channel.
type Mode struct {
	BaudRate uint32
	DataBits uint8 // 5..8; 0 means 8
	StopBits StopBits
	Parity   Parity

	// RTSCTS enables hardware auto flow control.
	RTSCTS bool

	// CheckParity reports parity and frame errors to the sink.
	CheckParity bool
	// ReportBreaks reports break conditions to the sink.
	ReportBreaks bool
	// IgnoreBreaks drains break bytes without forwarding them.
	IgnoreBreaks bool
	// RxDisabled drains error bytes without forwarding any of them.
	RxDisabled bool
}

// lcr packs the word format into a line-control byte.
func (m Mode) lcr() (uint8, error) {
	var v uint8
	switch m.DataBits {
	case 5:
		v = lcrWordLen5
	case 6:
		v = lcrWordLen6
	case 7:
		v = lcrWordLen7
	case 0, 8:
		v = lcrWordLen8
	default:
		return 0, errcode.Wrap(errcode.InvalidParams, "data bits must be 5..8", nil)
	}
	if m.StopBits == TwoStopBits {
		v |= lcrStop2
	}
	switch m.Parity {
	case ParityNone:
	case ParityOdd:
		v |= lcrParityEn | lcrParityOdd
	case ParityEven:
		v |= lcrParityEn | lcrParityEven
	case ParityMark:
		v |= lcrParityEn | lcrParityMark
	case ParitySpace:
		v |= lcrParityEn | lcrParitySpace
	default:
		return 0, errcode.Wrap(errcode.InvalidParams, "unknown parity", nil)
	}
	return v, nil
}

// masks derives the read-status and ignore-status masks: which receive
// error conditions are reported and which are silently drained.
func (m Mode) masks() (read, ignore uint8) {
	read = lsrOE
	if m.CheckParity {
		read |= lsrPE | lsrFE
	}
	if m.ReportBreaks {
		read |= lsrBI
	}
	if m.IgnoreBreaks {
		ignore |= lsrBI
	}
	if m.RxDisabled {
		ignore |= lsrBrkError
	}
	return read, ignore
}

// SetMode applies line format, status masks, flow control and baud rate in
// one channel-lock critical section. It returns the baud rate actually
// achieved by the divisor.
func (ch *Channel) SetMode(m Mode) (uint32, error) {
	lcr, err := m.lcr()
	if err != nil {
		return 0, err
	}
	c := ch.ctl

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.open.Load() {
		return 0, errcode.Wrap(errcode.PortClosed, "set mode", nil)
	}

	read, ignore := m.masks()
	ch.readMask.Store(uint32(read))
	ch.ignoreMask.Store(uint32(ignore))

	if err := c.bus.write(ch.index, regLCR, lcr); err != nil {
		return 0, err
	}

	if m.RTSCTS {
		if err := c.bus.update(ch.index, regMCR, mcrAFE|mcrRTS, mcrAFE|mcrRTS); err != nil {
			return 0, err
		}
		ch.mcrForce |= mcrAFE | mcrRTS
		// Hardware CTS is not re-sampled here; assume it is valid so
		// writers are not left stalled waiting for the first MSI.
		if ch.sink != nil {
			ch.sink.CTSChange(true)
		}
	} else {
		if err := c.bus.update(ch.index, regMCR, mcrAFE, 0); err != nil {
			return 0, err
		}
		ch.mcrForce &^= mcrAFE | mcrRTS
	}

	baud := clampBaud(c.clockHz, m.BaudRate)
	return ch.setBaudLocked(baud)
}

// SetBreak drives the TX break condition.
func (ch *Channel) SetBreak(on bool) error {
	var v uint8
	if on {
		v = lcrTxBreak
	}
	return ch.ctl.bus.update(ch.index, regLCR, lcrTxBreak, v)
}
