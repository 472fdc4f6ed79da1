package ch432

import "time"

// Flag classifies one received byte for the line-discipline collaborator.
type Flag uint8

const (
	FlagNormal Flag = iota
	FlagBreak
	FlagParity
	FlagFrame
)

func (f Flag) String() string {
	switch f {
	case FlagBreak:
		return "break"
	case FlagParity:
		return "parity"
	case FlagFrame:
		return "frame"
	default:
		return "normal"
	}
}

// LineSink is the line-discipline collaborator fed by the driver. All
// callbacks are invoked from driver goroutines and must not call back into
// the same channel's blocking operations.
type LineSink interface {
	// ReceiveChars delivers one drained RX batch. flags[i] classifies
	// data[i]. The slices are only valid for the duration of the call.
	ReceiveChars(data []byte, flags []Flag)

	// WriteWakeup signals that the outgoing queue dropped below the
	// low-water mark and writers may push more data.
	WriteWakeup()

	// CTSChange reports a clear-to-send transition observed (or, on
	// flow-control enable, synthesized) by the driver.
	CTSChange(asserted bool)
}

// ControlLines is an abstract modem-control request.
type ControlLines uint8

const (
	LineRTS ControlLines = 1 << iota
	LineDTR
	LineOUT1
	LineOUT2
	LineLoop // loopback test mode
)

// ModemStatus is the raw modem-status byte as last delivered by a
// modem-status interrupt.
type ModemStatus uint8

func (m ModemStatus) CTS() bool { return m&msrCTS != 0 }
func (m ModemStatus) DSR() bool { return m&msrDSR != 0 }
func (m ModemStatus) RI() bool  { return m&msrRI != 0 }
func (m ModemStatus) CD() bool  { return m&msrCD != 0 }

// Counters is a snapshot of a channel's event counters.
type Counters struct {
	Rx      uint32 // bytes drained from the RX FIFO
	Tx      uint32 // bytes pushed to the TX FIFO
	Overrun uint32
	Parity  uint32
	Frame   uint32
	Break   uint32
}

// RS485Config controls half-duplex direction turnaround for one channel.
type RS485Config struct {
	Enabled bool
	// DelayBeforeSend is honored before the first burst of a transmit
	// session; DelayAfterSend after the transmitter drains. Both run with
	// the channel lock held and are bounded by validation.
	DelayBeforeSend time.Duration
	DelayAfterSend  time.Duration
}

// DumpResult holds a read-only register snapshot in both addressing modes.
type DumpResult struct {
	Special [2]uint8 // DLL, DLH (LCR divisor-latch-access set)
	Normal  [8]uint8 // RHR..SPR (normal addressing)
}

// Port is the per-channel operation surface exposed to the host serial
// layer. *Channel implements it.
type Port interface {
	Startup(sink LineSink) error
	Shutdown() error

	SetMode(m Mode) (actualBaud uint32, err error)
	SetBreak(on bool) error

	Write(p []byte) int
	Buffered() int
	SendXChar(b byte)
	StartTx()
	StopTx()
	StopRx()
	PauseTx(stopped bool)
	TxEmpty() (bool, error)

	SetModemControl(lines ControlLines)
	ModemStatus() ModemStatus

	RS485() RS485Config
	SetRS485(cfg RS485Config) error

	SelfTest() error
	DumpRegisters() (DumpResult, error)
	Counters() Counters
}
