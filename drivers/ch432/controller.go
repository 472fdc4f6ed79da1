// Package ch432 drives the WCH CH432 SPI-to-dual-UART bridge chip.
//
// The chip exposes two 16550-style UARTs behind a one-byte-command SPI
// register protocol and a single active-low interrupt line. The driver
// splits into a register bus (exclusive-lock SPI framing), per-channel
// engines for RX drain, TX burst and modem control, and an interrupt
// dispatcher that routes coalesced events until the chip reports no
// pending work. The host tty layer attaches through the Port and LineSink
// interfaces; deferred operations (begin/stop transmit, stop receive,
// modem changes) run on a single task goroutine per controller.
package ch432

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"

	"github.com/SoldierJazz/ch432ser-linux/errcode"
	"github.com/SoldierJazz/ch432ser-linux/internal/workq"
)

// The 22.1184 MHz crystal is doubled internally before it reaches the
// baud generators (datasheet ch. 5.2); ClockHz is the effective rate.
const defaultClockHz = 2 * 22118400

// Config configures a Controller. Conn is required; everything else has a
// usable zero-value default.
type Config struct {
	// Conn is the SPI connection to the chip. Mode 3, up to 20 MHz.
	Conn drivers.SPI

	// Ports is the chip variant's UART count. Default 2.
	Ports int

	// ClockHz is the effective UART reference clock. Default 44.2368 MHz
	// (doubled crystal).
	ClockHz uint32

	// Logf receives best-effort fault and diagnostic messages. Nil means
	// silent.
	Logf func(format string, args ...any)

	// TaskQueueDepth bounds the deferred-work queue. Default 16.
	TaskQueueDepth int
}

// Controller owns the register bus and the fixed set of channels. Create
// one per chip with New, call Start, then hand the interrupt line to
// ServeIRQ.
type Controller struct {
	bus     *regBus
	clockHz uint32
	log     func(format string, args ...any)
	tasks   *workq.Runner
	ports   []*Channel
	started atomic.Bool

	// scratch is the burst staging buffer. Only the dispatch goroutine
	// touches it (TxEngine runs nowhere else).
	scratch [FIFOSize]byte
}

// Channel is one UART line of the chip. It implements Port.
type Channel struct {
	ctl   *Controller
	index uint8

	// mu serializes the logical register sequences on this channel:
	// divisor programming, TX draining, line/flow-control updates and the
	// RS-485 turnaround check. It is held across the bounded FIFO-reset
	// and RS-485 sleeps.
	mu   sync.Mutex
	sink LineSink
	open atomic.Bool

	msr        atomic.Uint32 // cached modem status, event-driven
	readMask   atomic.Uint32 // error bits reported to the sink
	ignoreMask atomic.Uint32 // error bits silently dropped

	// Guarded by mu.
	xmit      txRing
	xChar     byte
	txStopped bool
	mcrForce  uint8 // bits re-applied on every MCR rewrite
	lines     ControlLines
	rs485     RS485Config

	// Deferred-task coalescing, one flag per kind.
	txPending     atomic.Bool
	mdPending     atomic.Bool
	stopTxPending atomic.Bool
	stopRxPending atomic.Bool

	cRx      atomic.Uint32
	cTx      atomic.Uint32
	cOverrun atomic.Uint32
	cParity  atomic.Uint32
	cFrame   atomic.Uint32
	cBreak   atomic.Uint32

	// RX batch staging, dispatch goroutine only.
	rxData  []byte
	rxFlags []Flag
}

var _ Port = (*Channel)(nil)

// New initializes the controller and quiesces the chip: interrupts off,
// modem control cleared, modem status snapshotted, channel 1 switched to
// the doubled clock, then powered down until Startup.
func New(cfg Config) (*Controller, error) {
	if cfg.Conn == nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "nil SPI connection", nil)
	}
	if cfg.Ports <= 0 {
		cfg.Ports = 2
	}
	if cfg.ClockHz == 0 {
		cfg.ClockHz = defaultClockHz
	}
	if cfg.TaskQueueDepth <= 0 {
		cfg.TaskQueueDepth = 16
	}

	c := &Controller{
		bus:     newRegBus(cfg.Conn),
		clockHz: cfg.ClockHz,
		log:     cfg.Logf,
		tasks:   workq.New(cfg.TaskQueueDepth),
	}
	c.ports = make([]*Channel, cfg.Ports)
	for i := range c.ports {
		ch := &Channel{ctl: c, index: uint8(i)}
		if err := c.bus.write(ch.index, regIER, 0); err != nil {
			return nil, err
		}
		if err := c.bus.write(ch.index, regMCR, 0); err != nil {
			return nil, err
		}
		msr, err := c.bus.read(ch.index, regMSR)
		if err != nil {
			return nil, err
		}
		ch.msr.Store(uint32(msr))
		c.ports[i] = ch
	}
	if len(c.ports) >= 2 {
		// Clock-x2 lives in channel 1's enhanced IER.
		if err := c.bus.update(1, regIER, ierCK2X, ierCK2X); err != nil {
			return nil, err
		}
	}
	if err := c.power(false); err != nil {
		return nil, err
	}
	return c, nil
}

// Start launches the deferred-task runner. It must be called before any
// channel is started; the runner stops when ctx is cancelled or Close is
// called.
func (c *Controller) Start(ctx context.Context) {
	if c.started.Swap(true) {
		return
	}
	c.tasks.Start(ctx)
}

// NumPorts returns the channel count fixed at construction.
func (c *Controller) NumPorts() int { return len(c.ports) }

// Port returns channel i.
func (c *Controller) Port(i int) (*Channel, error) {
	if i < 0 || i >= len(c.ports) {
		return nil, errcode.Wrap(errcode.InvalidParams, "channel index out of range", nil)
	}
	return c.ports[i], nil
}

// Close shuts down every channel, then stops the task runner. The first
// teardown error is returned; teardown continues regardless.
func (c *Controller) Close() error {
	var first error
	for _, ch := range c.ports {
		if err := ch.Shutdown(); err != nil && first == nil {
			first = err
		}
	}
	if c.started.Load() {
		c.tasks.Close()
	}
	return first
}

func (c *Controller) logf(format string, args ...any) {
	if c.log != nil {
		c.log(format, args...)
	}
}

// power toggles the sleep bit. The bit is addressed through channel 0's
// IER regardless of which channel asked; the chip powers as a unit.
func (c *Controller) power(on bool) error {
	val := uint8(ierSleep)
	if on {
		val = 0
	}
	return c.bus.update(0, regIER, ierSleep, val)
}

// Startup brings the channel up: power on, FIFO reset and enable with the
// high RX trigger level, 8N1 line format, receive/line-status/modem
// interrupts enabled, and OUT2 asserted to gate the chip's interrupt
// output. The sink receives all subsequent RX and wakeup traffic.
func (ch *Channel) Startup(sink LineSink) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.open.Load() {
		return nil
	}
	c := ch.ctl

	ch.sink = sink
	ch.xmit.clear()
	ch.xChar = 0
	ch.txStopped = false

	if err := c.power(true); err != nil {
		return err
	}
	if err := c.bus.write(ch.index, regFCR, fcrRXReset|fcrTXReset); err != nil {
		return err
	}
	time.Sleep(5 * time.Microsecond) // FIFO reset settle
	if err := c.bus.write(ch.index, regFCR, fcrRXLvlH|fcrFIFOEn); err != nil {
		return err
	}
	if err := c.bus.write(ch.index, regLCR, lcrWordLen8); err != nil {
		return err
	}
	if err := c.bus.update(ch.index, regIER, ierRDI|ierRLSI|ierMSI, ierRDI|ierRLSI|ierMSI); err != nil {
		return err
	}
	if err := c.bus.write(ch.index, regMCR, mcrOUT2); err != nil {
		return err
	}
	ch.mcrForce = mcrOUT2

	ch.open.Store(true)
	return nil
}

// Shutdown quiesces the channel: interrupts are disabled first so nothing
// new can be scheduled, in-flight deferred tasks are awaited, then modem
// control is cleared and the chip powered down. Idempotent.
func (ch *Channel) Shutdown() error {
	if !ch.open.Swap(false) {
		return nil
	}
	c := ch.ctl

	if c.log != nil {
		mcr, _ := c.bus.read(ch.index, regMCR)
		lsr, _ := c.bus.read(ch.index, regLSR)
		iir, _ := c.bus.read(ch.index, regIIR)
		c.logf("ch432: port %d shutdown MCR=%#02x LSR=%#02x IIR=%#02x", ch.index, mcr, lsr, iir)
	}

	var first error
	// Only channel 0 clears IER here, exactly as observed on the chip; the
	// enable appears to be shared. Pending datasheet verification.
	if ch.index == 0 {
		first = c.bus.write(ch.index, regIER, 0)
	}

	if c.started.Load() {
		c.tasks.Drain()
	}

	ch.mu.Lock()
	if err := c.bus.write(ch.index, regMCR, 0); err != nil && first == nil {
		first = err
	}
	ch.mcrForce = 0
	ch.mu.Unlock()

	if err := c.power(false); err != nil && first == nil {
		first = err
	}
	return first
}

// SelfTest probes the scratchpad register with complementary patterns.
func (ch *Channel) SelfTest() error {
	c := ch.ctl

	// Clear any latched state first.
	if _, err := c.bus.read(ch.index, regIIR); err != nil {
		return err
	}
	if _, err := c.bus.read(ch.index, regLSR); err != nil {
		return err
	}

	for _, pat := range []uint8{0x55, 0xAA} {
		if err := c.bus.write(ch.index, regSPR, pat); err != nil {
			return err
		}
		got, err := c.bus.read(ch.index, regSPR)
		if err != nil {
			return err
		}
		if got != pat {
			return errcode.Wrap(errcode.SelftestFailed, "scratchpad mismatch", nil)
		}
	}
	return nil
}

// Write queues bytes for transmission and returns the accepted count. It
// does not start the transmitter; call StartTx once data is queued.
func (ch *Channel) Write(p []byte) int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.open.Load() {
		return 0
	}
	return ch.xmit.write(p)
}

// Buffered returns the number of queued, unsent bytes.
func (ch *Channel) Buffered() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.xmit.pending()
}

// SendXChar stages a single out-of-band flow-control byte that jumps the
// queue on the next transmit pass. Call StartTx to push it out.
func (ch *Channel) SendXChar(b byte) {
	ch.mu.Lock()
	ch.xChar = b
	ch.mu.Unlock()
}

// PauseTx marks the port flow-control-stopped; the transmit engine sends
// nothing while set.
func (ch *Channel) PauseTx(stopped bool) {
	ch.mu.Lock()
	ch.txStopped = stopped
	ch.mu.Unlock()
}

// TxEmpty reports whether the TX holding register has drained.
func (ch *Channel) TxEmpty() (bool, error) {
	lsr, err := ch.ctl.bus.read(ch.index, regLSR)
	if err != nil {
		return false, err
	}
	return lsr&lsrTHRE != 0, nil
}

// Counters returns a snapshot of the channel's event counters.
func (ch *Channel) Counters() Counters {
	return Counters{
		Rx:      ch.cRx.Load(),
		Tx:      ch.cTx.Load(),
		Overrun: ch.cOverrun.Load(),
		Parity:  ch.cParity.Load(),
		Frame:   ch.cFrame.Load(),
		Break:   ch.cBreak.Load(),
	}
}

// schedule queues one deferred task of a given kind, coalescing repeats
// while one is already pending. Tasks are dropped once the channel is
// closed or when the queue overflows (logged).
func (ch *Channel) schedule(flag *atomic.Bool, fn func()) {
	if !ch.open.Load() {
		return
	}
	if !flag.CompareAndSwap(false, true) {
		return
	}
	ok := ch.ctl.tasks.Submit(func() {
		flag.Store(false)
		if !ch.open.Load() {
			return
		}
		fn()
	})
	if !ok {
		flag.Store(false)
		ch.ctl.logf("ch432: port %d task queue full, work dropped", ch.index)
	}
}
