package ch432

import (
	"testing"
	"time"

	"github.com/SoldierJazz/ch432ser-linux/errcode"
)

func TestSetModemControlAppliesLines(t *testing.T) {
	sim, c := newTestController(t)
	startRunner(t, c)
	ch, _ := startupPort(t, c, 0, Mode{})

	ch.SetModemControl(LineRTS | LineDTR)
	c.tasks.Drain()

	want := uint8(mcrRTS | mcrDTR | mcrOUT2) // OUT2 is forced while open
	if sim.ch[0].mcr != want {
		t.Fatalf("mcr = %#02x, want %#02x", sim.ch[0].mcr, want)
	}

	// Dropping all lines must not drop the forced bits.
	ch.SetModemControl(0)
	c.tasks.Drain()
	if sim.ch[0].mcr != mcrOUT2 {
		t.Fatalf("mcr = %#02x, want %#02x", sim.ch[0].mcr, mcrOUT2)
	}
}

func TestForcedFlowControlBitsSurviveRewrite(t *testing.T) {
	sim, c := newTestController(t)
	startRunner(t, c)
	ch, sink := startupPort(t, c, 0, Mode{RTSCTS: true})

	// Flow-control enable synthesizes an asserted CTS.
	sink.mu.Lock()
	cts := append([]bool(nil), sink.cts...)
	sink.mu.Unlock()
	if len(cts) != 1 || !cts[0] {
		t.Fatalf("cts changes = %v, want one asserted", cts)
	}

	ch.SetModemControl(LineDTR)
	c.tasks.Drain()

	want := uint8(mcrDTR | mcrOUT2 | mcrAFE | mcrRTS)
	if sim.ch[0].mcr != want {
		t.Fatalf("mcr = %#02x, want %#02x", sim.ch[0].mcr, want)
	}
}

func TestModemStatusIsCachedFromInterrupt(t *testing.T) {
	sim, c := newTestController(t)
	ch, _ := startupPort(t, c, 0, Mode{})

	sim.mu.Lock()
	sim.ch[0].msr = msrCD | msrDSR | msrCTS | msrDCTS
	sim.ch[0].msiPending = true
	sim.mu.Unlock()
	c.sweep()

	s := ch.ModemStatus()
	if !s.CTS() || !s.DSR() || !s.CD() || s.RI() {
		t.Fatalf("status = %#02x, want CTS+DSR+CD asserted, RI clear", uint8(s))
	}

	// No further interrupt: the cache must not change even if the wire does.
	sim.mu.Lock()
	sim.ch[0].msr = 0
	sim.mu.Unlock()
	if got := ch.ModemStatus(); got != s {
		t.Fatalf("status re-read hit the bus: %#02x", uint8(got))
	}
}

func TestStopTxImmediateWithoutRS485(t *testing.T) {
	sim, c := newTestController(t)
	startRunner(t, c)
	ch, _ := startupPort(t, c, 0, Mode{})

	ch.StartTx()
	c.tasks.Drain()
	if sim.ch[0].ier&ierTHRI == 0 {
		t.Fatal("THRI not enabled by StartTx")
	}

	// Transmitter still busy, but plain stop does not wait for it.
	sim.mu.Lock()
	sim.ch[0].txBusy = true
	sim.mu.Unlock()
	ch.StopTx()
	c.tasks.Drain()
	if sim.ch[0].ier&ierTHRI != 0 {
		t.Fatalf("THRI still enabled, ier=%#02x", sim.ch[0].ier)
	}
}

func TestStopTxRS485DeferredUntilEmpty(t *testing.T) {
	sim, c := newTestController(t)
	startRunner(t, c)
	ch, _ := startupPort(t, c, 0, Mode{})
	if err := ch.SetRS485(RS485Config{Enabled: true}); err != nil {
		t.Fatalf("SetRS485: %v", err)
	}

	ch.StartTx()
	c.tasks.Drain()

	// Shift register still draining: the stop must keep THRI enabled so the
	// turnaround is retried.
	sim.mu.Lock()
	sim.ch[0].txBusy = true
	sim.mu.Unlock()
	ch.StopTx()
	c.tasks.Drain()
	if sim.ch[0].ier&ierTHRI == 0 {
		t.Fatal("THRI disabled while transmitter busy in RS-485 mode")
	}

	sim.mu.Lock()
	sim.ch[0].txBusy = false
	sim.mu.Unlock()
	ch.StopTx()
	c.tasks.Drain()
	if sim.ch[0].ier&ierTHRI != 0 {
		t.Fatalf("THRI still enabled after drain, ier=%#02x", sim.ch[0].ier)
	}
}

func TestStopRxDisablesReceive(t *testing.T) {
	sim, c := newTestController(t)
	startRunner(t, c)
	ch, sink := startupPort(t, c, 0, Mode{})

	ch.StopRx()
	c.tasks.Drain()

	if sim.ch[0].ier&(ierRDI|ierRLSI) != 0 {
		t.Fatalf("receive interrupts still enabled, ier=%#02x", sim.ch[0].ier)
	}

	sim.inject(0, 'a', 0)
	c.sweep()
	if len(sink.data) != 0 {
		t.Fatalf("data = %q after StopRx", sink.data)
	}
}

func TestSetRS485Validation(t *testing.T) {
	_, c := newTestController(t)
	ch := mustPort(t, c, 0)

	err := ch.SetRS485(RS485Config{Enabled: true, DelayBeforeSend: -time.Millisecond})
	if !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("negative delay: err = %v, want InvalidParams", err)
	}
	err = ch.SetRS485(RS485Config{Enabled: true, DelayAfterSend: 2 * time.Second})
	if !errcode.Is(err, errcode.InvalidParams) {
		t.Fatalf("oversized delay: err = %v, want InvalidParams", err)
	}

	// Disabled configs have their delays normalized away.
	if err := ch.SetRS485(RS485Config{DelayBeforeSend: time.Millisecond}); err != nil {
		t.Fatalf("SetRS485: %v", err)
	}
	if got := ch.RS485(); got.Enabled || got.DelayBeforeSend != 0 {
		t.Fatalf("RS485 = %+v, want disabled with zero delays", got)
	}

	cfg := RS485Config{Enabled: true, DelayBeforeSend: time.Millisecond, DelayAfterSend: time.Second}
	if err := ch.SetRS485(cfg); err != nil {
		t.Fatalf("SetRS485: %v", err)
	}
	if got := ch.RS485(); got != cfg {
		t.Fatalf("RS485 = %+v, want %+v", got, cfg)
	}
}
