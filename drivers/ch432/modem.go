package ch432

import "time"

// ModemEngine: modem-control writes (deferred), cached modem status, and
// the RS-485 direction turnaround around transmit completion.

// SetModemControl records the requested control lines and schedules the
// modem-change task that rewrites MCR. The channel's forced bits (flow
// control, OUT2 interrupt gate) are re-applied on every rewrite so an
// unrelated line change never drops them.
func (ch *Channel) SetModemControl(lines ControlLines) {
	ch.mu.Lock()
	ch.lines = lines
	ch.mu.Unlock()
	ch.schedule(&ch.mdPending, ch.modemWork)
}

func (ch *Channel) modemWork() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	var mcr uint8
	if ch.lines&LineRTS != 0 {
		mcr |= mcrRTS
	}
	if ch.lines&LineDTR != 0 {
		mcr |= mcrDTR
	}
	if ch.lines&LineOUT1 != 0 {
		mcr |= mcrOUT1
	}
	if ch.lines&LineOUT2 != 0 {
		mcr |= mcrOUT2
	}
	if ch.lines&LineLoop != 0 {
		mcr |= mcrLoop
	}
	mcr |= ch.mcrForce

	if err := ch.ctl.bus.write(ch.index, regMCR, mcr); err != nil {
		ch.ctl.logf("ch432: port %d MCR write: %v", ch.index, err)
	}
}

// ModemStatus returns the status byte cached at the last modem-status
// interrupt. No register read is issued; status is event-driven.
func (ch *Channel) ModemStatus() ModemStatus {
	return ModemStatus(ch.msr.Load())
}

func (ch *Channel) setMSR(v uint8) { ch.msr.Store(uint32(v)) }

// StartTx schedules the begin-transmit task: honor the RS-485 pre-send
// delay, then enable the FIFO-space interrupt so the dispatcher starts
// draining the queue.
func (ch *Channel) StartTx() {
	ch.schedule(&ch.txPending, ch.startTxWork)
}

func (ch *Channel) startTxWork() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.rs485.Enabled && ch.rs485.DelayBeforeSend > 0 {
		time.Sleep(ch.rs485.DelayBeforeSend)
	}
	if err := ch.ctl.bus.update(ch.index, regIER, ierTHRI, ierTHRI); err != nil {
		ch.ctl.logf("ch432: port %d THRI enable: %v", ch.index, err)
	}
}

// StopTx schedules the stop-transmit task.
func (ch *Channel) StopTx() {
	ch.schedule(&ch.stopTxPending, ch.stopTxWork)
}

// stopTxWork enters the transmit-disable path. In RS-485 mode the disable
// is deferred while the transmitter still holds data (the FIFO-space
// interrupt stays enabled, so the path is retried), and the post-send
// turnaround delay runs once the queue is empty.
func (ch *Channel) stopTxWork() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.rs485.Enabled {
		lsr, err := ch.ctl.bus.read(ch.index, regLSR)
		if err != nil {
			ch.ctl.logf("ch432: port %d LSR read: %v", ch.index, err)
		}
		if lsr&lsrTEMT == 0 {
			return
		}
		if ch.xmit.empty() && ch.rs485.DelayAfterSend > 0 {
			time.Sleep(ch.rs485.DelayAfterSend)
		}
	}

	if err := ch.ctl.bus.update(ch.index, regIER, ierTHRI, 0); err != nil {
		ch.ctl.logf("ch432: port %d THRI disable: %v", ch.index, err)
	}
}

// StopRx schedules the stop-receive task: mask data-ready reporting and
// disable the receive and line-status interrupts.
func (ch *Channel) StopRx() {
	ch.schedule(&ch.stopRxPending, ch.stopRxWork)
}

func (ch *Channel) stopRxWork() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.readMask.Store(ch.readMask.Load() &^ lsrDR)
	if err := ch.ctl.bus.update(ch.index, regIER, ierRDI, 0); err != nil {
		ch.ctl.logf("ch432: port %d RDI disable: %v", ch.index, err)
	}
	if err := ch.ctl.bus.update(ch.index, regIER, ierRLSI, 0); err != nil {
		ch.ctl.logf("ch432: port %d RLSI disable: %v", ch.index, err)
	}
}
