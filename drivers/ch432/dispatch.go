package ch432

import "context"

// InterruptDispatcher: one signal assertion may stand for several
// coalesced events, so each sweep re-reads the interrupt identification
// register per channel until it reports no pending work.

// ServeIRQ consumes interrupt notifications and runs the dispatch loop on
// its own goroutine. Each value received on events triggers one full sweep
// of every channel. The goroutine exits when ctx is cancelled or events is
// closed.
func (c *Controller) ServeIRQ(ctx context.Context, events <-chan struct{}) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				c.sweep()
			}
		}
	}()
}

func (c *Controller) sweep() {
	for _, ch := range c.ports {
		c.channelIRQ(ch)
	}
}

// channelIRQ services one channel until its IIR reports no interrupt
// pending. Unrecognized source codes terminate the pass for this channel
// instead of crashing; everything else is routed to the matching engine.
func (c *Controller) channelIRQ(ch *Channel) {
	for ch.open.Load() {
		lsr, err := c.bus.read(ch.index, regLSR)
		if err != nil {
			c.logf("ch432: port %d LSR read: %v", ch.index, err)
		}
		// Advisory only; the drain loop re-derives overrun from the
		// authoritative per-byte status.
		if lsr&lsrOE != 0 {
			c.logf("ch432: port %d rx overrun, lsr=%#02x", ch.index, lsr)
		}

		iir, err := c.bus.read(ch.index, regIIR)
		if err != nil {
			c.logf("ch432: port %d IIR read: %v", ch.index, err)
		}
		if iir&iirNoInt != 0 {
			return
		}

		switch iir & iirIDMask {
		case srcRDI, srcRLS, srcRTO:
			c.handleRx(ch, iir&iirIDMask)
		case srcMSI:
			msr, err := c.bus.read(ch.index, regMSR)
			if err != nil {
				c.logf("ch432: port %d MSR read: %v", ch.index, err)
			}
			ch.setMSR(msr)
		case srcTHRI:
			ch.mu.Lock()
			c.handleTx(ch)
			ch.mu.Unlock()
		default:
			c.logf("ch432: port %d unexpected interrupt source %#02x", ch.index, iir&iirIDMask)
			return
		}
	}
}
