package ch432

import "github.com/SoldierJazz/ch432ser-linux/x/mathx"

// TxEngine: drains the outgoing ring into the TX FIFO in bounded bursts.
// Called from the dispatch goroutine with the channel mutex held; the
// FIFO-space interrupt is the only thing that re-invokes it.

func (c *Controller) handleTx(ch *Channel) {
	// Out-of-band flow-control byte jumps the queue.
	if ch.xChar != 0 {
		if err := c.bus.write(ch.index, regTHR, ch.xChar); err != nil {
			c.logf("ch432: port %d x-char write: %v", ch.index, err)
		}
		ch.cTx.Add(1)
		ch.xChar = 0
		return
	}

	if ch.xmit.empty() || ch.txStopped {
		if err := c.bus.update(ch.index, regIER, ierTHRI, 0); err != nil {
			c.logf("ch432: port %d THRI disable: %v", ch.index, err)
		}
		return
	}

	toSend := mathx.Min(ch.xmit.pending(), FIFOSize)
	n := ch.xmit.popInto(c.scratch[:toSend])
	if n > 0 {
		if err := c.bus.burstWrite(ch.index, c.scratch[:n]); err != nil {
			c.logf("ch432: port %d fifo write: %v", ch.index, err)
		}
		ch.cTx.Add(uint32(n))
	}

	if ch.xmit.pending() < wakeupChars && ch.sink != nil {
		ch.sink.WriteWakeup()
	}
}
