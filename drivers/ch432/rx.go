package ch432

// RxEngine: drains the receive FIFO on interrupt, classifies per-byte
// errors, and flushes the batch to the line-discipline sink. Runs on the
// dispatch goroutine only. Bus faults are logged and the drain proceeds
// with whatever value came back; the sink's error-flag channel absorbs the
// occasional corrupt byte.

// drSpinLimit bounds the pre-drain wait for the data-ready bit. The
// hardware raised a receive interrupt, so DR is expected on the first
// read; the cap keeps a wedged chip from stalling both channels.
const drSpinLimit = 1024

func (c *Controller) handleRx(ch *Channel, src uint8) {
	data := ch.rxData[:0]
	flags := ch.rxFlags[:0]

	var lsr uint8
	errByteOnly := false
	if src == srcRLS {
		v, err := c.bus.read(ch.index, regLSR)
		if err != nil {
			c.logf("ch432: port %d LSR read: %v", ch.index, err)
		}
		lsr = v
		// Only take the single-byte path while an error byte is still in
		// the FIFO; otherwise treat as a plain data-ready event.
		errByteOnly = lsr&lsrFIFOErr != 0
	}

	if errByteOnly {
		b, err := c.bus.read(ch.index, regRHR)
		if err != nil {
			c.logf("ch432: port %d RHR read: %v", ch.index, err)
		}
		data, flags = ch.classify(lsr, b, data, flags)
	} else {
		spins := 0
		for {
			v, err := c.bus.read(ch.index, regLSR)
			if err != nil {
				c.logf("ch432: port %d LSR read: %v", ch.index, err)
			}
			lsr = v
			if lsr&lsrDR != 0 {
				break
			}
			spins++
			if spins >= drSpinLimit {
				c.logf("ch432: port %d receive interrupt with no data ready", ch.index)
				return
			}
		}
		for lsr&lsrDR != 0 {
			b, err := c.bus.read(ch.index, regRHR)
			if err != nil {
				c.logf("ch432: port %d RHR read: %v", ch.index, err)
			}
			data, flags = ch.classify(lsr, b, data, flags)

			v, err := c.bus.read(ch.index, regLSR)
			if err != nil {
				c.logf("ch432: port %d LSR read: %v", ch.index, err)
			}
			lsr = v
		}
	}

	ch.rxData = data[:0]
	ch.rxFlags = flags[:0]
	if len(data) > 0 {
		if sink := ch.lineSink(); sink != nil {
			sink.ReceiveChars(data, flags)
		}
	}
}

// lineSink reads the bound sink under the channel mutex; Startup rebinds
// it there.
func (ch *Channel) lineSink() LineSink {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.sink
}

// classify counts one drained byte, derives its report flag, and appends
// it to the batch unless the ignore mask swallows it.
func (ch *Channel) classify(lsr, b uint8, data []byte, flags []Flag) ([]byte, []Flag) {
	flag := FlagNormal
	ch.cRx.Add(1)

	if lsr&lsrBrkError != 0 {
		if lsr&lsrBI != 0 {
			// The chip may assert frame/parity together with break;
			// break wins and the others are spurious.
			lsr &^= lsrFE | lsrPE
			ch.cBreak.Add(1)
		} else if lsr&lsrPE != 0 {
			ch.cParity.Add(1)
		} else if lsr&lsrFE != 0 {
			ch.cFrame.Add(1)
		}
		// Overrun reports lost bytes, independent of what this byte is.
		if lsr&lsrOE != 0 {
			ch.cOverrun.Add(1)
		}

		lsr &= uint8(ch.readMask.Load())
		if lsr&lsrBI != 0 {
			flag = FlagBreak
		} else if lsr&lsrPE != 0 {
			flag = FlagParity
		} else if lsr&lsrFE != 0 {
			flag = FlagFrame
		}

		if lsr&lsrOE != 0 {
			ch.ctl.logf("ch432: port %d overrun detected", ch.index)
		}

		if lsr&uint8(ch.ignoreMask.Load()) != 0 {
			return data, flags
		}
	}

	return append(data, b), append(flags, flag)
}
