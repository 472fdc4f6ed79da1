package ch432

// DumpRegisters snapshots the channel's register file in both addressing
// modes: the divisor-latch pair with LCR[7] set, then the normal set. The
// only side effect is the LCR save/restore around the special read; the
// snapshot is also pushed through the log hook for field diagnostics.
func (ch *Channel) DumpRegisters() (DumpResult, error) {
	var out DumpResult
	c := ch.ctl

	ch.mu.Lock()
	defer ch.mu.Unlock()

	lcr, err := c.bus.read(ch.index, regLCR)
	if err != nil {
		return out, err
	}
	if err := c.bus.write(ch.index, regLCR, lcrConfModeA); err != nil {
		return out, err
	}
	var werr error
	for i := range out.Special {
		v, err := c.bus.read(ch.index, uint8(i))
		if err != nil && werr == nil {
			werr = err
		}
		out.Special[i] = v
	}
	if err := c.bus.update(ch.index, regLCR, lcrConfModeA, 0); err != nil && werr == nil {
		werr = err
	}
	for i := range out.Normal {
		v, err := c.bus.read(ch.index, uint8(i))
		if err != nil && werr == nil {
			werr = err
		}
		out.Normal[i] = v
	}
	// Put LCR back to the caller's mode.
	if err := c.bus.write(ch.index, regLCR, lcr); err != nil && werr == nil {
		werr = err
	}
	if werr != nil {
		return out, werr
	}

	c.logf("ch432: port %d dump special DLL=%#02x DLH=%#02x", ch.index, out.Special[0], out.Special[1])
	for i, v := range out.Normal {
		c.logf("ch432: port %d dump reg[%#02x]=%#02x", ch.index, i, v)
	}
	return out, nil
}
