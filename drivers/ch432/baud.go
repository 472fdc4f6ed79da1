package ch432

import (
	"github.com/SoldierJazz/ch432ser-linux/errcode"
	"github.com/SoldierJazz/ch432ser-linux/x/mathx"
)

// computeDivisor maps (reference clock, target baud) to the 16-bit divisor
// and the baud rate the divisor actually yields. The divisor is
// clock/16/baud truncated and must land in 1..65535.
func computeDivisor(clockHz, baud uint32) (uint16, uint32, error) {
	if clockHz == 0 || baud == 0 {
		return 0, 0, errcode.Wrap(errcode.InvalidParams, "zero clock or baud", nil)
	}
	div := clockHz / 16 / baud
	if div == 0 {
		return 0, 0, errcode.Wrap(errcode.InvalidParams, "baud above clock/16", nil)
	}
	if div > 0xffff {
		return 0, 0, errcode.Wrap(errcode.InvalidParams, "baud below divisor range", nil)
	}
	actual := mathx.RoundDiv(clockHz/16, div)
	return uint16(div), actual, nil
}

// clampBaud limits a request to the rates the baud generator can express;
// the upper bound reflects the chip's clock-multiplier headroom. The lower
// bound rounds up so the clamped rate still fits a 16-bit divisor.
func clampBaud(clockHz, baud uint32) uint32 {
	return mathx.Clamp(baud, mathx.CeilDiv(clockHz/16, 0xffff), clockHz/16*24)
}

// setBaudLocked programs the divisor latch: save LCR, switch to
// divisor-latch access, write high then low divisor byte, restore LCR.
// Caller holds the channel mutex so no other logical sequence interleaves;
// the four bus transactions themselves serialize on the bus lock.
func (ch *Channel) setBaudLocked(baud uint32) (uint32, error) {
	c := ch.ctl
	div, actual, err := computeDivisor(c.clockHz, baud)
	if err != nil {
		return 0, err
	}

	lcr, err := c.bus.read(ch.index, regLCR)
	if err != nil {
		return 0, err
	}
	if err := c.bus.write(ch.index, regLCR, lcrConfModeA); err != nil {
		return 0, err
	}
	werr := c.bus.write(ch.index, regDLH, uint8(div>>8))
	if err := c.bus.write(ch.index, regDLL, uint8(div)); err != nil && werr == nil {
		werr = err
	}
	// Always put LCR back, even if a divisor write faulted.
	if err := c.bus.write(ch.index, regLCR, lcr); err != nil && werr == nil {
		werr = err
	}
	if werr != nil {
		return 0, werr
	}
	return actual, nil
}
