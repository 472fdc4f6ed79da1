package ch432

import (
	"time"

	"github.com/SoldierJazz/ch432ser-linux/errcode"
)

// Turnaround delays run with the channel mutex held, so they are capped.
const maxRS485Delay = time.Second

// RS485 returns the channel's current turnaround configuration.
func (ch *Channel) RS485() RS485Config {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.rs485
}

// SetRS485 replaces the turnaround configuration. Malformed payloads are
// rejected synchronously; nothing is written to the chip, direction
// switching is timing-only on this part.
func (ch *Channel) SetRS485(cfg RS485Config) error {
	if cfg.DelayBeforeSend < 0 || cfg.DelayAfterSend < 0 {
		return errcode.Wrap(errcode.InvalidParams, "negative RS-485 delay", nil)
	}
	if cfg.DelayBeforeSend > maxRS485Delay || cfg.DelayAfterSend > maxRS485Delay {
		return errcode.Wrap(errcode.InvalidParams, "RS-485 delay above 1s", nil)
	}
	if !cfg.Enabled {
		cfg.DelayBeforeSend = 0
		cfg.DelayAfterSend = 0
	}
	ch.mu.Lock()
	ch.rs485 = cfg
	ch.mu.Unlock()
	return nil
}
