//go:build linux

package main

import (
	"tinygo.org/x/drivers"

	"github.com/SoldierJazz/ch432ser-linux/internal/spidev"
)

func openBus(path string, mode uint8, speedHz uint32) (drivers.SPI, func() error, error) {
	d, err := spidev.Open(path, mode, speedHz)
	if err != nil {
		return nil, nil, err
	}
	return d, d.Close, nil
}
