//go:build !linux

package main

import (
	"errors"

	"tinygo.org/x/drivers"
)

func openBus(path string, mode uint8, speedHz uint32) (drivers.SPI, func() error, error) {
	return nil, nil, errors.New("spidev access requires linux")
}
