package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SoldierJazz/ch432ser-linux/drivers/ch432"
)

var rootCmd = &cobra.Command{
	Use:   "ch432ctl",
	Short: "Control tool for SPI-attached CH432 dual UARTs",
	Long: `ch432ctl talks to a CH432 dual-UART bridge through a Linux spidev
character device. Settings can come from flags, CH432_* environment
variables, or a config file (--config).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("device", "d", "/dev/spidev0.0", "spidev device path")
	pf.Uint32("speed", 1000000, "SPI clock speed in Hz")
	pf.Uint8("spi-mode", 0, "SPI mode (0-3)")
	pf.Int("uarts", 2, "number of UART channels to attach")
	pf.BoolP("verbose", "v", false, "log driver activity to stderr")
	pf.String("config", "", "config file (default $HOME/.ch432ctl.yaml)")

	viper.BindPFlag("device", pf.Lookup("device"))
	viper.BindPFlag("speed", pf.Lookup("speed"))
	viper.BindPFlag("spi-mode", pf.Lookup("spi-mode"))
	viper.BindPFlag("uarts", pf.Lookup("uarts"))
	viper.BindPFlag("verbose", pf.Lookup("verbose"))

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if cfg, _ := rootCmd.PersistentFlags().GetString("config"); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".ch432ctl")
		}
	}
	viper.SetEnvPrefix("ch432")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "using config:", viper.ConfigFileUsed())
	}
}

// withController opens the SPI device, attaches the driver, and runs fn
// with a started controller. The interrupt line is emulated by a polling
// ticker; real deployments wire a GPIO edge to the same channel.
func withController(fn func(ctx context.Context, c *ch432.Controller) error) error {
	conn, closeConn, err := openBus(viper.GetString("device"), uint8(viper.GetUint32("spi-mode")), viper.GetUint32("speed"))
	if err != nil {
		return err
	}
	defer closeConn()

	cfg := ch432.Config{
		Conn:  conn,
		Ports: viper.GetInt("uarts"),
	}
	if viper.GetBool("verbose") {
		l := log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
		cfg.Logf = l.Printf
	}

	c, err := ch432.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	events := make(chan struct{}, 1)
	c.ServeIRQ(ctx, events)
	go func() {
		t := time.NewTicker(time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				select {
				case events <- struct{}{}:
				default:
				}
			}
		}
	}()

	return fn(ctx, c)
}

func portArg(c *ch432.Controller, arg string) (ch432.Port, error) {
	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil {
		return nil, fmt.Errorf("invalid port %q", arg)
	}
	p, err := c.Port(n)
	if err != nil {
		return nil, fmt.Errorf("port %d out of range (have %d)", n, c.NumPorts())
	}
	return p, nil
}
