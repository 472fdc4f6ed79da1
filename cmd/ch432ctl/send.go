package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SoldierJazz/ch432ser-linux/drivers/ch432"
)

var sendCmd = &cobra.Command{
	Use:   "send <port> [data]",
	Short: "Send data out of a channel",
	Long: `Send data out of a channel and wait for the transmitter to drain.
Data comes from the argument or, when omitted, from stdin.

Example usage:
  ch432ctl send 0 "hello" --baud 9600
  echo -n hello | ch432ctl send 1
  ch432ctl send 0 48656c6c6f --hex`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		baud, _ := cmd.Flags().GetUint32("baud")
		hexMode, _ := cmd.Flags().GetBool("hex")
		newline, _ := cmd.Flags().GetBool("newline")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		rs485, _ := cmd.Flags().GetBool("rs485")

		var payload []byte
		if len(args) == 2 {
			payload = []byte(args[1])
		} else {
			in, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			payload = in
		}
		if hexMode {
			clean := strings.NewReplacer(" ", "", "0x", "", "0X", "").Replace(string(payload))
			b, err := hex.DecodeString(clean)
			if err != nil {
				return fmt.Errorf("invalid hex data: %w", err)
			}
			payload = b
		} else if newline {
			payload = append(payload, '\n')
		}

		return withController(func(ctx context.Context, c *ch432.Controller) error {
			p, err := portArg(c, args[0])
			if err != nil {
				return err
			}

			sink := &stdoutSink{wakeup: make(chan struct{}, 1)}
			if err := p.Startup(sink); err != nil {
				return err
			}
			defer p.Shutdown()

			if rs485 {
				cfg := ch432.RS485Config{
					Enabled:         true,
					DelayBeforeSend: time.Millisecond,
					DelayAfterSend:  time.Millisecond,
				}
				if err := p.SetRS485(cfg); err != nil {
					return err
				}
			}

			actual, err := p.SetMode(ch432.Mode{BaudRate: baud})
			if err != nil {
				return err
			}
			if actual != baud {
				fmt.Fprintf(os.Stderr, "requested %d baud, running at %d\n", baud, actual)
			}

			deadline := time.Now().Add(timeout)
			for len(payload) > 0 {
				n := p.Write(payload)
				payload = payload[n:]
				p.StartTx()
				if len(payload) == 0 {
					break
				}
				// Queue full; wait for the wakeup callback.
				select {
				case <-sink.wakeup:
				case <-time.After(time.Until(deadline)):
					return fmt.Errorf("timed out with %d bytes unsent", len(payload))
				}
			}

			for {
				empty, err := p.TxEmpty()
				if err != nil {
					return err
				}
				if empty && p.Buffered() == 0 {
					return nil
				}
				if time.Now().After(deadline) {
					return fmt.Errorf("timed out waiting for transmitter drain")
				}
				time.Sleep(time.Millisecond)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().Uint32P("baud", "b", 115200, "baud rate")
	sendCmd.Flags().BoolP("hex", "x", false, "interpret data as hex bytes")
	sendCmd.Flags().BoolP("newline", "n", false, "append a newline to the data")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "send timeout")
	sendCmd.Flags().Bool("rs485", false, "enable RS-485 turnaround with 1ms delays")
}
