package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/SoldierJazz/ch432ser-linux/drivers/ch432"
)

var consoleCmd = &cobra.Command{
	Use:   "console <port>",
	Short: "Interactive console on one channel",
	Long: `Open a channel and drive it from an interactive prompt. Received
data is printed as it arrives. Type "help" at the prompt for the
command list; quoting follows shell rules ("two words" is one
argument).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baud, _ := cmd.Flags().GetUint32("baud")
		return withController(func(ctx context.Context, c *ch432.Controller) error {
			p, err := portArg(c, args[0])
			if err != nil {
				return err
			}

			sink := &stdoutSink{}
			if err := p.Startup(sink); err != nil {
				return err
			}
			defer p.Shutdown()
			if _, err := p.SetMode(ch432.Mode{BaudRate: baud}); err != nil {
				return err
			}

			sc := bufio.NewScanner(os.Stdin)
			fmt.Print("> ")
			for sc.Scan() {
				words, err := shlex.Split(sc.Text())
				if err != nil {
					fmt.Fprintln(os.Stderr, "parse:", err)
					fmt.Print("> ")
					continue
				}
				if len(words) == 0 {
					fmt.Print("> ")
					continue
				}
				if words[0] == "quit" || words[0] == "exit" {
					return nil
				}
				if err := consoleDispatch(p, words); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
				fmt.Print("> ")
			}
			return sc.Err()
		})
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().Uint32P("baud", "b", 115200, "baud rate")
}

func consoleDispatch(p ch432.Port, words []string) error {
	switch words[0] {
	case "help":
		fmt.Print(`send <data>        queue data and start transmit
sendhex <hex>      queue raw bytes, e.g. sendhex 0102ff
xchar <hex byte>   send one priority byte
baud <rate>        reconfigure the line speed
break on|off       set or clear the break condition
rts|dtr on|off     drive a modem line
rs485 on|off       toggle RS-485 turnaround (1ms delays)
status             show modem status lines
counters           show traffic and error counters
dump               dump the register file
quit               close the channel and exit
`)
		return nil

	case "send":
		if len(words) < 2 {
			return fmt.Errorf("usage: send <data>")
		}
		p.Write([]byte(strings.Join(words[1:], " ")))
		p.StartTx()
		return nil

	case "sendhex":
		if len(words) != 2 {
			return fmt.Errorf("usage: sendhex <hex>")
		}
		b, err := hex.DecodeString(words[1])
		if err != nil {
			return err
		}
		p.Write(b)
		p.StartTx()
		return nil

	case "xchar":
		if len(words) != 2 {
			return fmt.Errorf("usage: xchar <hex byte>")
		}
		v, err := strconv.ParseUint(words[1], 16, 8)
		if err != nil {
			return err
		}
		p.SendXChar(byte(v))
		p.StartTx()
		return nil

	case "baud":
		if len(words) != 2 {
			return fmt.Errorf("usage: baud <rate>")
		}
		v, err := strconv.ParseUint(words[1], 10, 32)
		if err != nil {
			return err
		}
		actual, err := p.SetMode(ch432.Mode{BaudRate: uint32(v)})
		if err != nil {
			return err
		}
		fmt.Println("running at", actual, "baud")
		return nil

	case "break":
		on, err := onOff(words)
		if err != nil {
			return err
		}
		return p.SetBreak(on)

	case "rts", "dtr":
		on, err := onOff(words)
		if err != nil {
			return err
		}
		line := ch432.LineRTS
		if words[0] == "dtr" {
			line = ch432.LineDTR
		}
		lines := ch432.LineOUT2
		if on {
			lines |= line
		}
		p.SetModemControl(lines)
		return nil

	case "rs485":
		on, err := onOff(words)
		if err != nil {
			return err
		}
		cfg := ch432.RS485Config{Enabled: on}
		if on {
			cfg.DelayBeforeSend = time.Millisecond
			cfg.DelayAfterSend = time.Millisecond
		}
		return p.SetRS485(cfg)

	case "status":
		s := p.ModemStatus()
		fmt.Printf("CTS=%v DSR=%v RI=%v CD=%v\n", s.CTS(), s.DSR(), s.RI(), s.CD())
		return nil

	case "counters":
		n := p.Counters()
		fmt.Printf("rx=%d tx=%d overrun=%d parity=%d frame=%d break=%d\n",
			n.Rx, n.Tx, n.Overrun, n.Parity, n.Frame, n.Break)
		return nil

	case "dump":
		d, err := p.DumpRegisters()
		if err != nil {
			return err
		}
		fmt.Printf("DLL=%#02x DLH=%#02x regs=% 02x\n", d.Special[0], d.Special[1], d.Normal)
		return nil
	}

	return fmt.Errorf("unknown command %q (try help)", words[0])
}

func onOff(words []string) (bool, error) {
	if len(words) != 2 || (words[1] != "on" && words[1] != "off") {
		return false, fmt.Errorf("usage: %s on|off", words[0])
	}
	return words[1] == "on", nil
}
