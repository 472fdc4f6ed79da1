package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SoldierJazz/ch432ser-linux/drivers/ch432"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <port>",
	Short: "Dump a channel's register file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c *ch432.Controller) error {
			p, err := portArg(c, args[0])
			if err != nil {
				return err
			}
			d, err := p.DumpRegisters()
			if err != nil {
				return err
			}
			fmt.Printf("DLL  %#02x\nDLH  %#02x\n", d.Special[0], d.Special[1])
			names := [8]string{"RBR", "IER", "IIR", "LCR", "MCR", "LSR", "MSR", "SPR"}
			for i, v := range d.Normal {
				fmt.Printf("%-4s %#02x\n", names[i], v)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
