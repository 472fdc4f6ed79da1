package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SoldierJazz/ch432ser-linux/drivers/ch432"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Probe every channel's scratch register",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c *ch432.Controller) error {
			var failed bool
			for i := 0; i < c.NumPorts(); i++ {
				p, err := c.Port(i)
				if err != nil {
					return err
				}
				if err := p.SelfTest(); err != nil {
					fmt.Printf("port %d: FAIL (%v)\n", i, err)
					failed = true
					continue
				}
				fmt.Printf("port %d: ok\n", i)
			}
			if failed {
				return fmt.Errorf("selftest failed")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}
