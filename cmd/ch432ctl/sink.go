package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/SoldierJazz/ch432ser-linux/drivers/ch432"
)

// stdoutSink prints received traffic and line events. wakeup is optionally
// signalled so senders can block until queue space frees up.
type stdoutSink struct {
	hex    bool
	wakeup chan struct{}
}

func (s *stdoutSink) ReceiveChars(data []byte, flags []ch432.Flag) {
	if s.hex {
		var b strings.Builder
		for i, c := range data {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%02x", c)
			if flags[i] != ch432.FlagNormal {
				fmt.Fprintf(&b, "(%s)", flags[i])
			}
		}
		fmt.Println(b.String())
		return
	}
	for i, c := range data {
		if flags[i] != ch432.FlagNormal {
			fmt.Fprintf(os.Stderr, "[%s] %#02x\n", flags[i], c)
			continue
		}
		os.Stdout.Write([]byte{c})
	}
}

func (s *stdoutSink) WriteWakeup() {
	if s.wakeup == nil {
		return
	}
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

func (s *stdoutSink) CTSChange(asserted bool) {
	fmt.Fprintf(os.Stderr, "CTS -> %v\n", asserted)
}
