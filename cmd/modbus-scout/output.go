// cmd/modbus-scout/output.go
package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/tamzrod/modbus-scout/internal/poller"
)

func printPollResult(w io.Writer, res poller.PollResult) {
	for _, b := range res.Blocks {
		fmt.Fprintf(w, "%s  slave %d  %s (FC%d)\n", res.At.Format(time.TimeOnly), res.Slave, b.Table, b.Table.FC())

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  ADDRESS\tVALUE\tHEX")
		if b.Table.Bits() {
			for i, v := range b.Bits {
				n := 0
				if v {
					n = 1
				}
				fmt.Fprintf(tw, "  %d\t%d\t\n", int(b.Address)+i, n)
			}
		} else {
			for i, v := range b.Registers {
				fmt.Fprintf(tw, "  %d\t%d\t0x%04X\n", int(b.Address)+i, v, v)
			}
		}
		tw.Flush()
	}
}
