// cmd/modbus-scout/scan.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tamzrod/modbus-scout/internal/config"
	"github.com/tamzrod/modbus-scout/internal/scan"
	"github.com/tamzrod/modbus-scout/internal/session"
)

var (
	scanStart int
	scanEnd   int
	scanSave  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep a slave address range for live devices (RTU)",
	Long: `Probe every slave address in [start, end] with a one-register holding
read at address 0 and report which addresses answer.

The configured port is claimed exclusively for the duration of the scan.
Ctrl-C stops the sweep at the next address.`,
	Example: `  modbus-scout scan --port COM3
  modbus-scout scan --start 1 --end 247 --save`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanStart, "start", 0, "first slave address (default from config, else 1)")
	scanCmd.Flags().IntVar(&scanEnd, "end", 0, "last slave address (default from config, else 10)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "store the range in the config file")
}

func runScan(cmd *cobra.Command, args []string) error {
	c, err := loadSettings()
	if err != nil {
		return err
	}
	if c.Mode != config.ModeRTU {
		return fmt.Errorf("%w: scan requires rtu mode", config.ErrInvalid)
	}

	r := scan.RangeFromConfig(c)
	if cmd.Flags().Changed("start") {
		r.Start = scanStart
	}
	if cmd.Flags().Changed("end") {
		r.End = scanEnd
	}

	serial, err := session.SerialFromConfig(c)
	if err != nil {
		return err
	}

	engine := scan.New(newRegistry(c),
		scan.WithTiming(scan.TimingFromConfig(c.Timing)),
		scan.WithLogger(logrus.WithField("component", "scan")),
	)

	// events are rendered on this goroutine, never on the worker
	events := make(chan scan.Event, r.Len()+1)
	progress := func(ev scan.Event) { events <- ev }

	if err := engine.Start(r, session.RTUParams{Port: c.Port, Serial: serial}, progress); err != nil {
		return err
	}

	if scanSave {
		c.Scan = &config.ScanConfig{Start: r.Start, End: r.End}
		if err := config.Save(cmdConfigPath(), c); err != nil {
			logrus.WithError(err).Warn("could not store scan range")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning slaves %d-%d on %s...\n", r.Start, r.End, c.Port)

	for {
		select {
		case <-ctx.Done():
			stop()
			fmt.Fprintln(cmd.ErrOrStderr(), "stopping scan...")
			go engine.Stop()
			ctx = context.Background()

		case ev := <-events:
			if done, err := renderScanEvent(out, ev); done {
				printScanSummary(out, engine.Results())
				return err
			}
		}
	}
}

// renderScanEvent prints one event and reports whether it was terminal.
func renderScanEvent(w io.Writer, ev scan.Event) (bool, error) {
	switch ev.Kind {
	case scan.EventProbe:
		if ev.Reachable {
			fmt.Fprintf(w, "  slave %3d  responding  [%3.0f%%]\n", ev.Address, 100*ev.Progress())
		} else {
			logrus.WithField("slave", ev.Address).Debug("no response")
		}
		return false, nil
	case scan.EventComplete:
		fmt.Fprintln(w, "Scan complete.")
		return true, nil
	case scan.EventStopped:
		fmt.Fprintf(w, "Scan stopped after %d of %d addresses.\n", ev.Scanned, ev.Total)
		return true, nil
	default:
		return true, fmt.Errorf("scan failed: %w", ev.Err)
	}
}

func printScanSummary(w io.Writer, results []scan.Result) {
	var found []uint8
	for _, r := range results {
		if r.Reachable {
			found = append(found, r.Address)
		}
	}
	if len(found) == 0 {
		fmt.Fprintln(w, "No devices found.")
		return
	}
	fmt.Fprintf(w, "Found %d device(s): %v\n", len(found), found)
}
