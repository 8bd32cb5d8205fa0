// internal/scan/builder.go
package scan

import (
	"time"

	cfg "github.com/tamzrod/modbus-scout/internal/config"
)

// TimingFromConfig applies the non-zero overrides of t to DefaultTiming.
func TimingFromConfig(t *cfg.TimingConfig) Timing {
	out := DefaultTiming()
	if t == nil {
		return out
	}
	override(&out.ProbeTimeout, t.ProbeTimeoutMs)
	override(&out.ProbeInterval, t.ProbeIntervalMs)
	override(&out.RetryWait, t.RetryWaitMs)
	override(&out.PreConnectWait, t.PreConnectWaitMs)
	override(&out.SessionSettle, t.SessionSettleMs)
	override(&out.ExitSettle, t.ExitSettleMs)
	override(&out.StopWait, t.StopWaitMs)
	override(&out.RestartSettle, t.RestartSettleMs)
	return out
}

// RangeFromConfig returns the stored scan range, or the default 1-10.
func RangeFromConfig(c *cfg.Config) Range {
	if c == nil || c.Scan == nil {
		return Range{Start: 1, End: 10}
	}
	return Range{Start: c.Scan.Start, End: c.Scan.End}
}

func override(d *time.Duration, ms int) {
	if ms > 0 {
		*d = time.Duration(ms) * time.Millisecond
	}
}
