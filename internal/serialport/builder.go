// internal/serialport/builder.go
package serialport

import (
	"time"

	cfg "github.com/tamzrod/modbus-scout/internal/config"
)

// DelaysFromConfig applies the non-zero overrides of t to DefaultDelays.
func DelaysFromConfig(t *cfg.TimingConfig) Delays {
	d := DefaultDelays()
	if t == nil {
		return d
	}
	if t.ProbeSettleMs > 0 {
		d.ProbeSettle = time.Duration(t.ProbeSettleMs) * time.Millisecond
	}
	if t.VerifySettleMs > 0 {
		d.VerifySettle = time.Duration(t.VerifySettleMs) * time.Millisecond
	}
	if t.ReleaseSettleMs > 0 {
		d.ReleaseSettle = time.Duration(t.ReleaseSettleMs) * time.Millisecond
	}
	return d
}
