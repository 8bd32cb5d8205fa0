// internal/config/validate.go
package config

import (
	"fmt"
)

// Slave address and per-request count limits.
const (
	MinSlave    = 1
	MaxSlave    = 247
	MinQuantity = 1
	MaxQuantity = 100
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}

	switch cfg.Mode {
	case ModeRTU:
		if cfg.Port == "" {
			return fmt.Errorf("%w: port is required in rtu mode", ErrInvalid)
		}
		if err := ValidateSerial(cfg.BaudRate, cfg.ByteSize, cfg.Parity, cfg.StopBits); err != nil {
			return err
		}
	case ModeTCP:
		if cfg.Host == "" {
			return fmt.Errorf("%w: host is required in tcp mode", ErrInvalid)
		}
		if cfg.TCPPort < 1 || cfg.TCPPort > 65535 {
			return fmt.Errorf("%w: tcp_port %d out of range", ErrInvalid, cfg.TCPPort)
		}
	default:
		return fmt.Errorf("%w: mode must be %q or %q, got %q", ErrInvalid, ModeTCP, ModeRTU, cfg.Mode)
	}

	if cfg.TimeoutMs <= 0 {
		return fmt.Errorf("%w: timeout_ms must be > 0", ErrInvalid)
	}

	if s := cfg.Scan; s != nil {
		if err := ValidateRange(s.Start, s.End); err != nil {
			return err
		}
	}

	if p := cfg.Poll; p != nil {
		if err := ValidateSlave(p.Slave); err != nil {
			return err
		}
		if err := ValidateQuantity(p.Quantity); err != nil {
			return err
		}
		if p.Address < 0 || p.Address > 0xFFFF {
			return fmt.Errorf("%w: poll address %d out of range", ErrInvalid, p.Address)
		}
		switch p.Table {
		case "coils", "discrete", "holding", "input":
		default:
			return fmt.Errorf("%w: unknown poll table %q", ErrInvalid, p.Table)
		}
		if p.IntervalMs <= 0 {
			return fmt.Errorf("%w: poll interval_ms must be > 0", ErrInvalid)
		}
	}

	if t := cfg.Timing; t != nil {
		for name, v := range map[string]int{
			"probe_settle_ms":     t.ProbeSettleMs,
			"verify_settle_ms":    t.VerifySettleMs,
			"release_settle_ms":   t.ReleaseSettleMs,
			"session_settle_ms":   t.SessionSettleMs,
			"retry_wait_ms":       t.RetryWaitMs,
			"probe_timeout_ms":    t.ProbeTimeoutMs,
			"probe_interval_ms":   t.ProbeIntervalMs,
			"stop_wait_ms":        t.StopWaitMs,
			"exit_settle_ms":      t.ExitSettleMs,
			"restart_settle_ms":   t.RestartSettleMs,
			"pre_connect_wait_ms": t.PreConnectWaitMs,
		} {
			if v < 0 {
				return fmt.Errorf("%w: timing %s must not be negative", ErrInvalid, name)
			}
		}
	}

	return nil
}

// ValidateSerial checks the serial line parameters.
func ValidateSerial(baud, dataBits int, parity string, stopBits int) error {
	if baud <= 0 {
		return fmt.Errorf("%w: baudrate must be > 0", ErrInvalid)
	}
	if dataBits != 7 && dataBits != 8 {
		return fmt.Errorf("%w: bytesize must be 7 or 8, got %d", ErrInvalid, dataBits)
	}
	switch parity {
	case ParityNone, ParityEven, ParityOdd:
	default:
		return fmt.Errorf("%w: parity must be none, even or odd, got %q", ErrInvalid, parity)
	}
	if stopBits <= 0 {
		return fmt.Errorf("%w: stopbits must be > 0", ErrInvalid)
	}
	return nil
}

// ValidateRange checks a scan range: 1 <= start <= end <= 247.
func ValidateRange(start, end int) error {
	if start < MinSlave || end > MaxSlave || start > end {
		return fmt.Errorf("%w: address range %d-%d must satisfy %d <= start <= end <= %d",
			ErrInvalid, start, end, MinSlave, MaxSlave)
	}
	return nil
}

// ValidateSlave checks a single slave address.
func ValidateSlave(id int) error {
	if id < MinSlave || id > MaxSlave {
		return fmt.Errorf("%w: slave %d out of range %d-%d", ErrInvalid, id, MinSlave, MaxSlave)
	}
	return nil
}

// ValidateQuantity checks a per-request register/bit count.
func ValidateQuantity(n int) error {
	if n < MinQuantity || n > MaxQuantity {
		return fmt.Errorf("%w: count %d out of range %d-%d", ErrInvalid, n, MinQuantity, MaxQuantity)
	}
	return nil
}
