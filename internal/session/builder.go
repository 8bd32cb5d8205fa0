// internal/session/builder.go
package session

import (
	"fmt"
	"time"

	cfg "github.com/tamzrod/modbus-scout/internal/config"
)

// SerialFromConfig converts the stored serial settings.
func SerialFromConfig(c *cfg.Config) (SerialParams, error) {
	parity, err := ParseParity(c.Parity)
	if err != nil {
		return SerialParams{}, err
	}
	p := SerialParams{
		BaudRate: c.BaudRate,
		DataBits: c.ByteSize,
		Parity:   parity,
		StopBits: c.StopBits,
		Timeout:  time.Duration(c.TimeoutMs) * time.Millisecond,
	}
	return p, p.Validate()
}

// BuildMode converts a validated config into a connection mode.
func BuildMode(c *cfg.Config) (Mode, error) {
	switch c.Mode {
	case cfg.ModeTCP:
		m := TCP(c.Host, c.TCPPort, time.Duration(c.TimeoutMs)*time.Millisecond)
		return m, m.Validate()
	case cfg.ModeRTU:
		p, err := SerialFromConfig(c)
		if err != nil {
			return Mode{}, err
		}
		m := RTU(c.Port, p)
		return m, m.Validate()
	default:
		return Mode{}, fmt.Errorf("%w: mode must be tcp or rtu, got %q", cfg.ErrInvalid, c.Mode)
	}
}
