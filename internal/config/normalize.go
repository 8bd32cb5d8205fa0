// internal/config/normalize.go
package config

import "strings"

// Normalize fills zero fields with defaults and canonicalizes spellings.
// It is allowed to mutate configuration.
// Call it before Validate so that files written by older versions pass.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	def := Default()

	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Parity)) {
	case "", "n", ParityNone:
		cfg.Parity = ParityNone
	case "e", ParityEven:
		cfg.Parity = ParityEven
	case "o", ParityOdd:
		cfg.Parity = ParityOdd
	}

	if cfg.BaudRate == 0 {
		cfg.BaudRate = def.BaudRate
	}
	if cfg.ByteSize == 0 {
		cfg.ByteSize = def.ByteSize
	}
	if cfg.StopBits == 0 {
		cfg.StopBits = def.StopBits
	}
	if cfg.TCPPort == 0 {
		cfg.TCPPort = def.TCPPort
	}
	if cfg.TimeoutMs == 0 {
		cfg.TimeoutMs = def.TimeoutMs
	}
	if cfg.Scan == nil {
		cfg.Scan = def.Scan
	}

	if p := cfg.Poll; p != nil {
		p.Table = strings.ToLower(strings.TrimSpace(p.Table))
		if p.Table == "" {
			p.Table = "holding"
		}
		if p.Quantity == 0 {
			p.Quantity = 10
		}
		if p.IntervalMs == 0 {
			p.IntervalMs = 1000
		}
	}
}
