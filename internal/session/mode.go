// internal/session/mode.go
package session

import (
	"fmt"
	"time"

	"github.com/tamzrod/modbus-scout/internal/config"
)

// Kind selects the transport.
type Kind string

const (
	KindTCP Kind = config.ModeTCP
	KindRTU Kind = config.ModeRTU
)

// Parity uses the single-letter codes the serial layer expects.
type Parity string

const (
	ParityNone Parity = "N"
	ParityEven Parity = "E"
	ParityOdd  Parity = "O"
)

// ParseParity accepts the store spellings (none/even/odd) and the letter
// codes.
func ParseParity(s string) (Parity, error) {
	switch s {
	case config.ParityNone, "N", "n":
		return ParityNone, nil
	case config.ParityEven, "E", "e":
		return ParityEven, nil
	case config.ParityOdd, "O", "o":
		return ParityOdd, nil
	}
	return "", fmt.Errorf("%w: unknown parity %q", config.ErrInvalid, s)
}

// SerialParams describes the serial line. Immutable once a session is
// built from it.
type SerialParams struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits int
	Timeout  time.Duration
}

// Validate checks ranges; the error wraps config.ErrInvalid.
func (p SerialParams) Validate() error {
	if p.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate must be > 0", config.ErrInvalid)
	}
	if p.DataBits != 7 && p.DataBits != 8 {
		return fmt.Errorf("%w: data bits must be 7 or 8, got %d", config.ErrInvalid, p.DataBits)
	}
	switch p.Parity {
	case ParityNone, ParityEven, ParityOdd:
	default:
		return fmt.Errorf("%w: unknown parity %q", config.ErrInvalid, p.Parity)
	}
	if p.StopBits <= 0 {
		return fmt.Errorf("%w: stop bits must be > 0", config.ErrInvalid)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0", config.ErrInvalid)
	}
	return nil
}

// TCPParams addresses a Modbus TCP server.
type TCPParams struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// RTUParams addresses a serial line.
type RTUParams struct {
	Port   string
	Serial SerialParams
}

// Mode is the connection variant: exactly one of TCP or RTU is used,
// selected by Kind.
type Mode struct {
	Kind Kind
	TCP  TCPParams
	RTU  RTUParams
}

// TCP builds a network mode.
func TCP(host string, port int, timeout time.Duration) Mode {
	return Mode{Kind: KindTCP, TCP: TCPParams{Host: host, Port: port, Timeout: timeout}}
}

// RTU builds a serial mode.
func RTU(port string, params SerialParams) Mode {
	return Mode{Kind: KindRTU, RTU: RTUParams{Port: port, Serial: params}}
}

// Validate rejects unknown kinds and bad parameters.
func (m Mode) Validate() error {
	switch m.Kind {
	case KindTCP:
		if m.TCP.Host == "" {
			return fmt.Errorf("%w: tcp host required", config.ErrInvalid)
		}
		if m.TCP.Port < 1 || m.TCP.Port > 65535 {
			return fmt.Errorf("%w: tcp port %d out of range", config.ErrInvalid, m.TCP.Port)
		}
		if m.TCP.Timeout <= 0 {
			return fmt.Errorf("%w: timeout must be > 0", config.ErrInvalid)
		}
		return nil
	case KindRTU:
		if m.RTU.Port == "" {
			return fmt.Errorf("%w: serial port required", config.ErrInvalid)
		}
		return m.RTU.Serial.Validate()
	default:
		return fmt.Errorf("%w: mode must be tcp or rtu, got %q", config.ErrInvalid, m.Kind)
	}
}

func (m Mode) String() string {
	switch m.Kind {
	case KindTCP:
		return fmt.Sprintf("tcp://%s:%d", m.TCP.Host, m.TCP.Port)
	case KindRTU:
		s := m.RTU.Serial
		return fmt.Sprintf("rtu://%s?%d-%d%s%d", m.RTU.Port, s.BaudRate, s.DataBits, s.Parity, s.StopBits)
	}
	return string(m.Kind)
}
