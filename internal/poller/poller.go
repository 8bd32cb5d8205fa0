// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"time"

	cfg "github.com/tamzrod/modbus-scout/internal/config"
)

// ErrReadFailed is reported when a device did not answer a read.
// The session has already logged the cause.
var ErrReadFailed = errors.New("poller: read failed")

// Client abstracts the reads the poller needs. *session.Session
// satisfies it; nil means the read failed.
type Client interface {
	ReadCoils(address, count uint16, slave uint8) []bool              // FC 1
	ReadDiscreteInputs(address, count uint16, slave uint8) []bool     // FC 2
	ReadHoldingRegisters(address, count uint16, slave uint8) []uint16 // FC 3
	ReadInputRegisters(address, count uint16, slave uint8) []uint16   // FC 4
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Slave    uint8
	Interval time.Duration
	Reads    []ReadBlock
}

// Poller is a dumb, clock-driven reader of one slave.
type Poller struct {
	cfg    Config
	client Client
}

// New creates a poller with immutable config.
func New(c Config, client Client) (*Poller, error) {
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if err := cfg.ValidateSlave(int(c.Slave)); err != nil {
		return nil, err
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("%w: poll interval must be > 0", cfg.ErrInvalid)
	}
	if len(c.Reads) == 0 {
		return nil, fmt.Errorf("%w: at least one read block required", cfg.ErrInvalid)
	}
	for _, rb := range c.Reads {
		if rb.Table.FC() == 0 {
			return nil, fmt.Errorf("%w: unknown table %q", cfg.ErrInvalid, rb.Table)
		}
		if err := cfg.ValidateQuantity(int(rb.Quantity)); err != nil {
			return nil, err
		}
	}
	return &Poller{cfg: c, client: client}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		Slave: p.cfg.Slave,
		At:    time.Now(),
	}

	blocks := make([]BlockResult, 0, len(p.cfg.Reads))

	for _, rb := range p.cfg.Reads {
		br := BlockResult{Table: rb.Table, Address: rb.Address, Quantity: rb.Quantity}

		switch rb.Table {
		case Coils:
			br.Bits = p.client.ReadCoils(rb.Address, rb.Quantity, p.cfg.Slave)
		case DiscreteInputs:
			br.Bits = p.client.ReadDiscreteInputs(rb.Address, rb.Quantity, p.cfg.Slave)
		case HoldingRegisters:
			br.Registers = p.client.ReadHoldingRegisters(rb.Address, rb.Quantity, p.cfg.Slave)
		case InputRegisters:
			br.Registers = p.client.ReadInputRegisters(rb.Address, rb.Quantity, p.cfg.Slave)
		}

		if br.Bits == nil && br.Registers == nil {
			res.Err = fmt.Errorf("%w: slave %d %s %d+%d", ErrReadFailed, p.cfg.Slave, rb.Table, rb.Address, rb.Quantity)
			return res
		}
		blocks = append(blocks, br)
	}

	// Commit only if all reads succeeded
	res.Blocks = blocks
	return res
}
