// internal/poller/types.go
package poller

import (
	"fmt"
	"strings"
	"time"

	cfg "github.com/tamzrod/modbus-scout/internal/config"
)

// Table is one of the four Modbus data tables.
type Table string

const (
	Coils            Table = "coils"
	DiscreteInputs   Table = "discrete"
	HoldingRegisters Table = "holding"
	InputRegisters   Table = "input"
)

// ParseTable accepts the table names and their function codes.
func ParseTable(s string) (Table, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coils", "coil", "1":
		return Coils, nil
	case "discrete", "discrete-inputs", "2":
		return DiscreteInputs, nil
	case "holding", "holding-registers", "3":
		return HoldingRegisters, nil
	case "input", "input-registers", "4":
		return InputRegisters, nil
	}
	return "", fmt.Errorf("%w: unknown table %q", cfg.ErrInvalid, s)
}

// FC is the read function code of the table.
func (t Table) FC() uint8 {
	switch t {
	case Coils:
		return 1
	case DiscreteInputs:
		return 2
	case HoldingRegisters:
		return 3
	case InputRegisters:
		return 4
	}
	return 0
}

// Bits reports whether the table holds single bits.
func (t Table) Bits() bool { return t == Coils || t == DiscreteInputs }

// ReadBlock describes one Modbus read geometry.
type ReadBlock struct {
	Table    Table
	Address  uint16
	Quantity uint16
}

// BlockResult is the raw result of a single read.
type BlockResult struct {
	Table    Table
	Address  uint16
	Quantity uint16

	// Exactly one of these is used depending on Table.
	Bits      []bool   // coils, discrete
	Registers []uint16 // holding, input
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	Slave uint8
	At    time.Time

	Blocks []BlockResult
	Err    error // non-nil means the poll cycle failed
}
