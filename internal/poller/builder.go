// internal/poller/builder.go
package poller

import (
	"fmt"
	"time"

	cfg "github.com/tamzrod/modbus-scout/internal/config"
)

// Build constructs a Poller for the stored poll block.
// The client lifecycle stays with the caller.
func Build(pc *cfg.PollConfig, client Client) (*Poller, error) {
	if pc == nil {
		return nil, fmt.Errorf("%w: no poll block configured", cfg.ErrInvalid)
	}
	if err := cfg.ValidateSlave(pc.Slave); err != nil {
		return nil, err
	}
	if pc.Address < 0 || pc.Address > 0xFFFF {
		return nil, fmt.Errorf("%w: poll address %d out of range", cfg.ErrInvalid, pc.Address)
	}
	if err := cfg.ValidateQuantity(pc.Quantity); err != nil {
		return nil, err
	}
	table, err := ParseTable(pc.Table)
	if err != nil {
		return nil, err
	}

	return New(
		Config{
			Slave:    uint8(pc.Slave),
			Interval: time.Duration(pc.IntervalMs) * time.Millisecond,
			Reads: []ReadBlock{{
				Table:    table,
				Address:  uint16(pc.Address),
				Quantity: uint16(pc.Quantity),
			}},
		},
		client,
	)
}
