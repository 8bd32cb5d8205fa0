// cmd/modbus-scout/ports.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamzrod/modbus-scout/internal/serialport"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports visible to the OS",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serialport.NewRegistry().ListPorts()
		if err != nil {
			return fmt.Errorf("enumerate ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}
