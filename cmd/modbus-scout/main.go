// cmd/modbus-scout/main.go

// Command modbus-scout discovers and polls Modbus RTU/TCP slave devices.
package main

import (
	"fmt"
	"os"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
