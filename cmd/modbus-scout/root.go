// cmd/modbus-scout/root.go
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tamzrod/modbus-scout/internal/config"
	"github.com/tamzrod/modbus-scout/internal/scan"
	"github.com/tamzrod/modbus-scout/internal/serialport"
	"github.com/tamzrod/modbus-scout/internal/session"
)

const defaultConfigFile = "comm_config.json"

var rootCmd = &cobra.Command{
	Use:   "modbus-scout",
	Short: "Discover and poll Modbus RTU/TCP slave devices",
	Long: `modbus-scout claims a serial port (or dials a TCP gateway), sweeps a
slave address range for live devices, and reads or writes their registers.

Connection settings come from the comm config file and may be overridden
with flags or MODBUS_SCOUT_* environment variables.`,
	Example: `  # List serial ports
  modbus-scout ports

  # Scan slaves 1-20 on COM3
  modbus-scout scan --port COM3 --start 1 --end 20

  # Read 10 holding registers of slave 5
  modbus-scout read holding --slave 5 --address 0 --count 10`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log-level"))
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", defaultConfigFile, "comm config file (JSON or YAML)")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")

	// connection overrides
	pf.String("mode", "", "connection mode: rtu or tcp")
	pf.String("port", "", "serial port name")
	pf.Int("baudrate", 0, "serial baud rate")
	pf.Int("bytesize", 0, "serial data bits (7 or 8)")
	pf.String("parity", "", "serial parity: none, even, odd")
	pf.Int("stopbits", 0, "serial stop bits")
	pf.String("host", "", "TCP gateway host")
	pf.Int("tcp-port", 0, "TCP gateway port")
	pf.Duration("timeout", 0, "response timeout")

	for _, name := range []string{
		"config", "log-level",
		"mode", "port", "baudrate", "bytesize", "parity", "stopbits",
		"host", "tcp-port", "timeout",
	} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}

	viper.SetEnvPrefix("MODBUS_SCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(lvl)
	return nil
}

// loadSettings reads the config file, applies flag and environment
// overrides, then normalizes and validates the result. A missing file
// yields the defaults.
func loadSettings() (*config.Config, error) {
	path := viper.GetString("config")

	c, err := config.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logrus.WithField("path", path).Debug("no config file, using defaults")
		c = config.Default()
	case err != nil:
		return nil, err
	}

	applyOverrides(c)
	config.Normalize(c)

	if err := config.Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func applyOverrides(c *config.Config) {
	if viper.IsSet("mode") {
		c.Mode = viper.GetString("mode")
	}
	if viper.IsSet("port") {
		c.Port = viper.GetString("port")
	}
	if viper.IsSet("baudrate") {
		c.BaudRate = viper.GetInt("baudrate")
	}
	if viper.IsSet("bytesize") {
		c.ByteSize = viper.GetInt("bytesize")
	}
	if viper.IsSet("parity") {
		c.Parity = viper.GetString("parity")
	}
	if viper.IsSet("stopbits") {
		c.StopBits = viper.GetInt("stopbits")
	}
	if viper.IsSet("host") {
		c.Host = viper.GetString("host")
	}
	if viper.IsSet("tcp-port") {
		c.TCPPort = viper.GetInt("tcp-port")
	}
	if viper.IsSet("timeout") {
		c.TimeoutMs = int(viper.GetDuration("timeout") / time.Millisecond)
	}
}

func newRegistry(c *config.Config) *serialport.Registry {
	return serialport.NewRegistry(
		serialport.WithDelays(serialport.DelaysFromConfig(c.Timing)),
		serialport.WithLogger(logrus.WithField("component", "serialport")),
	)
}

// openSession builds and connects the interactive session. The caller
// must Disconnect it.
func openSession(c *config.Config, reg *serialport.Registry) (*session.Session, error) {
	mode, err := session.BuildMode(c)
	if err != nil {
		return nil, err
	}

	s, err := session.New(mode, reg,
		session.WithSettleDelay(scan.TimingFromConfig(c.Timing).SessionSettle),
		session.WithLogger(logrus.WithField("component", "session")),
	)
	if err != nil {
		return nil, err
	}

	if !s.Connect() {
		return nil, fmt.Errorf("connect to %s failed", mode)
	}
	return s, nil
}
