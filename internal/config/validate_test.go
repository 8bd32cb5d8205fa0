// internal/config/validate_test.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to build a valid rtu config quickly
func rtu(port string) *Config {
	cfg := Default()
	cfg.Port = port
	return cfg
}

// ---- tests ----

func TestValidate_DefaultRTU(t *testing.T) {
	require.NoError(t, Validate(rtu("COM7")))
}

func TestValidate_RTURequiresPort(t *testing.T) {
	err := Validate(rtu(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := rtu("COM7")
	cfg.Mode = "ascii"

	err := Validate(cfg)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestValidate_TCP(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeTCP
	cfg.Host = "192.168.1.10"
	require.NoError(t, Validate(cfg))

	cfg.TCPPort = 70000
	require.ErrorIs(t, Validate(cfg), ErrInvalid)
}

func TestValidate_SerialParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero baud", func(c *Config) { c.BaudRate = 0 }},
		{"bytesize 6", func(c *Config) { c.ByteSize = 6 }},
		{"bad parity", func(c *Config) { c.Parity = "mark" }},
		{"zero stopbits", func(c *Config) { c.StopBits = 0 }},
		{"zero timeout", func(c *Config) { c.TimeoutMs = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := rtu("COM7")
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), ErrInvalid)
		})
	}
}

func TestValidateRange(t *testing.T) {
	assert.NoError(t, ValidateRange(1, 247))
	assert.NoError(t, ValidateRange(5, 5))
	assert.ErrorIs(t, ValidateRange(0, 10), ErrInvalid)
	assert.ErrorIs(t, ValidateRange(10, 248), ErrInvalid)
	assert.ErrorIs(t, ValidateRange(11, 10), ErrInvalid)
}

func TestValidate_PollBlock(t *testing.T) {
	cfg := rtu("COM7")
	cfg.Poll = &PollConfig{Slave: 5, Table: "holding", Address: 0, Quantity: 10, IntervalMs: 500}
	require.NoError(t, Validate(cfg))

	cfg.Poll.Quantity = 101
	require.ErrorIs(t, Validate(cfg), ErrInvalid)

	cfg.Poll.Quantity = 10
	cfg.Poll.Table = "fifo"
	require.ErrorIs(t, Validate(cfg), ErrInvalid)
}

func TestNormalize_ParitySpellings(t *testing.T) {
	for in, want := range map[string]string{
		"":     ParityNone,
		"N":    ParityNone,
		"None": ParityNone,
		"E":    ParityEven,
		"even": ParityEven,
		"O":    ParityOdd,
	} {
		cfg := &Config{Parity: in}
		Normalize(cfg)
		assert.Equal(t, want, cfg.Parity, "input %q", in)
	}
}

func TestLoad_LegacyJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "comm_config.json")
	legacy := `{"port": "COM7", "baudrate": 19200, "bytesize": 8, "parity": "even", "stopbits": 1}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "COM7", cfg.Port)
	assert.Equal(t, 19200, cfg.BaudRate)
	assert.Equal(t, ParityEven, cfg.Parity)
	assert.Equal(t, ModeRTU, cfg.Mode)
	require.NotNil(t, cfg.Scan)
	assert.Equal(t, 1, cfg.Scan.Start)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"comm_config.json", "comm_config.yaml"} {
		path := filepath.Join(dir, name)
		cfg := rtu("/dev/ttyUSB0")
		cfg.Poll = &PollConfig{Slave: 3, Table: "input", Quantity: 4, IntervalMs: 250}

		require.NoError(t, Save(path, cfg))

		got, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, cfg.Port, got.Port)
		assert.Equal(t, cfg.Poll.Table, got.Poll.Table)
		assert.Equal(t, cfg.Poll.Quantity, got.Poll.Quantity)
	}
}
