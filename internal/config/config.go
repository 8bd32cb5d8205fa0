// internal/config/config.go
package config

import "errors"

// ErrInvalid marks every configuration error: bad connection mode,
// out-of-range serial parameter, address range or register count.
var ErrInvalid = errors.New("invalid configuration")

// Connection modes.
const (
	ModeRTU = "rtu"
	ModeTCP = "tcp"
)

// Parity spellings accepted in the store. Normalize rewrites
// single-letter forms to these.
const (
	ParityNone = "none"
	ParityEven = "even"
	ParityOdd  = "odd"
)

// Config is the persisted comm setup.
// The first five keys are the ones the tool has always written.
type Config struct {
	Port     string `yaml:"port" json:"port"`
	BaudRate int    `yaml:"baudrate" json:"baudrate"`
	ByteSize int    `yaml:"bytesize" json:"bytesize"`
	Parity   string `yaml:"parity" json:"parity"`
	StopBits int    `yaml:"stopbits" json:"stopbits"`

	Mode      string `yaml:"mode,omitempty" json:"mode,omitempty"`
	Host      string `yaml:"host,omitempty" json:"host,omitempty"`
	TCPPort   int    `yaml:"tcp_port,omitempty" json:"tcp_port,omitempty"`
	TimeoutMs int    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`

	Scan   *ScanConfig   `yaml:"scan,omitempty" json:"scan,omitempty"`
	Poll   *PollConfig   `yaml:"poll,omitempty" json:"poll,omitempty"`
	Timing *TimingConfig `yaml:"timing,omitempty" json:"timing,omitempty"`
}

// ---- SCAN ----

type ScanConfig struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

// ---- POLL ----

type PollConfig struct {
	Slave      int    `yaml:"slave" json:"slave"`
	Table      string `yaml:"table" json:"table"` // coils | discrete | holding | input
	Address    int    `yaml:"address" json:"address"`
	Quantity   int    `yaml:"quantity" json:"quantity"`
	IntervalMs int    `yaml:"interval_ms" json:"interval_ms"`
}

// ---- TIMING ----

// TimingConfig overrides the settle delays. Zero keeps the built-in value.
type TimingConfig struct {
	ProbeSettleMs    int `yaml:"probe_settle_ms,omitempty" json:"probe_settle_ms,omitempty"`
	VerifySettleMs   int `yaml:"verify_settle_ms,omitempty" json:"verify_settle_ms,omitempty"`
	ReleaseSettleMs  int `yaml:"release_settle_ms,omitempty" json:"release_settle_ms,omitempty"`
	SessionSettleMs  int `yaml:"session_settle_ms,omitempty" json:"session_settle_ms,omitempty"`
	RetryWaitMs      int `yaml:"retry_wait_ms,omitempty" json:"retry_wait_ms,omitempty"`
	ProbeTimeoutMs   int `yaml:"probe_timeout_ms,omitempty" json:"probe_timeout_ms,omitempty"`
	ProbeIntervalMs  int `yaml:"probe_interval_ms,omitempty" json:"probe_interval_ms,omitempty"`
	StopWaitMs       int `yaml:"stop_wait_ms,omitempty" json:"stop_wait_ms,omitempty"`
	ExitSettleMs     int `yaml:"exit_settle_ms,omitempty" json:"exit_settle_ms,omitempty"`
	RestartSettleMs  int `yaml:"restart_settle_ms,omitempty" json:"restart_settle_ms,omitempty"`
	PreConnectWaitMs int `yaml:"pre_connect_wait_ms,omitempty" json:"pre_connect_wait_ms,omitempty"`
}

// Default returns the settings the setup dialog starts from.
func Default() *Config {
	return &Config{
		BaudRate:  9600,
		ByteSize:  8,
		Parity:    ParityNone,
		StopBits:  1,
		Mode:      ModeRTU,
		TCPPort:   502,
		TimeoutMs: 3000,
		Scan:      &ScanConfig{Start: 1, End: 10},
	}
}
