// internal/session/session_test.go
package session_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-scout/internal/config"
	"github.com/tamzrod/modbus-scout/internal/serialport"
	"github.com/tamzrod/modbus-scout/internal/session"
	"github.com/tamzrod/modbus-scout/internal/session/sessiontest"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// registry returns a registry whose OS lists ports and counts opens.
func registry(opens *int, ports ...string) *serialport.Registry {
	return serialport.NewRegistry(
		serialport.WithLister(func() ([]string, error) { return ports, nil }),
		serialport.WithOpener(func(string) (io.Closer, error) {
			*opens++
			return nopCloser{}, nil
		}),
		serialport.WithDelays(serialport.Delays{}),
	)
}

func serialParams() session.SerialParams {
	return session.SerialParams{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   session.ParityNone,
		StopBits: 1,
		Timeout:  time.Second,
	}
}

func newRTU(t *testing.T, reg *serialport.Registry, b *sessiontest.Backend, port string) *session.Session {
	t.Helper()
	s, err := session.New(
		session.RTU(port, serialParams()),
		reg,
		session.WithBackend(b.Factory()),
		session.WithSettleDelay(0),
	)
	require.NoError(t, err)
	return s
}

// ---- construction ----

func TestNew_InvalidMode(t *testing.T) {
	_, err := session.New(session.Mode{Kind: "ascii"}, nil)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestNew_InvalidSerialParams(t *testing.T) {
	p := serialParams()
	p.DataBits = 9

	var opens int
	_, err := session.New(session.RTU("COM7", p), registry(&opens, "COM7"))
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestNew_RTURequiresRegistry(t *testing.T) {
	_, err := session.New(session.RTU("COM7", serialParams()), nil,
		session.WithBackend(sessiontest.New().Factory()))
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestNew_GoburrowBackend(t *testing.T) {
	var opens int
	s, err := session.New(session.RTU("COM7", serialParams()), registry(&opens, "COM7"))
	require.NoError(t, err)
	assert.Equal(t, session.KindRTU, s.Mode().Kind)

	s, err = session.New(session.TCP("127.0.0.1", 502, time.Second), nil)
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:502", s.Mode().String())
}

// ---- connect / disconnect ----

func TestConnect_PortMissing(t *testing.T) {
	var opens int
	reg := registry(&opens, "COM1")
	b := sessiontest.New(5)
	s := newRTU(t, reg, b, "COM7")

	assert.False(t, s.Connect())
	assert.False(t, s.Connected())
	assert.Zero(t, opens, "no probing for an unlisted port")
	assert.Zero(t, b.Connects(), "transport must not be opened")
	assert.False(t, reg.GetOrCreate("COM7").InUse())
}

func TestConnect_RTU(t *testing.T) {
	var opens int
	reg := registry(&opens, "COM7")
	b := sessiontest.New(5)
	s := newRTU(t, reg, b, "COM7")

	require.True(t, s.Connect())
	assert.True(t, s.Connected())
	assert.True(t, reg.GetOrCreate("COM7").InUse())
	assert.Equal(t, 1, b.Connects())
}

func TestConnect_TransportFailureReleasesPort(t *testing.T) {
	var opens int
	reg := registry(&opens, "COM7")
	b := sessiontest.New(5)
	b.ConnectErr = errors.New("open /dev/ttyUSB0: permission denied")
	s := newRTU(t, reg, b, "COM7")

	assert.False(t, s.Connect())
	assert.False(t, reg.GetOrCreate("COM7").InUse())
}

func TestConnect_TCPSkipsPortManagement(t *testing.T) {
	b := sessiontest.New(1)
	s, err := session.New(session.TCP("10.0.0.5", 502, time.Second), nil,
		session.WithBackend(b.Factory()), session.WithSettleDelay(0))
	require.NoError(t, err)

	require.True(t, s.Connect())
	assert.NotNil(t, s.ReadHoldingRegisters(0, 1, 1))
	s.Disconnect()
	assert.False(t, s.Connected())
}

func TestDisconnect_ReleasesOnEveryPath(t *testing.T) {
	var opens int
	reg := registry(&opens, "COM7")

	tests := []struct {
		name     string
		closeErr error
		connect  bool
	}{
		{"clean", nil, true},
		{"close fails", errors.New("close: bad file descriptor"), true},
		{"never connected", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sessiontest.New(5)
			b.CloseErr = tt.closeErr
			s := newRTU(t, reg, b, "COM7")

			var h *serialport.Handle
			if tt.connect {
				require.True(t, s.Connect())
				h = reg.GetOrCreate("COM7")
				require.True(t, h.InUse())
			}

			assert.NotPanics(t, s.Disconnect)
			assert.False(t, s.Connected())
			if h != nil {
				assert.False(t, h.InUse())
			}
			assert.Zero(t, reg.Len())

			// second disconnect is harmless
			assert.NotPanics(t, s.Disconnect)
		})
	}
}

// ---- requests ----

func TestWriteThenRead(t *testing.T) {
	var opens int
	b := sessiontest.New(5)
	s := newRTU(t, registry(&opens, "COM7"), b, "COM7")
	require.True(t, s.Connect())
	defer s.Disconnect()

	require.True(t, s.WriteRegister(3, 42, 5))
	assert.Equal(t, []uint16{42}, s.ReadHoldingRegisters(3, 1, 5))
}

func TestReads(t *testing.T) {
	var opens int
	b := sessiontest.New(2)
	d := b.Device(2)
	d.Coils[1] = true
	d.Coils[9] = true
	d.Discrete[0] = true
	d.Input[4] = 0xBEEF

	s := newRTU(t, registry(&opens, "COM7"), b, "COM7")
	require.True(t, s.Connect())
	defer s.Disconnect()

	assert.Equal(t,
		[]bool{false, true, false, false, false, false, false, false, false, true},
		s.ReadCoils(0, 10, 2))
	assert.Equal(t, []bool{true, false}, s.ReadDiscreteInputs(0, 2, 2))
	assert.Equal(t, []uint16{0, 0xBEEF}, s.ReadInputRegisters(3, 2, 2))
	assert.Equal(t, []uint16{0, 0, 0}, s.ReadHoldingRegisters(0, 3, 2), "all-zero is still a response")
}

func TestWriteCoil(t *testing.T) {
	var opens int
	b := sessiontest.New(2)
	s := newRTU(t, registry(&opens, "COM7"), b, "COM7")
	require.True(t, s.Connect())
	defer s.Disconnect()

	require.True(t, s.WriteCoil(7, true, 2))
	assert.Equal(t, []bool{true}, s.ReadCoils(7, 1, 2))

	require.True(t, s.WriteCoil(7, false, 2))
	assert.Equal(t, []bool{false}, s.ReadCoils(7, 1, 2))
}

func TestProtocolFailureIsAbsorbed(t *testing.T) {
	var opens int
	b := sessiontest.New(5)
	s := newRTU(t, registry(&opens, "COM7"), b, "COM7")
	require.True(t, s.Connect())
	defer s.Disconnect()

	assert.Nil(t, s.ReadHoldingRegisters(0, 1, 6))
	assert.Nil(t, s.ReadCoils(0, 1, 6))
	assert.False(t, s.WriteRegister(0, 1, 6))
	assert.False(t, s.WriteCoil(0, true, 6))
}

func TestPreconditions(t *testing.T) {
	var opens int
	b := sessiontest.New(5)
	s := newRTU(t, registry(&opens, "COM7"), b, "COM7")
	require.True(t, s.Connect())
	defer s.Disconnect()

	assert.Nil(t, s.ReadHoldingRegisters(0, 0, 5))
	assert.Nil(t, s.ReadHoldingRegisters(0, 101, 5))
	assert.Nil(t, s.ReadInputRegisters(0, 1, 0))
	assert.Nil(t, s.ReadDiscreteInputs(0, 1, 248))
	assert.False(t, s.WriteRegister(0, 1, 0))

	assert.Empty(t, b.Requests(), "rejected requests never reach the bus")
}

func TestRequestsRequireConnection(t *testing.T) {
	var opens int
	b := sessiontest.New(5)
	s := newRTU(t, registry(&opens, "COM7"), b, "COM7")

	assert.Nil(t, s.ReadHoldingRegisters(0, 1, 5))
	assert.False(t, s.WriteRegister(0, 1, 5))
	assert.Empty(t, b.Requests())
}

// ---- builders ----

func TestBuildMode(t *testing.T) {
	c := config.Default()
	c.Port = "COM7"
	c.Parity = config.ParityEven

	m, err := session.BuildMode(c)
	require.NoError(t, err)
	assert.Equal(t, session.KindRTU, m.Kind)
	assert.Equal(t, session.ParityEven, m.RTU.Serial.Parity)
	assert.Equal(t, 3*time.Second, m.RTU.Serial.Timeout)

	c.Mode = config.ModeTCP
	c.Host = "plc.local"
	m, err = session.BuildMode(c)
	require.NoError(t, err)
	assert.Equal(t, "plc.local", m.TCP.Host)
	assert.Equal(t, 502, m.TCP.Port)

	c.Mode = "udp"
	_, err = session.BuildMode(c)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
