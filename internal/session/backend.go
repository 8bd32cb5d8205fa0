// internal/session/backend.go
package session

import (
	"io"
	"log"
	"net"
	"strconv"

	"github.com/goburrow/modbus"
	"github.com/sirupsen/logrus"
)

// Backend is the protocol client a Session drives.
// Request methods follow modbus.Client: raw response bytes or an error.
type Backend interface {
	Connect() error
	Close() error
	SetSlave(id uint8)

	ReadCoils(address, quantity uint16) ([]byte, error)            // FC 1
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)   // FC 2
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error) // FC 3
	ReadInputRegisters(address, quantity uint16) ([]byte, error)   // FC 4
	WriteSingleCoil(address, value uint16) ([]byte, error)         // FC 5
	WriteSingleRegister(address, value uint16) ([]byte, error)     // FC 6
}

// BackendFactory builds a Backend for a validated mode.
type BackendFactory func(m Mode, log *logrus.Entry) (Backend, error)

type connector interface {
	Connect() error
	Close() error
}

// handlerBackend adapts a goburrow client handler.
type handlerBackend struct {
	modbus.Client
	conn  connector
	slave *byte
	logw  io.Closer // frame logger pipe, closed with the backend
}

// NewBackend builds a goburrow RTU or TCP client for m.
func NewBackend(m Mode, entry *logrus.Entry) (Backend, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	b := &handlerBackend{}
	var frames *log.Logger
	if entry != nil && entry.Logger.IsLevelEnabled(logrus.TraceLevel) {
		w := entry.WriterLevel(logrus.TraceLevel)
		b.logw = w
		frames = log.New(w, "", 0)
	}

	switch m.Kind {
	case KindRTU:
		h := modbus.NewRTUClientHandler(m.RTU.Port)
		h.BaudRate = m.RTU.Serial.BaudRate
		h.DataBits = m.RTU.Serial.DataBits
		h.Parity = string(m.RTU.Serial.Parity)
		h.StopBits = m.RTU.Serial.StopBits
		h.Timeout = m.RTU.Serial.Timeout
		h.Logger = frames

		b.Client = modbus.NewClient(h)
		b.conn = h
		b.slave = &h.SlaveId

	default:
		h := modbus.NewTCPClientHandler(net.JoinHostPort(m.TCP.Host, strconv.Itoa(m.TCP.Port)))
		h.Timeout = m.TCP.Timeout
		h.Logger = frames

		b.Client = modbus.NewClient(h)
		b.conn = h
		b.slave = &h.SlaveId
	}

	return b, nil
}

func (b *handlerBackend) Connect() error { return b.conn.Connect() }

func (b *handlerBackend) Close() error {
	err := b.conn.Close()
	if b.logw != nil {
		_ = b.logw.Close()
		b.logw = nil
	}
	return err
}

func (b *handlerBackend) SetSlave(id uint8) { *b.slave = id }

// ---- helpers (pure geometry) ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		if byteIdx >= len(data) {
			break
		}
		out[i] = data[byteIdx]&(1<<(i%8)) != 0
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
