// internal/session/session.go
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tamzrod/modbus-scout/internal/config"
	"github.com/tamzrod/modbus-scout/internal/serialport"
)

// DefaultSettleDelay is waited after the global release in Connect and
// Disconnect.
const DefaultSettleDelay = 500 * time.Millisecond

var errNotConnected = errors.New("session: not connected")

// Session is one connection attempt to a Modbus network.
//
// In RTU mode it owns at most one port handle, acquired from the registry
// in Connect and released on every exit path through Disconnect.
// Requests are serialized because the slave id lives on the shared handler.
//
// No protocol error crosses the session boundary: reads return nil and
// writes return false, and the cause is logged.
type Session struct {
	mode    Mode
	reg     *serialport.Registry
	backend Backend
	settle  time.Duration
	log     *logrus.Entry

	mu        sync.Mutex
	bound     *serialport.Handle
	connected bool
}

type Option func(*options)

type options struct {
	factory BackendFactory
	settle  time.Duration
	log     *logrus.Entry
}

// WithBackend replaces the goburrow client factory.
func WithBackend(f BackendFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) { o.settle = d }
}

func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.log = l }
}

// New builds a session. RTU mode requires a registry.
// Invalid modes and parameters fail with an error wrapping
// config.ErrInvalid.
func New(mode Mode, reg *serialport.Registry, opts ...Option) (*Session, error) {
	o := options{
		factory: NewBackend,
		settle:  DefaultSettleDelay,
		log:     logrus.WithField("component", "session"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := mode.Validate(); err != nil {
		return nil, err
	}
	if mode.Kind == KindRTU && reg == nil {
		return nil, fmt.Errorf("%w: rtu mode requires a port registry", config.ErrInvalid)
	}

	entry := o.log.WithField("target", mode.String())
	b, err := o.factory(mode, entry)
	if err != nil {
		return nil, err
	}

	return &Session{
		mode:    mode,
		reg:     reg,
		backend: b,
		settle:  o.settle,
		log:     entry,
	}, nil
}

// Mode returns the connection mode the session was built with.
func (s *Session) Mode() Mode { return s.mode }

// Connected reports whether the last Connect succeeded and no Disconnect
// followed.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Connect establishes the transport.
//
// RTU: every registered handle is released first, then a fresh handle is
// acquired for the configured port. If the port cannot be claimed the
// transport is never opened.
// TCP: no port management.
func (s *Session) Connect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode.Kind == KindRTU {
		s.reg.ReleaseAll()
		sleep(s.settle)

		h := s.reg.GetOrCreate(s.mode.RTU.Port)
		if !h.Acquire() {
			s.log.Warn("serial port unavailable")
			return false
		}
		s.bound = h
	}

	if err := s.backend.Connect(); err != nil {
		s.log.WithError(err).Warn("connect failed")
		if s.bound != nil {
			s.bound.Release()
			s.bound = nil
		}
		return false
	}

	s.connected = true
	s.log.Info("connected")
	return true
}

// Disconnect closes the transport, then releases every port handle in
// the registry regardless of how the close went. Safe to call repeatedly.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Close(); err != nil {
		s.log.WithError(err).Debug("transport close failed")
	}
	s.connected = false
	s.bound = nil

	if s.reg != nil {
		s.reg.ReleaseAll()
	}
	sleep(s.settle)
	s.log.Debug("disconnected")
}

// ---- reads ----

// ReadCoils reads count coils (FC 1). Nil on any failure.
func (s *Session) ReadCoils(address, count uint16, slave uint8) []bool {
	raw, ok := s.read("read coils", address, count, slave, s.backend.ReadCoils)
	if !ok {
		return nil
	}
	return s.bits("read coils", raw, count)
}

// ReadDiscreteInputs reads count discrete inputs (FC 2). Nil on any failure.
func (s *Session) ReadDiscreteInputs(address, count uint16, slave uint8) []bool {
	raw, ok := s.read("read discrete inputs", address, count, slave, s.backend.ReadDiscreteInputs)
	if !ok {
		return nil
	}
	return s.bits("read discrete inputs", raw, count)
}

// ReadHoldingRegisters reads count holding registers (FC 3). Nil on any
// failure; an all-zero result is still a success.
func (s *Session) ReadHoldingRegisters(address, count uint16, slave uint8) []uint16 {
	raw, ok := s.read("read holding registers", address, count, slave, s.backend.ReadHoldingRegisters)
	if !ok {
		return nil
	}
	return s.registers("read holding registers", raw, count)
}

// ReadInputRegisters reads count input registers (FC 4). Nil on any failure.
func (s *Session) ReadInputRegisters(address, count uint16, slave uint8) []uint16 {
	raw, ok := s.read("read input registers", address, count, slave, s.backend.ReadInputRegisters)
	if !ok {
		return nil
	}
	return s.registers("read input registers", raw, count)
}

// ---- writes ----

// WriteRegister writes one holding register (FC 6).
func (s *Session) WriteRegister(address, value uint16, slave uint8) bool {
	_, ok := s.do("write register", address, value, slave, s.backend.WriteSingleRegister)
	return ok
}

// WriteCoil writes one coil (FC 5).
func (s *Session) WriteCoil(address uint16, value bool, slave uint8) bool {
	var v uint16
	if value {
		v = 0xFF00
	}
	_, ok := s.do("write coil", address, v, slave, s.backend.WriteSingleCoil)
	return ok
}

// ---- internal request helpers ----

type request func(address, arg uint16) ([]byte, error)

func (s *Session) read(op string, address, count uint16, slave uint8, fn request) ([]byte, bool) {
	if err := config.ValidateQuantity(int(count)); err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "slave": slave, "addr": address}).
			WithError(err).Warn("request rejected")
		return nil, false
	}
	return s.do(op, address, count, slave, fn)
}

// do runs one request with the slave id set. arg is a count for reads
// and a value for writes.
func (s *Session) do(op string, address, arg uint16, slave uint8, fn request) ([]byte, bool) {
	l := s.log.WithFields(logrus.Fields{"op": op, "slave": slave, "addr": address})

	if err := config.ValidateSlave(int(slave)); err != nil {
		l.WithError(err).Warn("request rejected")
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		l.WithError(errNotConnected).Debug("request failed")
		return nil, false
	}

	s.backend.SetSlave(slave)
	raw, err := fn(address, arg)
	if err != nil {
		l.WithError(err).Debug("request failed")
		return nil, false
	}
	return raw, true
}

func (s *Session) bits(op string, raw []byte, count uint16) []bool {
	if len(raw)*8 < int(count) {
		s.log.WithField("op", op).Debug("short bit response")
		return nil
	}
	return unpackBits(raw, int(count))
}

func (s *Session) registers(op string, raw []byte, count uint16) []uint16 {
	if len(raw) < 2*int(count) {
		s.log.WithField("op", op).Debug("short register response")
		return nil
	}
	return unpackRegisters(raw[:2*int(count)])
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
