// internal/session/sessiontest/backend.go

// Package sessiontest provides an in-memory Modbus backend for tests of
// code built on session.Session.
package sessiontest

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tamzrod/modbus-scout/internal/session"
)

// ErrTimeout is returned for requests to slaves that do not exist.
var ErrTimeout = errors.New("sessiontest: response timeout")

// Device is one simulated slave. Unset addresses read as zero.
type Device struct {
	Holding  map[uint16]uint16
	Input    map[uint16]uint16
	Coils    map[uint16]bool
	Discrete map[uint16]bool
}

// NewDevice returns an empty device.
func NewDevice() *Device {
	return &Device{
		Holding:  make(map[uint16]uint16),
		Input:    make(map[uint16]uint16),
		Coils:    make(map[uint16]bool),
		Discrete: make(map[uint16]bool),
	}
}

// Backend implements session.Backend against a set of devices.
type Backend struct {
	mu sync.Mutex

	devices map[uint8]*Device
	slave   uint8

	// ConnectErr, when set, fails every Connect.
	ConnectErr error
	// CloseErr, when set, fails every Close.
	CloseErr error
	// OnRequest runs before each request with the target slave.
	OnRequest func(slave uint8)

	connects int
	closes   int
	requests []uint8
	modes    []session.Mode
}

// New returns a backend with the given slaves present.
func New(slaves ...uint8) *Backend {
	b := &Backend{devices: make(map[uint8]*Device)}
	for _, id := range slaves {
		b.devices[id] = NewDevice()
	}
	return b
}

// Device returns the simulated slave, or nil.
func (b *Backend) Device(id uint8) *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devices[id]
}

// Factory returns a session.BackendFactory that always yields b.
func (b *Backend) Factory() session.BackendFactory {
	return func(m session.Mode, _ *logrus.Entry) (session.Backend, error) {
		b.mu.Lock()
		b.modes = append(b.modes, m)
		b.mu.Unlock()
		return b, nil
	}
}

// Connects counts Connect calls.
func (b *Backend) Connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects
}

// Closes counts Close calls.
func (b *Backend) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// Requests returns the slave id of every request, in order.
func (b *Backend) Requests() []uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint8(nil), b.requests...)
}

// Modes returns every mode the factory was asked to build.
func (b *Backend) Modes() []session.Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]session.Mode(nil), b.modes...)
}

// ---- session.Backend ----

func (b *Backend) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	return b.ConnectErr
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return b.CloseErr
}

func (b *Backend) SetSlave(id uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slave = id
}

func (b *Backend) ReadCoils(address, quantity uint16) ([]byte, error) {
	return b.readBits(address, quantity, func(d *Device) map[uint16]bool { return d.Coils })
}

func (b *Backend) ReadDiscreteInputs(address, quantity uint16) ([]byte, error) {
	return b.readBits(address, quantity, func(d *Device) map[uint16]bool { return d.Discrete })
}

func (b *Backend) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	return b.readRegs(address, quantity, func(d *Device) map[uint16]uint16 { return d.Holding })
}

func (b *Backend) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	return b.readRegs(address, quantity, func(d *Device) map[uint16]uint16 { return d.Input })
}

func (b *Backend) WriteSingleCoil(address, value uint16) ([]byte, error) {
	d, err := b.target()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d.Coils[address] = value == 0xFF00
	return []byte{byte(value >> 8), byte(value)}, nil
}

func (b *Backend) WriteSingleRegister(address, value uint16) ([]byte, error) {
	d, err := b.target()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d.Holding[address] = value
	return []byte{byte(value >> 8), byte(value)}, nil
}

// ---- helpers ----

func (b *Backend) target() (*Device, error) {
	b.mu.Lock()
	slave := b.slave
	hook := b.OnRequest
	b.requests = append(b.requests, slave)
	d := b.devices[slave]
	b.mu.Unlock()

	if hook != nil {
		hook(slave)
	}
	if d == nil {
		return nil, ErrTimeout
	}
	return d, nil
}

func (b *Backend) readBits(address, quantity uint16, table func(*Device) map[uint16]bool) ([]byte, error) {
	d, err := b.target()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	m := table(d)
	out := make([]byte, (int(quantity)+7)/8)
	for i := 0; i < int(quantity); i++ {
		if m[address+uint16(i)] {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out, nil
}

func (b *Backend) readRegs(address, quantity uint16, table func(*Device) map[uint16]uint16) ([]byte, error) {
	d, err := b.target()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	m := table(d)
	out := make([]byte, 2*int(quantity))
	for i := 0; i < int(quantity); i++ {
		v := m[address+uint16(i)]
		out[2*i] = byte(v >> 8)
		out[2*i+1] = byte(v)
	}
	return out, nil
}
