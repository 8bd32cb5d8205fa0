// internal/serialport/handle.go
package serialport

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Handle owns exclusive access to one named serial port.
// Handles are created by a Registry and never destroyed individually.
type Handle struct {
	name string
	reg  *Registry
	log  *logrus.Entry

	inUse atomic.Bool

	mu     sync.Mutex
	native io.Closer
}

// Name returns the OS device name.
func (h *Handle) Name() string { return h.name }

// InUse reports whether the handle is currently acquired.
func (h *Handle) InUse() bool { return h.inUse.Load() }

// Acquire claims the port.
//
// It always releases first, then checks that the OS lists the port.
// A missing port returns false immediately, with no probing and no delay.
// Otherwise the port is opened and closed once to flush a stale lock left
// by a crashed holder (errors ignored), opened and closed again as the
// real check, and only then marked in use.
func (h *Handle) Acquire() bool {
	h.reg.opMu.Lock()
	defer h.reg.opMu.Unlock()

	h.Release()

	ports, err := h.reg.list()
	if err != nil {
		h.log.WithError(err).Warn("port enumeration failed")
		return false
	}
	if !contains(ports, h.name) {
		h.log.Warn("port not found")
		return false
	}

	if !h.reg.claim(h) {
		h.log.Warn("port is in use by another handle")
		return false
	}

	// clearing attempt; failure here is expected when nothing is stale
	if c, err := h.reg.open(h.name); err == nil {
		_ = c.Close()
	} else {
		h.log.WithError(err).Debug("clearing open failed")
	}
	sleep(h.reg.delays.ProbeSettle)

	c, err := h.reg.open(h.name)
	if err != nil {
		h.log.WithError(err).Warn("port acquisition failed")
		h.Release()
		return false
	}
	h.mu.Lock()
	h.native = c
	h.mu.Unlock()

	if err := h.closeNative(); err != nil {
		h.log.WithError(err).Warn("port acquisition failed on close")
		h.Release()
		return false
	}
	sleep(h.reg.delays.VerifySettle)

	h.inUse.Store(true)
	h.log.Debug("port acquired")
	return true
}

// Release marks the handle free, closes the native handle if one is
// held, and waits for the OS to reclaim the descriptor.
// It never fails and is safe on an already released handle.
func (h *Handle) Release() {
	// flag first so observers see "free" even if the close below blocks
	h.inUse.Store(false)
	h.reg.unclaim(h)

	if err := h.closeNative(); err != nil {
		h.log.WithError(err).Debug("close during release failed")
	}
	sleep(h.reg.delays.ReleaseSettle)
}

func (h *Handle) closeNative() error {
	h.mu.Lock()
	c := h.native
	h.native = nil
	h.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
