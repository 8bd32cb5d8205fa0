// internal/scan/engine.go
package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tamzrod/modbus-scout/internal/serialport"
	"github.com/tamzrod/modbus-scout/internal/session"
	"github.com/tamzrod/modbus-scout/internal/status"
)

// probeAddress is the holding register read as a liveness probe.
const probeAddress = 0

// SessionFactory builds the session a run scans with.
type SessionFactory func(m session.Mode, reg *serialport.Registry, t Timing) (*session.Session, error)

// Engine sweeps a slave address range over one serial port.
// At most one run is active; a run is a single worker goroutine.
type Engine struct {
	reg        *serialport.Registry
	timing     Timing
	newSession SessionFactory
	log        *logrus.Entry

	// ctl serializes Start and Stop.
	ctl sync.Mutex

	mu      sync.Mutex
	state   status.State
	run     uint64 // generation; a worker only records while it is current
	cancel  context.CancelFunc
	done    chan struct{}
	adopted *session.Session
	results []Result
	scanned int
	total   int
	found   int
	lastErr error
}

type Option func(*Engine)

func WithTiming(t Timing) Option {
	return func(e *Engine) { e.timing = t }
}

// WithSessionFactory replaces the goburrow-backed session factory.
func WithSessionFactory(f SessionFactory) Option {
	return func(e *Engine) { e.newSession = f }
}

func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an idle engine that claims ports through reg.
func New(reg *serialport.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:        reg,
		timing:     DefaultTiming(),
		newSession: defaultSession,
		log:        logrus.WithField("component", "scan"),
		state:      status.Idle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultSession(m session.Mode, reg *serialport.Registry, t Timing) (*session.Session, error) {
	return session.New(m, reg,
		session.WithSettleDelay(t.SessionSettle),
		session.WithLogger(logrus.WithField("component", "scan-session")),
	)
}

// Adopt hands an interactive session to the engine. The next run
// disconnects it before claiming the port.
func (e *Engine) Adopt(s *session.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adopted = s
}

// Start validates r and launches a run in the background.
//
// An invalid range or target fails synchronously and leaves the engine
// untouched. A run already in progress is stopped first.
func (e *Engine) Start(r Range, target session.RTUParams, progress ProgressFunc) error {
	if err := r.Validate(); err != nil {
		return err
	}

	serial := target.Serial
	serial.Timeout = e.timing.ProbeTimeout
	mode := session.RTU(target.Port, serial)
	if err := mode.Validate(); err != nil {
		return err
	}

	if progress == nil {
		progress = func(Event) {}
	}

	e.ctl.Lock()
	defer e.ctl.Unlock()

	if e.State() == status.Scanning {
		e.log.Info("scan in progress, stopping it first")
		e.stop()
		sleep(e.timing.RestartSettle)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	prev := e.done
	e.run++
	run := e.run
	e.state = status.Scanning
	e.cancel = cancel
	e.done = done
	e.results = nil
	e.scanned = 0
	e.total = r.Len()
	e.found = 0
	e.lastErr = nil
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"port":  target.Port,
		"start": r.Start,
		"end":   r.End,
	}).Info("scan started")

	go e.work(ctx, run, done, prev, r, mode, progress)
	return nil
}

// Stop cancels the current run, waits up to Timing.StopWait for the
// worker to exit, and forces the engine to Idle either way.
func (e *Engine) Stop() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.stop()
}

func (e *Engine) stop() {
	e.mu.Lock()
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(e.timing.StopWait):
			e.log.Warn("scan worker did not exit in time")
		}
	}

	e.mu.Lock()
	e.state = status.Idle
	e.cancel = nil
	e.run++ // a late worker must not overwrite Idle
	e.mu.Unlock()
}

// Wait blocks until the current worker, if any, has exited.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() status.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns state and progress counters.
func (e *Engine) Snapshot() status.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return status.Snapshot{
		State:     e.state,
		Scanned:   e.scanned,
		Total:     e.total,
		Found:     e.found,
		LastError: e.lastErr,
	}
}

// Results returns the probe outcomes of the current or last run.
func (e *Engine) Results() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Result(nil), e.results...)
}

// ---- worker ----

func (e *Engine) work(
	ctx context.Context,
	run uint64,
	done chan struct{},
	prev <-chan struct{},
	r Range,
	mode session.Mode,
	progress ProgressFunc,
) {
	defer close(done)

	// one worker on the bus at a time
	if prev != nil {
		<-prev
	}

	var s *session.Session
	final, err := e.sweepSafely(ctx, run, r, mode, progress, &s)

	if s != nil {
		s.Disconnect()
	} else if e.reg != nil {
		e.reg.ReleaseAll()
	}
	sleep(e.timing.ExitSettle)

	l := e.log.WithField("state", final)
	ev := Event{Total: r.Len(), Err: err}

	e.mu.Lock()
	ev.Scanned = e.scanned
	if e.run == run {
		e.state = final
		e.lastErr = err
		e.cancel = nil
	}
	e.mu.Unlock()

	switch final {
	case status.Idle:
		ev.Kind = EventComplete
		l.Info("scan complete")
	case status.Stopped:
		ev.Kind = EventStopped
		l.Info("scan stopped")
	default:
		ev.Kind = EventFailed
		l.WithError(err).Error("scan failed")
	}
	progress(ev)
}

func (e *Engine) sweepSafely(ctx context.Context, run uint64, r Range, mode session.Mode, progress ProgressFunc, sp **session.Session) (final status.State, err error) {
	defer func() {
		if p := recover(); p != nil {
			final = status.Failed
			err = fmt.Errorf("scan: %v", p)
		}
	}()
	return e.sweep(ctx, run, r, mode, progress, sp)
}

// sweep connects and probes. The session it builds is stored in *sp so
// the caller can disconnect it on every exit path.
func (e *Engine) sweep(ctx context.Context, run uint64, r Range, mode session.Mode, progress ProgressFunc, sp **session.Session) (status.State, error) {
	t := e.timing

	// drop whatever session held the port before this run
	e.mu.Lock()
	old := e.adopted
	e.adopted = nil
	e.mu.Unlock()
	if old != nil {
		old.Disconnect()
		if !wait(ctx, t.PreConnectWait) {
			return status.Stopped, nil
		}
	}

	s, err := e.newSession(mode, e.reg, t)
	if err != nil {
		return status.Failed, err
	}
	*sp = s

	attempts := t.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	connected := false
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return status.Stopped, nil
		}
		if s.Connect() {
			connected = true
			break
		}
		e.log.WithField("attempt", attempt).Warn("connect attempt failed")
		if attempt < attempts && !wait(ctx, t.RetryWait) {
			return status.Stopped, nil
		}
	}
	if !connected {
		return status.Failed, fmt.Errorf("%w (%d attempts on %s)", ErrConnectionExhausted, attempts, mode.RTU.Port)
	}

	for addr := r.Start; addr <= r.End; addr++ {
		if ctx.Err() != nil {
			return status.Stopped, nil
		}

		slave := uint8(addr)
		reachable := s.ReadHoldingRegisters(probeAddress, 1, slave) != nil

		progress(e.record(run, slave, reachable, r.Len()))

		wait(ctx, t.ProbeInterval)
	}

	return status.Idle, nil
}

// record stores one probe outcome and returns its event.
func (e *Engine) record(run uint64, slave uint8, reachable bool, total int) Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev := Event{
		Kind:      EventProbe,
		Address:   slave,
		Reachable: reachable,
		Total:     total,
	}
	if e.run != run {
		return ev
	}

	e.results = append(e.results, Result{Address: slave, Reachable: reachable})
	e.scanned++
	if reachable {
		e.found++
	}
	ev.Scanned = e.scanned
	return ev
}

// wait sleeps for d and reports false if ctx was cancelled first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
