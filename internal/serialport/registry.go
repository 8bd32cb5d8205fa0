// internal/serialport/registry.go
package serialport

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Lister returns the device names of the serial ports the OS currently
// exposes.
type Lister func() ([]string, error)

// Opener opens a port by name. The handle only needs to be closable:
// acquisition opens and closes, it never transfers data.
type Opener func(name string) (io.Closer, error)

// Delays are the settle times around open/close. Serial drivers tear
// descriptors down asynchronously; reacquiring too early reports "busy".
type Delays struct {
	ProbeSettle   time.Duration // after the best-effort clearing open
	VerifySettle  time.Duration // after the verification open
	ReleaseSettle time.Duration // after every release
}

// DefaultDelays are the empirical values the tool ships with.
func DefaultDelays() Delays {
	return Delays{
		ProbeSettle:   500 * time.Millisecond,
		VerifySettle:  200 * time.Millisecond,
		ReleaseSettle: 500 * time.Millisecond,
	}
}

// Registry maps port names to handles. At most one handle per name is
// in use at any instant.
// Callers create one registry per process and pass it to whatever builds
// sessions.
type Registry struct {
	// opMu serializes Acquire against ReleaseAll.
	opMu sync.Mutex

	mu      sync.Mutex
	handles map[string]*Handle
	owners  map[string]*Handle // name -> handle currently in use

	list   Lister
	open   Opener
	delays Delays
	log    *logrus.Entry
}

type Option func(*Registry)

// WithLister replaces OS enumeration.
func WithLister(l Lister) Option {
	return func(r *Registry) { r.list = l }
}

// WithOpener replaces the OS open call.
func WithOpener(o Opener) Option {
	return func(r *Registry) { r.open = o }
}

func WithDelays(d Delays) Option {
	return func(r *Registry) { r.delays = d }
}

func WithLogger(l *logrus.Entry) Option {
	return func(r *Registry) { r.log = l }
}

// NewRegistry creates an empty registry backed by the OS serial API.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		handles: make(map[string]*Handle),
		owners:  make(map[string]*Handle),
		list:    serial.GetPortsList,
		open:    openOS,
		delays:  DefaultDelays(),
		log:     logrus.WithField("component", "serialport"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func openOS(name string) (io.Closer, error) {
	return serial.Open(name, &serial.Mode{})
}

// ListPorts returns the currently visible port names.
func (r *Registry) ListPorts() ([]string, error) {
	return r.list()
}

// GetOrCreate returns the handle registered for name, creating it on
// first use.
func (r *Registry) GetOrCreate(name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[name]; ok {
		return h
	}
	h := r.newHandle(name)
	r.handles[name] = h
	return h
}

// ReleaseAll releases every registered handle and clears the table.
// It never fails; individual release problems are logged.
func (r *Registry) ReleaseAll() {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}
	r.log.WithField("count", len(handles)).Debug("released all port handles")
}

// Len reports how many handles are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func (r *Registry) newHandle(name string) *Handle {
	return &Handle{
		name: name,
		reg:  r,
		log:  r.log.WithField("port", name),
	}
}

// claim records h as the in-use handle for its name.
// It fails if a different handle for the same name is in use.
func (r *Registry) claim(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.owners[h.name]; ok && cur != h && cur.InUse() {
		return false
	}
	r.owners[h.name] = h
	return true
}

func (r *Registry) unclaim(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owners[h.name] == h {
		delete(r.owners, h.name)
	}
}
