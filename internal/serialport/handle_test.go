// internal/serialport/handle_test.go
package serialport

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake OS ----

type fakeOS struct {
	mu       sync.Mutex
	ports    []string
	open     map[string]bool
	opens    int
	failOpen map[string]int // fail the next n opens for a name
	listErr  error
}

func newFakeOS(ports ...string) *fakeOS {
	return &fakeOS{
		ports:    ports,
		open:     make(map[string]bool),
		failOpen: make(map[string]int),
	}
}

func (f *fakeOS) list() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.ports...), nil
}

func (f *fakeOS) openPort(name string) (io.Closer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if n := f.failOpen[name]; n > 0 {
		f.failOpen[name] = n - 1
		return nil, errors.New("device busy")
	}
	if f.open[name] {
		return nil, errors.New("device busy")
	}
	f.open[name] = true
	return &fakePort{os: f, name: name}, nil
}

func (f *fakeOS) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *fakeOS) isOpen(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[name]
}

type fakePort struct {
	os   *fakeOS
	name string
}

func (p *fakePort) Close() error {
	p.os.mu.Lock()
	defer p.os.mu.Unlock()
	p.os.open[p.name] = false
	return nil
}

func newTestRegistry(f *fakeOS) *Registry {
	return NewRegistry(
		WithLister(f.list),
		WithOpener(f.openPort),
		WithDelays(Delays{}),
	)
}

// ---- tests ----

func TestAcquire_Success(t *testing.T) {
	f := newFakeOS("COM1", "COM7")
	r := newTestRegistry(f)

	h := r.GetOrCreate("COM7")
	require.True(t, h.Acquire())
	assert.True(t, h.InUse())
	assert.Equal(t, "COM7", h.Name())

	// clearing open + verification open, both closed again
	assert.Equal(t, 2, f.openCount())
	assert.False(t, f.isOpen("COM7"))
}

func TestAcquire_PortMissing(t *testing.T) {
	f := newFakeOS("COM1")
	r := newTestRegistry(f)

	h := r.GetOrCreate("COM7")
	assert.False(t, h.Acquire())
	assert.False(t, h.InUse())
	assert.Zero(t, f.openCount(), "no probing when the port is not listed")
}

func TestAcquire_EnumerationError(t *testing.T) {
	f := newFakeOS("COM7")
	f.listErr = errors.New("no sysfs")
	r := newTestRegistry(f)

	assert.False(t, r.GetOrCreate("COM7").Acquire())
	assert.Zero(t, f.openCount())
}

func TestAcquire_StaleLockIgnored(t *testing.T) {
	f := newFakeOS("COM7")
	f.failOpen["COM7"] = 1 // clearing attempt fails, verification succeeds
	r := newTestRegistry(f)

	h := r.GetOrCreate("COM7")
	assert.True(t, h.Acquire())
}

func TestAcquire_VerificationFails(t *testing.T) {
	f := newFakeOS("COM7")
	f.failOpen["COM7"] = 2
	r := newTestRegistry(f)

	h := r.GetOrCreate("COM7")
	assert.False(t, h.Acquire())
	assert.False(t, h.InUse())
}

func TestAcquire_MutualExclusion(t *testing.T) {
	f := newFakeOS("COM7")
	r := newTestRegistry(f)

	a := r.GetOrCreate("COM7")
	require.True(t, a.Acquire())

	// a distinct handle for the same name
	b := r.newHandle("COM7")
	assert.False(t, b.Acquire(), "second handle must not acquire while the first is in use")
	assert.True(t, a.InUse())

	a.Release()
	assert.True(t, b.Acquire())
	assert.True(t, b.InUse())
}

func TestAcquire_ConcurrentSameName(t *testing.T) {
	f := newFakeOS("COM7")
	r := newTestRegistry(f)

	handles := []*Handle{r.newHandle("COM7"), r.newHandle("COM7"), r.newHandle("COM7")}
	results := make([]bool, len(handles))

	var wg sync.WaitGroup
	for i, h := range handles {
		wg.Add(1)
		go func(i int, h *Handle) {
			defer wg.Done()
			results[i] = h.Acquire()
		}(i, h)
	}
	wg.Wait()

	won := 0
	for _, ok := range results {
		if ok {
			won++
		}
	}
	assert.Equal(t, 1, won)
}

func TestRelease_Idempotent(t *testing.T) {
	f := newFakeOS("COM7")
	r := newTestRegistry(f)

	h := r.GetOrCreate("COM7")
	require.True(t, h.Acquire())

	assert.NotPanics(t, func() {
		h.Release()
		h.Release()
	})
	assert.False(t, h.InUse())
}

func TestAcquire_ReacquireAfterRelease(t *testing.T) {
	f := newFakeOS("COM7")
	r := newTestRegistry(f)

	h := r.GetOrCreate("COM7")
	require.True(t, h.Acquire())
	require.True(t, h.Acquire(), "acquire releases first, so it is repeatable")
	assert.True(t, h.InUse())
}
