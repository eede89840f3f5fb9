// Package random provides in-process Provider implementations: Local, backed
// by crypto/rand for offline use, and Fake, a scriptable provider for tests.
package random

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/artpar/qrng/domain/provider"
	"github.com/artpar/qrng/domain/sizing"
	"github.com/artpar/qrng/ports"
)

// Local serves refills from crypto/rand. It stands in for the remote
// provider when running offline.
type Local struct{}

// Fetch generates req.BlockCount blocks of req.BlockSize random bytes.
func (Local) Fetch(ctx context.Context, req sizing.Request) (provider.Response, error) {
	if err := ctx.Err(); err != nil {
		return provider.Response{}, &provider.TransportError{Op: "request", Err: err}
	}

	raw := make([]byte, req.BlockCount*req.BlockSize)
	if _, err := rand.Read(raw); err != nil {
		return provider.Response{}, &provider.TransportError{Op: "read", Err: err}
	}

	items := make([]string, req.BlockCount)
	for i := range items {
		block := raw[i*req.BlockSize : (i+1)*req.BlockSize]
		items[i] = hex.EncodeToString(block)
	}
	return provider.NewResponse(req, items), nil
}

var _ ports.Provider = Local{}

// defaultPattern is cycled by Fake when no responses are queued.
const defaultPattern = "0123456789abcdef"

type step struct {
	resp  provider.Response
	err   error
	panic any
}

// Fake is a deterministic, scriptable provider for tests.
// Queued steps are consumed in order; once they run out, responses are
// generated by cycling the digit pattern.
type Fake struct {
	mu       sync.Mutex
	steps    []step
	pattern  string
	offset   int
	requests []sizing.Request
	gate     chan struct{}
	started  chan sizing.Request
}

// NewFake creates a fake provider.
func NewFake() *Fake {
	return &Fake{
		pattern: defaultPattern,
		started: make(chan sizing.Request, 64),
	}
}

// WithPattern sets the digits cycled into generated responses.
func (f *Fake) WithPattern(pattern string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pattern = pattern
	f.offset = 0
	return f
}

// Respond queues a response.
func (f *Fake) Respond(resp provider.Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, step{resp: resp})
	return f
}

// RespondDigits queues a successful response carrying digits split into
// blocks of the requested size.
func (f *Fake) RespondDigits(req sizing.Request, digits string) *Fake {
	width := req.BlockSize * 2
	var items []string
	for len(digits) > 0 {
		n := width
		if n > len(digits) {
			n = len(digits)
		}
		items = append(items, digits[:n])
		digits = digits[n:]
	}
	return f.Respond(provider.NewResponse(req, items))
}

// Fail queues an error.
func (f *Fake) Fail(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, step{err: err})
	return f
}

// Panic queues a panic, for exercising lock release on unexpected exits.
func (f *Fake) Panic(v any) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, step{panic: v})
	return f
}

// Hold makes subsequent Fetch calls block until Release or context end.
func (f *Fake) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate == nil {
		f.gate = make(chan struct{})
	}
}

// Release unblocks held Fetch calls.
func (f *Fake) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Started delivers each request as Fetch begins.
func (f *Fake) Started() <-chan sizing.Request {
	return f.started
}

// Calls returns how many times Fetch was called.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns the requests received so far.
func (f *Fake) Requests() []sizing.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sizing.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Fetch implements ports.Provider.
func (f *Fake) Fetch(ctx context.Context, req sizing.Request) (provider.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate := f.gate
	f.mu.Unlock()

	select {
	case f.started <- req:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return provider.Response{}, &provider.TransportError{Op: "request", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	if len(f.steps) > 0 {
		s := f.steps[0]
		f.steps = f.steps[1:]
		f.mu.Unlock()
		if s.panic != nil {
			panic(s.panic)
		}
		return s.resp, s.err
	}
	items := f.generate(req)
	f.mu.Unlock()

	return provider.NewResponse(req, items), nil
}

// generate must be called with f.mu held.
func (f *Fake) generate(req sizing.Request) []string {
	width := req.BlockSize * 2
	items := make([]string, req.BlockCount)
	for i := range items {
		block := make([]byte, width)
		for j := range block {
			block[j] = f.pattern[f.offset%len(f.pattern)]
			f.offset++
		}
		items[i] = string(block)
	}
	return items
}

var _ ports.Provider = (*Fake)(nil)
