// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package varheap implements a variable-size, page-backed heap allocator.
//
// A Manager reserves large contiguous buffers ("pages") from the system
// allocator in bulk and sub-allocates variable-length blocks inside them
// using an intrusive free/used list with inline metadata headers and a
// worst-fit placement policy, coalescing neighboring free blocks on Free. A
// caller-supplied fragmentation threshold controls splitting vs.
// over-allocation of a chosen block (see Config.FragmentThreshold).
//
// The allocator is single-writer: concurrent calls into one Manager from
// multiple goroutines are undefined. Separate Managers share nothing and
// may be used concurrently from separate goroutines.
package varheap

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/cznic/mathutil"
)

// Config configures a Manager. It is passed by value and validated by New;
// the DiagWriter and Abort defaults are filled in lazily on first use.
type Config struct {
	// PageSize is the exact byte size of every page this Manager creates.
	PageSize int64

	// FragmentThreshold controls splitting: a chosen block is split only when
	// its residual headroom exceeds FragmentThreshold+H bytes; otherwise it
	// is absorbed whole.
	FragmentThreshold int64

	// GrowOnExhaustion, if false, makes exhaustion of the existing page
	// list fatal instead of allocating a new page. Defaults to true via
	// NewDefaultConfig; the zero value of Config is false, so callers
	// building a Config literal directly must opt in explicitly.
	GrowOnExhaustion bool

	// DiagWriter receives the diagnostic lines written on a fatal
	// allocator failure. Defaults to os.Stderr.
	DiagWriter io.Writer

	// Abort is invoked after a fatal diagnostic has been written and
	// every page released. Defaults to calling os.Exit(2). Tests
	// substitute a non-terminating hook to observe the fatal path.
	Abort func()

	checked bool
}

// NewDefaultConfig returns a Config with GrowOnExhaustion set to true,
// pageSize as given, and fragmentThreshold as given except that a negative
// value becomes 0.
func NewDefaultConfig(pageSize, fragmentThreshold int64) Config {
	return Config{
		PageSize:          pageSize,
		FragmentThreshold: mathutil.MaxInt64(fragmentThreshold, 0),
		GrowOnExhaustion:  true,
	}
}

func (c *Config) diagWriter() io.Writer {
	if c.DiagWriter == nil {
		c.DiagWriter = os.Stderr
	}
	return c.DiagWriter
}

func (c *Config) abort() func() {
	if c.Abort == nil {
		c.Abort = func() { os.Exit(2) }
	}
	return c.Abort
}

func (c *Config) validate() error {
	if c.checked {
		return nil
	}
	if c.PageSize <= H {
		return fmt.Errorf("varheap: PageSize %d must be greater than the header size %d", c.PageSize, H)
	}
	if c.FragmentThreshold < 0 {
		return fmt.Errorf("varheap: FragmentThreshold must be >= 0, got %d", c.FragmentThreshold)
	}
	c.checked = true
	return nil
}

// Manager owns the page list of one allocator instance. Its zero value is
// not usable; construct one with New.
type Manager struct {
	config Config

	pages     []*Page // index-addressable, pages[i].index == i, for O(1) owning-page lookup on Free
	pageCount int32
}

// New creates a Manager and its first page. If the system allocator cannot
// satisfy the first page (out of memory), New reports a fatal diagnostic and
// aborts the process, same as any other fatal path in this package —
// construction has no recoverable failure mode.
func New(config Config) *Manager {
	if err := config.validate(); err != nil {
		panic(err) // a bad Config is a programmer error, not an allocator fault
	}

	m := &Manager{config: config}
	page := m.allocatePage()
	m.pages = append(m.pages, page)
	m.pageCount = 1
	return m
}

// allocatePage is the only place that talks to make([]byte, ...). It exists
// so construction and growth share one fatal-diagnostic path.
func (m *Manager) allocatePage() (page *Page) {
	defer func() {
		if r := recover(); r != nil {
			kind := fatalGrowth
			if len(m.pages) == 0 {
				kind = fatalConstruction
			}
			m.diagnose(kind, fmt.Errorf("system allocator: %v", r))
		}
	}()
	return newPage(m.config.PageSize, int32(len(m.pages)))
}

// Allocate returns a pointer to a writable region of at least size bytes,
// valid until the matching Free. It fails with *ErrOversized if size
// exceeds what any page can ever hold; it aborts the process if no
// candidate block can be found and growth is disabled or growth itself
// fails.
func (m *Manager) Allocate(size int64) (unsafe.Pointer, error) {
	// Every page's real payload capacity is PageSize-H, not PageSize: a
	// request in (PageSize-H, PageSize] would pass a raw PageSize check
	// yet be satisfiable by no page, fresh or otherwise. Comparing
	// against the true payload capacity keeps "a successful Allocate
	// always returns at least the requested bytes" universally true; see
	// DESIGN.md.
	if size > m.config.PageSize-H {
		err := &ErrOversized{Requested: size, PageSize: m.config.PageSize}
		fmt.Fprintln(m.config.diagWriter(), err.Error())
		return nil, err
	}

	size = roundUp(size)

	for _, p := range m.pages {
		// Bug-compatible with the source: a page whose mem_left exactly
		// equals the request is skipped (open question 2, kept
		// deliberately — see DESIGN.md).
		if p.memLeft <= size {
			continue
		}
		if b := findWorstFit(p, size); b != nil {
			place(p, b, size, m.config.FragmentThreshold)
			return b.payload(), nil
		}
	}

	if !m.config.GrowOnExhaustion {
		m.diagnose(fatalNoGrowth, nil)
		return nil, nil // unreachable: diagnose aborts the process
	}

	p := m.requestNewPage()
	b := p.firstHeader()
	place(p, b, size, m.config.FragmentThreshold)
	return b.payload(), nil
}

// findWorstFit returns the available block of maximal size in p that can
// satisfy a request of size rqSize, breaking ties by address order (the
// first such block encountered), or nil if none exists.
func findWorstFit(p *Page, rqSize int64) *Header {
	var best *Header
	for b := p.firstHeader(); b != nil; b = b.Next {
		if !b.Available || b.Size < rqSize {
			continue
		}
		if best == nil || b.Size > best.Size {
			best = b
		}
	}
	return best
}

// place carves rqSize bytes out of b, splitting off the remainder as a new
// free block when the headroom exceeds threshold+H, or absorbing it into the
// used block otherwise.
func place(p *Page, b *Header, rqSize, threshold int64) {
	headroom := b.Size - rqSize
	if headroom > threshold+H {
		n := headerAt(p.buffer, p.headerOffset(b)+H+rqSize)
		*n = Header{
			Next:      b.Next,
			Prev:      b,
			Size:      mathutil.MaxInt64(headroom-H, 0),
			PageIndex: b.PageIndex,
			Available: true,
		}
		if b.Next != nil {
			b.Next.Prev = n
		}
		b.Next = n
		b.Size = rqSize
		p.memLeft -= H // the new free block's header comes out of free space
	}
	b.Available = false
	p.memLeft -= b.Size
}

// requestNewPage allocates a fresh page, appends it to the page list and
// returns it. On system-allocator failure it releases every page already
// held and aborts via the fatal-growth diagnostic.
func (m *Manager) requestNewPage() *Page {
	p := m.allocatePage()
	m.pages = append(m.pages, p)
	m.pageCount++
	return p
}

// Free marks the block headed by ptr available again, coalescing it with
// its immediate forward neighbor and then its backward neighbor if either
// is itself free. ptr must have been returned by this Manager's Allocate
// and not already freed; violating that is undefined behavior and is not
// detected here.
func (m *Manager) Free(ptr unsafe.Pointer) {
	b := headerFromPayload(ptr)
	b.Available = true

	p := m.pages[b.PageIndex]
	p.memLeft += b.Size

	// Forward coalesce. Guarded: a tail block has no Next to absorb.
	if b.Next != nil && b.Next.Available {
		b.Size += b.Next.Size + H
		b.Next = b.Next.Next
		if b.Next != nil {
			// The node just skipped over must no longer be the thing
			// b.Next.Prev points at.
			b.Next.Prev = b
		}
		p.memLeft += H
	}

	// Backward coalesce; sees the already-extended size from above.
	if b.Prev != nil && b.Prev.Available {
		b.Prev.Size += b.Size + H
		b.Prev.Next = b.Next
		if b.Next != nil {
			b.Next.Prev = b.Prev
		}
		p.memLeft += H
	}
}

// releaseAll drops every page this Manager holds. Used both by Destroy and
// by the fatal-diagnostic path.
func (m *Manager) releaseAll() {
	m.pages = nil
	m.pageCount = 0
}

// Destroy releases every page the Manager owns. It does not validate that
// all blocks were freed first.
func (m *Manager) Destroy() {
	m.releaseAll()
}

// Stats summarizes a Manager's current page and block accounting. It is a
// non-normative, read-only extension of the debug-dump collaborator.
type Stats struct {
	Pages      int
	TotalBytes int64
	FreeBytes  int64
	UsedBytes  int64
	LiveBlocks int
	FreeBlocks int
}

// Stats walks every page and block and reports aggregate accounting.
func (m *Manager) Stats() Stats {
	var s Stats
	s.Pages = len(m.pages)
	for _, p := range m.pages {
		s.TotalBytes += int64(len(p.buffer))
		s.FreeBytes += p.memLeft
		for b := p.firstHeader(); b != nil; b = b.Next {
			if b.Available {
				s.FreeBlocks++
			} else {
				s.LiveBlocks++
				s.UsedBytes += b.Size
			}
		}
	}
	return s
}
