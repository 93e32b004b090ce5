// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varheap

import "fmt"

// Verify re-checks the allocator's structural invariants (header chain
// contiguity, no two adjacent free blocks, conservation of bytes, and
// memLeft accounting) and returns an error describing the first one it
// finds violated, or nil if none is. Verify is read-only and not
// load-bearing for Allocate/Free correctness — it exists for tests and
// paranoid callers.
func (m *Manager) Verify() error {
	for _, p := range m.pages {
		if err := verifyPage(p); err != nil {
			return fmt.Errorf("page %d: %w", p.index, err)
		}
	}
	return nil
}

func verifyPage(p *Page) error {
	var (
		sum        int64
		freeSum    int64
		prevAvail  = false
		prev       *Header
		sawHeaders int
	)

	for b := p.firstHeader(); b != nil; b = b.Next {
		sawHeaders++
		if sawHeaders > len(p.buffer)/int(H)+1 {
			return fmt.Errorf("header chain does not terminate within page bounds")
		}

		if b.Prev != prev {
			return fmt.Errorf("block at offset %d has prev link %s, want %s",
				p.headerOffset(b), hexAddr(b.Prev), hexAddr(prev))
		}

		if b.Next != nil {
			wantOff := p.headerOffset(b) + H + b.Size
			gotOff := p.headerOffset(b.Next)
			if gotOff != wantOff {
				return fmt.Errorf("block at offset %d: next header at offset %d, want %d (size %d)",
					p.headerOffset(b), gotOff, wantOff, b.Size)
			}
		}

		if b.Available && prevAvail {
			return fmt.Errorf("two adjacent free blocks at offset %d", p.headerOffset(b))
		}

		sum += H + b.Size
		if b.Available {
			freeSum += b.Size
		}

		prevAvail = b.Available
		prev = b
	}

	if sum != int64(len(p.buffer)) {
		return fmt.Errorf("blocks sum to %d bytes, page is %d bytes", sum, len(p.buffer))
	}
	if freeSum != p.memLeft {
		return fmt.Errorf("sum of free block sizes %d does not match memLeft %d", freeSum, p.memLeft)
	}
	return nil
}
