// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varheap

import (
	"fmt"
	"io"
)

// hexAddr renders h's address: a null Header renders as the literal "0",
// never "0x0".
func hexAddr(h *Header) string {
	a := h.addr()
	if a == 0 {
		return "0"
	}
	return fmt.Sprintf("%#x", a)
}

// Dump writes the debug representation of every page and block, in address
// order, to w. The format is fixed, for diff-based testing of structure;
// the literal address values are not stable across runs or processes and
// tests must not compare them.
//
// Dump is a read-only collaborator surface, not load-bearing for
// correctness.
func (m *Manager) Dump(w io.Writer) error {
	for _, p := range m.pages {
		if _, err := fmt.Fprintf(w, "Page : %d\n", p.index); err != nil {
			return err
		}
		for b := p.firstHeader(); b != nil; b = b.Next {
			if err := dumpBlock(w, p, b); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func dumpBlock(w io.Writer, p *Page, b *Header) error {
	avail := 0
	if b.Available {
		avail = 1
	}
	if _, err := fmt.Fprintf(w, "Meta Data Address: %s\n", hexAddr(b)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Next Node Address: %s\n", hexAddr(b.Next)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Prev Node Address: %s\n", hexAddr(b.Prev)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Memory Size : %d\n", b.Size); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Availability : %d\n", avail); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Address | Memory Content"); err != nil {
		return err
	}

	off := p.headerOffset(b) + H
	payload := p.buffer[off : off+b.Size]
	base := uintptr(b.addr()) + uintptr(H)
	for i, c := range payload {
		if _, err := fmt.Fprintf(w, "%#x | %#02x\n", base+uintptr(i), c); err != nil {
			return err
		}
	}
	return nil
}
