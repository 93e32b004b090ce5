// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varheap

import "unsafe"

// headerAlign is the alignment every block boundary is kept on. It equals
// the alignment Header itself requires, so a Header placed at any
// header-aligned offset inside a page buffer is safe to dereference via
// unsafe.Pointer.
const headerAlign = unsafe.Alignof(Header{})

// Header is the inline metadata record placed immediately before every
// block's payload inside a page. Headers for one page form a doubly linked,
// address-ordered list: walking Next from the first Header of a page visits
// every block in the page and ends in nil.
//
// A Header is never allocated on its own; it always lives at some offset
// inside a Page's buffer, reached by reinterpreting those bytes via
// unsafe.Pointer. The page that owns the buffer is kept alive for as long as
// any Header (or payload pointer) inside it is reachable, because Page.buffer
// holds the only root keeping that memory from being collected — the Next
// and Prev links below are not scanned by the garbage collector and must
// never be allowed to be the sole reference to live memory.
type Header struct {
	Next      *Header
	Prev      *Header
	Size      int64 // payload bytes following this header, excluding H
	PageIndex int32
	Available bool
}

// H is the number of bytes every Header occupies. It is a true Go constant:
// unsafe.Sizeof of a fixed-layout struct is evaluated at compile time.
const H = int64(unsafe.Sizeof(Header{}))

// roundUp rounds n up to the next multiple of headerAlign. Requested
// allocation sizes are rounded through this before any split decision is
// made, so that every Header this package ever places — including the one a
// split manufactures at B + H + size — lands on a headerAlign boundary.
func roundUp(n int64) int64 {
	a := int64(headerAlign)
	return (n + a - 1) &^ (a - 1)
}

// headerAt reinterprets the bytes of buf starting at off as a Header.
// The caller must guarantee off is header-aligned and off+H <= len(buf).
func headerAt(buf []byte, off int64) *Header {
	return (*Header)(unsafe.Pointer(&buf[off]))
}

// payload returns the address of the first payload byte following h.
func (h *Header) payload() unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(h)) + uintptr(H))
}

// headerFromPayload recovers the Header immediately preceding ptr, the
// inverse of Header.payload.
func headerFromPayload(ptr unsafe.Pointer) *Header {
	return (*Header)(unsafe.Pointer(uintptr(ptr) - uintptr(H)))
}

// addr is the identity of a Header for diagnostic/dump purposes only; it is
// never used to make allocation decisions.
func (h *Header) addr() uintptr {
	if h == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(h))
}
