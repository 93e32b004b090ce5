// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varheap

import "github.com/cznic/mathutil"

// Page is one contiguous byte buffer obtained from the system allocator via
// make, plus the bookkeeping a Manager needs to sub-allocate inside it. A
// freshly created Page holds exactly one free block spanning its entire
// payload area.
//
// Pages are chained logically by Manager.pages, an index-addressable slice,
// rather than by a next pointer on Page itself: that makes owning-page
// lookup on Free an O(1) index instead of an O(pages) walk. Head-to-tail
// scan order is preserved by iterating the slice in order.
type Page struct {
	buffer  []byte // owns the backing array; never resliced after newPage
	memLeft int64  // free payload bytes in this page, excluding free headers
	index   int32  // 0-based, assigned at creation, stable for the page's life
}

// newPage allocates a fresh buffer of exactly size bytes and carves it into
// a single free block.
func newPage(size int64, index int32) *Page {
	buf := make([]byte, size)
	payload := mathutil.MaxInt64(size-H, 0)
	root := headerAt(buf, 0)
	*root = Header{
		Size:      payload,
		PageIndex: index,
		Available: true,
	}
	return &Page{
		buffer:  buf,
		memLeft: payload,
		index:   index,
	}
}

// firstHeader returns the Header at the start of the page's payload area.
func (p *Page) firstHeader() *Header {
	return headerAt(p.buffer, 0)
}

// headerOffset returns h's byte offset within p.buffer. It is used by place
// to position a split-off header, and by Dump and the invariant checks.
func (p *Page) headerOffset(h *Header) int64 {
	return int64(h.addr() - p.firstHeader().addr())
}
