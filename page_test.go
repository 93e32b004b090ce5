// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varheap

import "testing"

func TestNewPageSingleFreeBlock(t *testing.T) {
	const pageSize = 5120
	p := newPage(pageSize, 3)

	if int64(len(p.buffer)) != pageSize {
		t.Fatalf("len(buffer) = %d, want %d", len(p.buffer), pageSize)
	}
	if p.index != 3 {
		t.Fatalf("index = %d, want 3", p.index)
	}

	h := p.firstHeader()
	if h.Next != nil {
		t.Fatalf("Next = %p, want nil", h.Next)
	}
	if h.Prev != nil {
		t.Fatalf("Prev = %p, want nil", h.Prev)
	}
	if !h.Available {
		t.Fatal("initial block not available")
	}
	if h.PageIndex != 3 {
		t.Fatalf("PageIndex = %d, want 3", h.PageIndex)
	}
	if want := int64(pageSize) - H; h.Size != want {
		t.Fatalf("Size = %d, want %d", h.Size, want)
	}
	if p.memLeft != h.Size {
		t.Fatalf("memLeft = %d, want %d", p.memLeft, h.Size)
	}
	if err := verifyPage(p); err != nil {
		t.Fatal(err)
	}
}
