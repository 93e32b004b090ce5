// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varheap

import (
	"flag"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"unsafe"

	"github.com/cznic/sortutil"
)

// Flags mirror lldb/falloc_test.go's randomized-test knobs: a block count
// and a size limit, tunable from the command line for longer soak runs.
var (
	fuzzBlocks = flag.Int("fuzzblocks", 256, "pVerifier randomized test: live block count target")
	fuzzRounds = flag.Int("fuzzrounds", 40, "pVerifier randomized test: number of alloc/free rounds")
	fuzzLimit  = flag.Int64("fuzzlimit", 2*KILO, "pVerifier randomized test: max single allocation size")
)

// pVerifier wraps a Manager the way lldb/falloc_test.go's pAllocator wraps
// an Allocator: every call re-checks the invariants and fails the test at
// the first violation, naming the call that caused it.
type pVerifier struct {
	*Manager
	t    *testing.T
	live map[unsafe.Pointer]int64
}

func newPVerifier(t *testing.T, cfg Config) *pVerifier {
	return &pVerifier{Manager: New(cfg), t: t, live: map[unsafe.Pointer]int64{}}
}

func (v *pVerifier) alloc(size int64) unsafe.Pointer {
	ptr, err := v.Manager.Allocate(size)
	if err != nil {
		v.t.Fatalf("Allocate(%d): %v", size, err)
	}
	if err := v.Manager.Verify(); err != nil {
		v.t.Fatalf("Allocate(%d): invariant violated: %v", size, err)
	}
	if _, dup := v.live[ptr]; dup {
		v.t.Fatalf("Allocate(%d) returned a pointer already live: %#x", size, uintptr(ptr))
	}
	v.live[ptr] = roundUp(size)
	v.checkDisjoint()
	return ptr
}

func (v *pVerifier) free(ptr unsafe.Pointer) {
	v.Manager.Free(ptr)
	if err := v.Manager.Verify(); err != nil {
		v.t.Fatalf("Free(%#x): invariant violated: %v", uintptr(ptr), err)
	}
	delete(v.live, ptr)
}

// checkDisjoint sorts every live block's [start, end) interval by start
// address and confirms no two intervals overlap — no two live allocations
// may ever share a byte.
func (v *pVerifier) checkDisjoint() {
	type span struct{ lo, hi uintptr }
	spans := make([]span, 0, len(v.live))
	addrs := make([]int64, 0, len(v.live))
	bySize := map[int64]int64{}
	for ptr, size := range v.live {
		lo := uintptr(ptr)
		spans = append(spans, span{lo, lo + uintptr(size)})
		addrs = append(addrs, int64(lo))
		bySize[int64(lo)] = size
	}

	sort.Sort(sortutil.Int64Slice(addrs))

	for i := 1; i < len(addrs); i++ {
		prevLo := uintptr(addrs[i-1])
		prevHi := prevLo + uintptr(bySize[addrs[i-1]])
		curLo := uintptr(addrs[i])
		if curLo < prevHi {
			v.t.Fatalf("overlapping live blocks: [%#x,%#x) and [%#x,...)", prevLo, prevHi, curLo)
		}
	}
}

func TestManagerRandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := Config{PageSize: 64 * KILO, FragmentThreshold: 32, GrowOnExhaustion: true}
	v := newPVerifier(t, cfg)

	var ptrs []unsafe.Pointer
	for round := 0; round < *fuzzRounds; round++ {
		for len(ptrs) < *fuzzBlocks {
			size := rng.Int63n(*fuzzLimit) + 1
			ptrs = append(ptrs, v.alloc(size))
		}

		for nfree := len(ptrs) / 3; nfree != 0 && len(ptrs) > 0; nfree-- {
			i := rng.Intn(len(ptrs))
			v.free(ptrs[i])
			ptrs[i] = ptrs[len(ptrs)-1]
			ptrs = ptrs[:len(ptrs)-1]
		}
	}

	for _, ptr := range ptrs {
		v.free(ptr)
	}
	if len(v.live) != 0 {
		t.Fatalf("leaked %d tracked blocks", len(v.live))
	}

	stats := v.Stats()
	if stats.UsedBytes != 0 || stats.LiveBlocks != 0 {
		t.Fatalf("Stats after freeing everything: %+v, want zero used/live", stats)
	}
	for i, p := range v.Manager.pages {
		if p.memLeft != int64(len(p.buffer))-H {
			t.Fatalf("page %d: memLeft %d after draining, want the whole page minus one header: %s",
				i, p.memLeft, fmt.Sprintf("%d", int64(len(p.buffer))-H))
		}
	}
}
