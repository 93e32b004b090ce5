// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Varheapdemo drives a Manager through a randomized alloc/free workload:
// picking random sizes, holding a growing set of live blocks, freeing a
// random subset each round, optionally dumping allocator state every few
// rounds, and reporting stats once at the end. It is a
// demonstration collaborator, not a benchmark or a test.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"unsafe"

	"github.com/MetatronEX/varheap"
)

var (
	pageSize   = flag.Int64("page", 64*varheap.KILO, "page size in bytes")
	threshold  = flag.Int64("threshold", 32, "fragmentation threshold in bytes")
	maxLive    = flag.Int("n", 200, "target number of concurrently live blocks")
	maxBlock   = flag.Int64("max", 2*varheap.KILO, "maximum single allocation size")
	rounds     = flag.Int("rounds", 50, "number of alloc/free rounds to run")
	dumpEvery  = flag.Int("dump-every", 0, "dump allocator state every N rounds (0 disables)")
	randomSeed = flag.Int64("seed", 42, "PRNG seed")
)

type liveBlock struct {
	ptr  unsafe.Pointer
	size int64
}

func main() {
	flag.Parse()
	log.SetFlags(log.Flags() | log.Lshortfile)

	m := varheap.New(varheap.NewDefaultConfig(*pageSize, *threshold))
	rng := rand.New(rand.NewSource(*randomSeed))

	var live []liveBlock
	for round := 0; round < *rounds; round++ {
		for len(live) < *maxLive {
			size := int64(rng.Intn(int(*maxBlock))) + 1
			ptr, err := m.Allocate(size)
			if err != nil {
				log.Printf("round %d: allocate(%d): %v", round, size, err)
				break
			}
			live = append(live, liveBlock{ptr, size})
		}

		for nfree := len(live) / 3; nfree != 0 && len(live) > 0; nfree-- {
			i := rng.Intn(len(live))
			m.Free(live[i].ptr)
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
		}

		if err := m.Verify(); err != nil {
			log.Fatalf("round %d: invariant violated: %v", round, err)
		}

		if *dumpEvery != 0 && round%*dumpEvery == 0 {
			if err := m.Dump(os.Stdout); err != nil {
				log.Fatal(err)
			}
		}
	}

	stats := m.Stats()
	fmt.Printf("pages=%d total=%d free=%d used=%d live-blocks=%d free-blocks=%d\n",
		stats.Pages, stats.TotalBytes, stats.FreeBytes, stats.UsedBytes,
		stats.LiveBlocks, stats.FreeBlocks)
}
