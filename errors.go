// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varheap

import "fmt"

// ErrOversized is returned by Allocate when the request cannot possibly fit
// in any page this Manager will ever create. It is non-fatal: the caller
// gets this value back and decides what to do.
type ErrOversized struct {
	Requested int64
	PageSize  int64
}

func (e *ErrOversized) Error() string {
	return fmt.Sprintf("varheap: requested %d bytes exceeds the %d-byte payload of a %d-byte page", e.Requested, e.PageSize-H, e.PageSize)
}

// fatalKind distinguishes the fatal paths only for the wording of the
// diagnostic line; all of them abort the process identically.
type fatalKind int

const (
	fatalConstruction fatalKind = iota
	fatalGrowth
	fatalNoGrowth
)

// diagnose writes a diagnostic line for a fatal allocator failure to
// m.config.DiagWriter, then invokes m.config.Abort. Tests substitute both so
// this path is exercisable without terminating the test binary.
func (m *Manager) diagnose(kind fatalKind, cause error) {
	switch kind {
	case fatalConstruction:
		fmt.Fprintf(m.config.diagWriter(), "Bad Allocation detected during construction. Application Terminated.\n")
	default:
		fmt.Fprintf(m.config.diagWriter(), "Bad Allocation detected. Application Terminated.\n")
	}
	if cause != nil {
		fmt.Fprintf(m.config.diagWriter(), "cause: %v\n", cause)
	}
	m.releaseAll()
	m.config.abort()()
}
