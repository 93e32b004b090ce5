// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varheap

// Size-unit constants, provided purely for readability at call sites that
// pick a PageSize.
const (
	KILO = 1024
	MEGA = 1024 * KILO
	GIGA = 1024 * MEGA
)
