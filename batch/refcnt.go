// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package batch

import "sync/atomic"

// refcnt provides an atomic reference count.
type refcnt int32

// initialize the reference count to the specified value.
func (v *refcnt) init(val int32) {
	*v = refcnt(val)
}

func (v *refcnt) refs() int32 {
	return atomic.LoadInt32((*int32)(v))
}

func (v *refcnt) acquire() {
	atomic.AddInt32((*int32)(v), 1)
}

// release drops a reference and reports whether it was the last one.
func (v *refcnt) release() bool {
	switch n := atomic.AddInt32((*int32)(v), -1); {
	case n < 0:
		panic("batch: reference count went negative")
	default:
		return n == 0
	}
}
