// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mergetree

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/mergetree/mergetree/batch"
	"github.com/stretchr/testify/require"
)

var frontierSchema = batch.MustSchema(batch.ColumnDesc{Name: "k", Type: batch.ColumnTypeUint64})

func singleKeyBatch(k uint64) *batch.Batch {
	b, err := batch.New(frontierSchema, []batch.Column{batch.MakeUint64Column([]uint64{k})})
	if err != nil {
		panic(err)
	}
	return b
}

func TestMergeFrontier(t *testing.T) {
	seed := time.Now().UnixNano()
	t.Logf("Using seed %d", seed)
	rng := rand.New(rand.NewPCG(0, uint64(seed)))

	// A small key space, so that equal keys are common and the ordinal
	// tie-break is exercised.
	makeKey := func() uint64 { return uint64(rng.IntN(8)) }

	cursors := make([]*sourceCursor, 2+rng.IntN(15))
	var h mergeFrontier
	for i := range cursors {
		cursors[i] = &sourceCursor{ordinal: i, keyCols: []int{0}, b: singleKeyBatch(makeKey())}
		h.items = append(h.items, frontierItem{sourceCursor: cursors[i]})
	}
	live := func(c *sourceCursor) bool { return c.b != nil }
	checkHeap := func() {
		count := 0
		var smallest *sourceCursor
		for _, c := range cursors {
			if !live(c) {
				continue
			}
			count++
			if smallest == nil || c.compare(smallest) < 0 {
				smallest = c
			}
		}
		require.Equal(t, count, h.len())
		if count == 0 {
			return
		}
		require.Equal(t, smallest.ordinal, h.top().ordinal)
		for i := 1; i < h.len(); i++ {
			require.False(t, h.less(i, (i-1)/2), "heap property violated at %d", i)
		}
	}
	h.init()
	checkHeap()
	for i := 0; i < 100 && h.len() > 0; i++ {
		top := h.top()
		switch rng.IntN(10) {
		case 0:
			t.Logf("%d: popping source %d", i, top.ordinal)
			top.close()
			require.Equal(t, top, h.pop())
		case 1:
			if c := cursors[rng.IntN(len(cursors))]; !live(c) {
				t.Logf("%d: pushing source %d", i, c.ordinal)
				c.b = singleKeyBatch(makeKey())
				h.push(c)
				break
			}
			fallthrough
		default:
			k := makeKey()
			t.Logf("%d: source %d advances to %d", i, top.ordinal, k)
			top.b.Unref()
			top.b = singleKeyBatch(k)
			h.fixTop()
		}
		checkHeap()
	}
}

func TestMergeFrontierTieBreak(t *testing.T) {
	var h mergeFrontier
	for _, ord := range []int{3, 1, 2, 0} {
		h.items = append(h.items, frontierItem{sourceCursor: &sourceCursor{
			ordinal: ord, keyCols: []int{0}, b: singleKeyBatch(7),
		}})
	}
	h.init()
	var order []int
	for h.len() > 0 {
		order = append(order, h.pop().ordinal)
	}
	require.Equal(t, []int{0, 1, 2, 3}, order)
}
