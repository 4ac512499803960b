// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mergetree

import "github.com/mergetree/mergetree/internal/invariants"

// mergeFrontier is a min-heap of the cursors of all non-exhausted sources.
// The top is the cursor positioned at the smallest key; equal keys are
// ordered by source ordinal so that merge order is reproducible.
//
// REQUIRES: Every cursor in the heap is positioned at a row.
type mergeFrontier struct {
	items []frontierItem
}

type frontierItem struct {
	*sourceCursor
	// winnerChild caches which child of this node is smaller. It is
	// invalidated whenever either child changes.
	winnerChild winnerChild
}

type winnerChild uint8

const (
	winnerChildUnknown winnerChild = iota
	winnerChildLeft
	winnerChildRight
)

// len returns the number of elements in the heap.
func (h *mergeFrontier) len() int {
	return len(h.items)
}

// clear empties the heap.
func (h *mergeFrontier) clear() {
	h.items = h.items[:0]
}

// top returns the cursor with the smallest key without removing it.
func (h *mergeFrontier) top() *sourceCursor {
	return h.items[0].sourceCursor
}

// less is an internal method, to compare the elements at i and j.
func (h *mergeFrontier) less(i, j int) bool {
	return h.items[i].compare(h.items[j].sourceCursor) < 0
}

// swap is an internal method, used to swap the elements at i and j.
func (h *mergeFrontier) swap(i, j int) {
	h.items[i].sourceCursor, h.items[j].sourceCursor =
		h.items[j].sourceCursor, h.items[i].sourceCursor
}

// init initializes the heap.
func (h *mergeFrontier) init() {
	for i := range h.items {
		h.items[i].winnerChild = winnerChildUnknown
	}
	// heapify
	n := h.len()
	for i := n/2 - 1; i >= 0; i-- {
		h.down(i, n)
	}
}

// push adds a cursor to the heap.
func (h *mergeFrontier) push(c *sourceCursor) {
	h.items = append(h.items, frontierItem{sourceCursor: c})
	h.up(h.len() - 1)
}

// fixTop restores the heap property after the top cursor has advanced.
func (h *mergeFrontier) fixTop() {
	h.down(0, h.len())
}

// pop removes the top of the heap.
func (h *mergeFrontier) pop() *sourceCursor {
	n := h.len() - 1
	h.swap(0, n)
	// Index n is removed, so its parent is left with at most one child and
	// its winnerChild is never consulted.
	h.down(0, n)
	item := h.items[n]
	h.items[n] = frontierItem{}
	h.items = h.items[:n]
	return item.sourceCursor
}

// up is an internal method. It moves j up the heap until the heap property
// is restored. Every ancestor on the way has a changed child, so its cached
// winner is discarded.
func (h *mergeFrontier) up(j int) {
	for j > 0 {
		i := (j - 1) / 2 // parent
		h.items[i].winnerChild = winnerChildUnknown
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

// down is an internal method. It moves i down the heap, which has length n,
// until the heap property is restored.
func (h *mergeFrontier) down(i, n int) {
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 { // j1 < 0 after int overflow
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n {
			if h.items[i].winnerChild == winnerChildUnknown {
				if h.less(j2, j1) {
					h.items[i].winnerChild = winnerChildRight
				} else {
					h.items[i].winnerChild = winnerChildLeft
				}
			} else if invariants.Enabled {
				wc := winnerChildUnknown
				if h.less(j1, j2) {
					wc = winnerChildLeft
				} else if h.less(j2, j1) {
					wc = winnerChildRight
				}
				if wc != winnerChildUnknown && wc != h.items[i].winnerChild {
					panic("winnerChild mismatch")
				}
			}
			if h.items[i].winnerChild == winnerChildRight {
				j = j2 // = 2*i + 2  // right child
			}
		}
		if !h.less(j, i) {
			break
		}
		// NB: j is a child of i.
		h.swap(i, j)
		h.items[i].winnerChild = winnerChildUnknown
		i = j
	}
}
