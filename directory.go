/*
 * Copyright 2026 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mist

import (
	"github.com/dgraph-io/mist/y"
)

// directory is the engine's fixed-capacity table of live bags. IDs are slot
// indices; a released bag frees its slot for the next one.
type directory struct {
	bags []*Bag
	// current is the ID handed out last.
	current BagID
	live    int
}

func newDirectory(capacity int) *directory {
	return &directory{bags: make([]*Bag, capacity)}
}

func (d *directory) full() bool { return d.live == len(d.bags) }

// add stores b in the first free slot and returns its ID. The caller checks
// full first.
func (d *directory) add(b *Bag) BagID {
	y.AssertTruef(!d.full(), "directory of %d bags is full", len(d.bags))
	for i, slot := range d.bags {
		if slot == nil {
			d.bags[i] = b
			d.current = BagID(i)
			d.live++
			return d.current
		}
	}
	panic("unreachable")
}

func (d *directory) get(id BagID) *Bag {
	if id < 0 || int(id) >= len(d.bags) {
		return nil
	}
	return d.bags[id]
}

func (d *directory) remove(id BagID) {
	if d.get(id) == nil {
		return
	}
	d.bags[id] = nil
	d.live--
}

// all returns the live bags in ID order.
func (d *directory) all() []*Bag {
	out := make([]*Bag, 0, d.live)
	for _, b := range d.bags {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}
