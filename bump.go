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

// bumpAllocator hands out consecutive runs of a bag in increasing address
// order. It never frees; the cursor only moves back when trailing frames are
// decommitted.
type bumpAllocator struct {
	width uint16
	align uint16
	// alignedWidth is width rounded up to align. Zero for untyped bags.
	alignedWidth uintptr
	// cursor is the offset of the next free byte.
	cursor uintptr
	allocs uint64
}

func newBumpAllocator(width, align uint16) bumpAllocator {
	return bumpAllocator{
		width:        width,
		align:        align,
		alignedWidth: alignUp(uintptr(width), uintptr(align)),
	}
}

func (ba *bumpAllocator) typed() bool { return ba.alignedWidth > 0 }

// resolve returns the bytes taken by a request for size bytes. Typed bags only
// take size 0, which stands for one element.
func (ba *bumpAllocator) resolve(size int) (uintptr, error) {
	switch {
	case size < 0:
		return 0, ErrInvalidSize
	case ba.typed() && size != 0:
		return 0, ErrSizeMismatch
	case ba.typed():
		return ba.alignedWidth, nil
	case size == 0:
		return 0, ErrInvalidSize
	}
	return alignUp(uintptr(size), uintptr(ba.align)), nil
}

// advance moves the cursor past n bytes and returns where the run starts.
// ok is false when the cursor would wrap.
func (ba *bumpAllocator) advance(n uintptr) (start, next uintptr, ok bool) {
	start = ba.cursor
	next = start + n
	return start, next, next >= start
}
