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

import "fmt"

// Range is a span of address space [Base, Base+Size).
type Range struct {
	Base uintptr
	Size uintptr
}

// End returns the first address past the range.
func (r Range) End() uintptr { return r.Base + r.Size }

// Contains reports whether v lies in the range. The bounds are inclusive or
// exclusive as requested, so Contains(v, true, false) is the half-open test.
func (r Range) Contains(v uintptr, inclusiveLow, inclusiveHigh bool) bool {
	lo, hi := r.Base, r.End()
	if v < lo || (v == lo && !inclusiveLow) {
		return false
	}
	if v > hi || (v == hi && !inclusiveHigh) {
		return false
	}
	return true
}

// Overlaps reports whether the two half-open ranges share an address.
func (r Range) Overlaps(o Range) bool {
	if r.Size == 0 || o.Size == 0 {
		return false
	}
	return r.Base < o.End() && o.Base < r.End()
}

func (r Range) String() string {
	return fmt.Sprintf("[%#x, %#x)", r.Base, r.End())
}
