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

// Offset locates a byte in a bag, counted from the bag base.
type Offset uint64

// alignUp rounds n up to a multiple of a. An alignment of zero or one leaves n
// unchanged. The caller ensures n+a-1 does not overflow.
func alignUp(n, a uintptr) uintptr {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}

// alignDown rounds n down to a multiple of a.
func alignDown(n, a uintptr) uintptr {
	if a <= 1 {
		return n
	}
	return n - n%a
}

// frameIndex returns the index of the frame holding addr in a bag that starts
// at base. Frames are counted from the bag base, which need not be aligned to
// the frame size.
func frameIndex(base, addr, frameSize uintptr) uintptr {
	return alignDown(addr-base, frameSize) / frameSize
}

// framesFor returns how many frames back the first n bytes of a bag.
func framesFor(n, frameSize uintptr) uintptr {
	if n == 0 {
		return 0
	}
	return (n-1)/frameSize + 1
}

// mulFits reports whether a*b fits in a uintptr.
func mulFits(a, b uintptr) bool {
	if a == 0 || b == 0 {
		return true
	}
	return a*b/b == a
}
