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

// Package region reserves, commits and releases ranges of process address
// space at fixed addresses.
//
// A range moves through three states:
//
//	None      - not owned by us.
//	Reserved  - owned, inaccessible, not backed by memory. Reserving must not
//	            fail because of memory pressure alone.
//	Committed - readable and writable, zero filled on first touch.
//
// Reserve moves None to Reserved, Commit moves Reserved to Committed, Decommit
// moves Committed back to Reserved and drops the contents, and Release moves
// any state back to None. Every call operates on the exact address given;
// a mapping the host places anywhere else is reported as ErrPlacementFailed.
//
// System returns the host implementation. Simulated is an in-process double
// for tests and for hosts without fixed-address mappings.
package region

import (
	"github.com/pkg/errors"
)

var (
	// ErrPlacementFailed is returned when the host could not place a mapping
	// at the exact requested address.
	ErrPlacementFailed = errors.New("region: mapping not placed at requested address")

	// ErrReserveFailed is returned when reserving address space fails.
	ErrReserveFailed = errors.New("region: reserve failed")

	// ErrCommitFailed is returned when backing a reserved range fails.
	ErrCommitFailed = errors.New("region: commit failed")

	// ErrDecommitFailed is returned when dropping the backing of a range fails.
	ErrDecommitFailed = errors.New("region: decommit failed")

	// ErrReleaseFailed is returned when returning a reservation fails.
	ErrReleaseFailed = errors.New("region: release failed")

	// ErrUnsupported is returned on hosts without fixed-address mappings.
	ErrUnsupported = errors.New("region: fixed address mappings are not supported on this platform")

	// ErrNoPageSize is returned when the host reports a zero page size.
	ErrNoPageSize = errors.New("region: host reported a zero page size")

	// ErrBadRange is returned for empty, unaligned or wrapping ranges.
	ErrBadRange = errors.New("region: invalid range")
)

// Protection selects the access rights of committed memory.
type Protection int

const (
	// ReadWrite memory can be read and written.
	ReadWrite Protection = iota
	// ReadWriteExec memory can additionally be executed.
	ReadWriteExec
)

func (p Protection) String() string {
	if p == ReadWriteExec {
		return "rwx"
	}
	return "rw-"
}

// Mapper is the set of host primitives needed to manage fixed-address ranges.
// All addresses and lengths must be multiples of PageSize.
type Mapper interface {
	// PageSize returns the host allocation granularity.
	PageSize() int
	// Reserve claims [addr, addr+length) without backing it.
	Reserve(addr, length uintptr) error
	// Commit backs [addr, addr+length), which must lie in a reservation.
	Commit(addr, length uintptr, prot Protection) error
	// Decommit drops the backing of [addr, addr+length). The range stays
	// reserved and reads as zero after the next Commit.
	Decommit(addr, length uintptr) error
	// Release returns the reservation starting at addr.
	Release(addr, length uintptr) error
	// View returns the committed bytes [addr, addr+length).
	View(addr, length uintptr) []byte
}

// checkRange validates that a range is non-empty, page aligned and does not
// wrap around the address space.
func checkRange(addr, length uintptr, pageSize int) error {
	ps := uintptr(pageSize)
	switch {
	case length == 0:
		return errors.Wrapf(ErrBadRange, "empty range at %#x", addr)
	case addr%ps != 0 || length%ps != 0:
		return errors.Wrapf(ErrBadRange, "range %#x+%d not aligned to %d", addr, length, ps)
	case addr+length < addr:
		return errors.Wrapf(ErrBadRange, "range %#x+%d wraps", addr, length)
	}
	return nil
}
