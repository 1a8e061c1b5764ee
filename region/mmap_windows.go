//go:build windows

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

package region

import (
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// errInvalidAddress is ERROR_INVALID_ADDRESS, returned by VirtualAlloc when
// the requested range is already in use.
const errInvalidAddress = syscall.Errno(487)

func hostPageSize() int {
	return windows.Getpagesize()
}

type systemMapper struct {
	pageSize int
}

func newSystemMapper(pageSize int) (Mapper, error) {
	return &systemMapper{pageSize: pageSize}, nil
}

func (m *systemMapper) PageSize() int { return m.pageSize }

func (m *systemMapper) Reserve(addr, length uintptr) error {
	if err := checkRange(addr, length, m.pageSize); err != nil {
		return err
	}
	got, err := windows.VirtualAlloc(addr, length, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		if err == errInvalidAddress {
			return errors.Wrapf(ErrPlacementFailed, "reserve %#x+%d: range in use", addr, length)
		}
		return errors.Wrapf(ErrReserveFailed, "reserve %#x+%d: %v", addr, length, err)
	}
	if got != addr {
		_ = windows.VirtualFree(got, 0, windows.MEM_RELEASE)
		return errors.Wrapf(ErrPlacementFailed, "reserve %#x+%d: placed at %#x", addr, length, got)
	}
	return nil
}

func (m *systemMapper) Commit(addr, length uintptr, prot Protection) error {
	if err := checkRange(addr, length, m.pageSize); err != nil {
		return err
	}
	var p uint32 = windows.PAGE_READWRITE
	if prot == ReadWriteExec {
		p = windows.PAGE_EXECUTE_READWRITE
	}
	got, err := windows.VirtualAlloc(addr, length, windows.MEM_COMMIT, p)
	if err != nil {
		return errors.Wrapf(ErrCommitFailed, "commit %#x+%d: %v", addr, length, err)
	}
	if got != addr {
		return errors.Wrapf(ErrPlacementFailed, "commit %#x+%d: placed at %#x", addr, length, got)
	}
	return nil
}

// Decommit releases the physical pages. MEM_DECOMMIT guarantees zeroed pages
// on the next commit, which MEM_RESET does not.
func (m *systemMapper) Decommit(addr, length uintptr) error {
	if err := checkRange(addr, length, m.pageSize); err != nil {
		return err
	}
	if err := windows.VirtualFree(addr, length, windows.MEM_DECOMMIT); err != nil {
		return errors.Wrapf(ErrDecommitFailed, "decommit %#x+%d: %v", addr, length, err)
	}
	return nil
}

// Release frees the whole reservation; MEM_RELEASE requires a zero length.
func (m *systemMapper) Release(addr, length uintptr) error {
	if err := checkRange(addr, length, m.pageSize); err != nil {
		return err
	}
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return errors.Wrapf(ErrReleaseFailed, "release %#x+%d: %v", addr, length, err)
	}
	return nil
}

func (m *systemMapper) View(addr, length uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
}
