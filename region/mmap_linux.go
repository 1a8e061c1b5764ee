//go:build linux && (amd64 || arm64 || ppc64le || riscv64 || s390x)

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
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// Reserved ranges are PROT_NONE and never count against overcommit.
	reserveFlags = unix.MAP_PRIVATE | unix.MAP_ANONYMOUS | unix.MAP_NORESERVE
	commitFlags  = unix.MAP_PRIVATE | unix.MAP_ANONYMOUS | unix.MAP_FIXED
)

func hostPageSize() int {
	return unix.Getpagesize()
}

type systemMapper struct {
	pageSize int
}

func newSystemMapper(pageSize int) (Mapper, error) {
	return &systemMapper{pageSize: pageSize}, nil
}

// mmap calls mmap(2) directly; unix.Mmap cannot take an address hint.
func mmap(addr, length uintptr, prot, flags int) (uintptr, error) {
	r, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, length, uintptr(prot), uintptr(flags),
		^uintptr(0), 0)
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

func munmap(addr, length uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, length, 0); errno != 0 {
		return errno
	}
	return nil
}

func (m *systemMapper) PageSize() int { return m.pageSize }

func (m *systemMapper) Reserve(addr, length uintptr) error {
	if err := checkRange(addr, length, m.pageSize); err != nil {
		return err
	}
	got, err := mmap(addr, length, unix.PROT_NONE, reserveFlags|unix.MAP_FIXED_NOREPLACE)
	if err == unix.EEXIST {
		return errors.Wrapf(ErrPlacementFailed, "reserve %#x+%d: range in use", addr, length)
	}
	if err != nil {
		return errors.Wrapf(ErrReserveFailed, "reserve %#x+%d: %v", addr, length, err)
	}
	if got != addr {
		// Kernels older than 4.17 treat MAP_FIXED_NOREPLACE as a plain hint.
		_ = munmap(got, length)
		return errors.Wrapf(ErrPlacementFailed, "reserve %#x+%d: placed at %#x", addr, length, got)
	}
	return nil
}

func (m *systemMapper) Commit(addr, length uintptr, prot Protection) error {
	if err := checkRange(addr, length, m.pageSize); err != nil {
		return err
	}
	p := unix.PROT_READ | unix.PROT_WRITE
	if prot == ReadWriteExec {
		p |= unix.PROT_EXEC
	}
	got, err := mmap(addr, length, p, commitFlags)
	if err != nil {
		return errors.Wrapf(ErrCommitFailed, "commit %#x+%d: %v", addr, length, err)
	}
	if got != addr {
		return errors.Wrapf(ErrPlacementFailed, "commit %#x+%d: placed at %#x", addr, length, got)
	}
	return nil
}

// Decommit maps fresh PROT_NONE pages over the range, which drops the old
// pages and leaves the range reserved.
func (m *systemMapper) Decommit(addr, length uintptr) error {
	if err := checkRange(addr, length, m.pageSize); err != nil {
		return err
	}
	got, err := mmap(addr, length, unix.PROT_NONE, reserveFlags|unix.MAP_FIXED)
	if err != nil {
		return errors.Wrapf(ErrDecommitFailed, "decommit %#x+%d: %v", addr, length, err)
	}
	if got != addr {
		return errors.Wrapf(ErrPlacementFailed, "decommit %#x+%d: placed at %#x", addr, length, got)
	}
	return nil
}

func (m *systemMapper) Release(addr, length uintptr) error {
	if err := checkRange(addr, length, m.pageSize); err != nil {
		return err
	}
	if err := munmap(addr, length); err != nil {
		return errors.Wrapf(ErrReleaseFailed, "release %#x+%d: %v", addr, length, err)
	}
	return nil
}

func (m *systemMapper) View(addr, length uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
}
