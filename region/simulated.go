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
	"sync"

	"github.com/dgraph-io/ristretto/z"
	"github.com/pkg/errors"
)

// SimulatedStats counts the calls that changed state in a Simulated mapper.
type SimulatedStats struct {
	Reserves  int
	Commits   int
	Decommits int
	Releases  int

	// CommittedPages is the number of pages currently committed.
	CommittedPages int
}

type simRegion struct {
	base   uintptr
	length uintptr
	// buf backs the whole reservation once the first page is committed. It
	// never moves, so views into it stay valid until Release.
	buf   []byte
	pages map[uintptr]struct{}
	// foreign marks a range occupied by someone else.
	foreign bool
}

func (r *simRegion) contains(addr, length uintptr) bool {
	return addr >= r.base && addr+length <= r.base+r.length
}

func (r *simRegion) overlaps(addr, length uintptr) bool {
	return addr < r.base+r.length && r.base < addr+length
}

// Simulated is a Mapper that keeps committed memory in calloc'd buffers
// instead of at real addresses. Addresses are only bookkeeping, so any
// address range can be reserved. A commit limit simulates memory pressure.
//
// The first Commit into a reservation callocs a buffer the size of the whole
// reservation, so keep reservations modest. A View stays valid until its
// reservation is released.
type Simulated struct {
	mu        sync.Mutex
	pageSize  int
	limit     int64
	committed int64
	regions   []*simRegion
	stats     SimulatedStats
}

// NewSimulated returns a Simulated mapper with the given page size. limit caps
// the bytes that may be committed at once; zero means no cap.
func NewSimulated(pageSize int, limit int64) *Simulated {
	return &Simulated{pageSize: pageSize, limit: limit}
}

func (s *Simulated) PageSize() int { return s.pageSize }

// Occupy marks [addr, addr+length) as taken by a foreign mapping, so that a
// later Reserve overlapping it fails with ErrPlacementFailed.
func (s *Simulated) Occupy(addr, length uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = append(s.regions, &simRegion{base: addr, length: length, foreign: true})
}

func (s *Simulated) Reserve(addr, length uintptr) error {
	if err := checkRange(addr, length, s.pageSize); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if r.overlaps(addr, length) {
			return errors.Wrapf(ErrPlacementFailed, "reserve %#x+%d: overlaps %#x+%d",
				addr, length, r.base, r.length)
		}
	}
	s.regions = append(s.regions, &simRegion{
		base:   addr,
		length: length,
		pages:  make(map[uintptr]struct{}),
	})
	s.stats.Reserves++
	return nil
}

// find returns the reservation holding the whole range. Caller holds the lock.
func (s *Simulated) find(addr, length uintptr) (int, *simRegion) {
	for i, r := range s.regions {
		if !r.foreign && r.contains(addr, length) {
			return i, r
		}
	}
	return -1, nil
}

func (s *Simulated) Commit(addr, length uintptr, _ Protection) error {
	if err := checkRange(addr, length, s.pageSize); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, r := s.find(addr, length)
	if r == nil {
		return errors.Wrapf(ErrCommitFailed, "commit %#x+%d: not reserved", addr, length)
	}

	ps := uintptr(s.pageSize)
	var fresh int64
	for p := addr; p < addr+length; p += ps {
		if _, ok := r.pages[p]; !ok {
			fresh += int64(ps)
		}
	}
	if s.limit > 0 && s.committed+fresh > s.limit {
		return errors.Wrapf(ErrCommitFailed, "commit %#x+%d: limit of %d bytes reached",
			addr, length, s.limit)
	}

	if r.buf == nil {
		r.buf = z.Calloc(int(r.length), "region.Simulated")
	}
	// A fresh commit always reads as zero, as with MAP_FIXED.
	zero(r.buf[addr-r.base : addr-r.base+length])
	for p := addr; p < addr+length; p += ps {
		if _, ok := r.pages[p]; !ok {
			r.pages[p] = struct{}{}
			s.stats.CommittedPages++
		}
	}
	s.committed += fresh
	s.stats.Commits++
	return nil
}

func (s *Simulated) Decommit(addr, length uintptr) error {
	if err := checkRange(addr, length, s.pageSize); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, r := s.find(addr, length)
	if r == nil {
		return errors.Wrapf(ErrDecommitFailed, "decommit %#x+%d: not reserved", addr, length)
	}
	ps := uintptr(s.pageSize)
	for p := addr; p < addr+length; p += ps {
		if _, ok := r.pages[p]; ok {
			delete(r.pages, p)
			s.committed -= int64(ps)
			s.stats.CommittedPages--
		}
	}
	if r.buf != nil {
		lo := addr - r.base
		zero(r.buf[lo : lo+length])
	}
	s.stats.Decommits++
	return nil
}

func (s *Simulated) Release(addr, length uintptr) error {
	if err := checkRange(addr, length, s.pageSize); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, r := s.find(addr, length)
	if r == nil || r.base != addr {
		return errors.Wrapf(ErrReleaseFailed, "release %#x+%d: not reserved", addr, length)
	}
	s.committed -= int64(len(r.pages) * s.pageSize)
	s.stats.CommittedPages -= len(r.pages)
	if r.buf != nil {
		z.Free(r.buf)
	}
	s.regions = append(s.regions[:i], s.regions[i+1:]...)
	s.stats.Releases++
	return nil
}

// View returns nil unless every page of the range is committed.
func (s *Simulated) View(addr, length uintptr) []byte {
	if length == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, r := s.find(addr, length)
	if r == nil {
		return nil
	}
	ps := uintptr(s.pageSize)
	for p := addr - (addr-r.base)%ps; p < addr+length; p += ps {
		if _, ok := r.pages[p]; !ok {
			return nil
		}
	}
	lo := addr - r.base
	return r.buf[lo : lo+length : lo+length]
}

// Stats returns a snapshot of the call counters.
func (s *Simulated) Stats() SimulatedStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Committed returns the number of bytes currently committed.
func (s *Simulated) Committed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Close frees every backing buffer.
func (s *Simulated) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if r.buf != nil {
			z.Free(r.buf)
			r.buf = nil
		}
	}
	s.regions = nil
	s.committed = 0
	s.stats.CommittedPages = 0
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
