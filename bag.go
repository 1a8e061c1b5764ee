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
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/mist/region"
	"github.com/dgraph-io/mist/y"
	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// BagID identifies a bag in its engine's directory.
type BagID int

// AccountingBag is the ID of the bag holding the engine's own records.
const AccountingBag BagID = 0

// BagState is the lifecycle state of a bag.
type BagState int

const (
	// BagUninitialized bags have not been placed yet.
	BagUninitialized BagState = iota
	// BagReady bags accept allocations.
	BagReady
	// BagExhausted bags ran out of frames. They stay readable.
	BagExhausted
	// BagReleased bags gave their address space back.
	BagReleased
)

func (s BagState) String() string {
	switch s {
	case BagUninitialized:
		return "uninitialized"
	case BagReady:
		return "ready"
	case BagExhausted:
		return "exhausted"
	case BagReleased:
		return "released"
	}
	return "BagState(" + strconv.Itoa(int(s)) + ")"
}

// Bag is a reserved slot of address space that is committed one frame at a
// time and carved up by a bump allocator. Frame 0 is committed when the bag is
// created and is never released on its own.
//
// Memory is addressed by Offset rather than by pointer. Bytes and Element
// return slices over committed memory; a slice must not be used after the
// frames under it are released.
//
// The accounting bag can be inspected but not changed. Methods that would
// hand out or modify its memory return ErrAccountingBag.
//
// A Bag is safe for concurrent use.
type Bag struct {
	mu sync.Mutex

	id     BagID
	engine *Engine
	mapper region.Mapper
	prot   region.Protection

	base      uintptr
	slot      uintptr
	frameSize uintptr
	maxFrames uintptr
	// committed is the number of frames committed from the base up.
	committed uintptr

	bump  bumpAllocator
	state BagState

	// recordOff locates this bag's record in the accounting bag.
	recordOff Offset
	metricKey string
}

// ID returns the bag's directory slot. It identifies the bag in records and
// in Engine.Bag lookups; the *Bag itself is the handle to allocate through.
func (b *Bag) ID() BagID { return b.id }

// Base returns the first address of the bag.
func (b *Bag) Base() uintptr { return b.base }

// FrameSize returns the size of one frame in bytes.
func (b *Bag) FrameSize() int { return int(b.frameSize) }

// MaxFrames returns the frame budget of the bag.
func (b *Bag) MaxFrames() int { return int(b.maxFrames) }

// Reserved returns the address range set aside for the bag.
func (b *Bag) Reserved() Range { return Range{Base: b.base, Size: b.slot} }

// Committed returns the committed prefix of the bag.
func (b *Bag) Committed() Range {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Range{Base: b.base, Size: b.committed * b.frameSize}
}

// State returns the current lifecycle state.
func (b *Bag) State() BagState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bag) checkLive() error {
	if b.state == BagReleased {
		return errors.Wrapf(ErrBagReleased, "bag %d", b.id)
	}
	return nil
}

// checkSealed refuses the accounting bag to callers. The engine reaches its
// memory through the unexported methods only.
func (b *Bag) checkSealed() error {
	if b.id == AccountingBag {
		return errors.Wrapf(ErrAccountingBag, "bag %d", b.id)
	}
	return nil
}

func (b *Bag) metricsEnabled() bool { return b.engine.opt.MetricsEnabled }

func (b *Bag) updateCommitted(delta int64) {
	enabled := b.metricsEnabled()
	if delta > 0 {
		y.NumFramesCommittedAdd(enabled, delta)
	} else {
		y.NumFramesDecommittedAdd(enabled, -delta)
	}
	y.CommittedBytesSet(enabled, b.metricKey, int64(b.committed*b.frameSize))
}

// Allocate reserves the next run of the bag and returns its offset. Typed
// bags take size 0 and return one element; untyped bags round size up to the
// bag alignment. Frames are committed as the run crosses into them.
//
// Once a request fails with ErrOutOfFrames the bag is exhausted and every
// later request fails the same way.
func (b *Bag) Allocate(size int) (Offset, error) {
	if err := b.checkSealed(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	off, n, err := b.allocate(size)
	if err != nil {
		y.NumAllocFailuresAdd(b.metricsEnabled(), 1)
		return 0, err
	}
	y.NumAllocationsAdd(b.metricsEnabled(), 1)
	y.NumAllocatedBytesAdd(b.metricsEnabled(), int64(n))
	return off, nil
}

func (b *Bag) allocate(size int) (Offset, uintptr, error) {
	if err := b.checkLive(); err != nil {
		return 0, 0, err
	}
	if b.state == BagExhausted {
		return 0, 0, errors.Wrapf(ErrOutOfFrames, "bag %d is exhausted", b.id)
	}
	n, err := b.bump.resolve(size)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "bag %d: allocate %d bytes", b.id, size)
	}
	start, next, ok := b.bump.advance(n)
	if !ok || next > b.slot {
		return 0, 0, errors.Wrapf(ErrIndexOverflow, "bag %d: %d bytes at offset %d", b.id, n, start)
	}
	if next > b.maxFrames*b.frameSize {
		b.state = BagExhausted
		b.engine.elog.Printf("Bag %d exhausted after %d allocations", b.id, b.bump.allocs)
		return 0, 0, errors.Wrapf(ErrOutOfFrames, "bag %d: %d bytes at offset %d, budget %d frames",
			b.id, n, start, b.maxFrames)
	}
	for need := framesFor(next, b.frameSize); b.committed < need; {
		if _, err := b.grow(); err != nil {
			return 0, 0, err
		}
	}
	b.bump.cursor = next
	b.bump.allocs++
	return Offset(start), n, nil
}

// Grow commits the frame after the committed prefix and returns its offset.
// The bump cursor does not move.
func (b *Bag) Grow() (Offset, error) {
	if err := b.checkSealed(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLive(); err != nil {
		return 0, err
	}
	addr, err := b.grow()
	if err != nil {
		return 0, err
	}
	return Offset(addr - b.base), nil
}

func (b *Bag) grow() (uintptr, error) {
	if b.committed >= b.maxFrames {
		return 0, errors.Wrapf(ErrFrameBudgetExceeded, "bag %d: %d frames", b.id, b.maxFrames)
	}
	addr := b.base + b.committed*b.frameSize
	if err := b.mapper.Commit(addr, b.frameSize, b.prot); err != nil {
		b.engine.opt.Warningf("Unable to commit frame %d of bag %d: %v", b.committed, b.id, err)
		return 0, y.Wrapf(err, "bag %d: commit frame %d", b.id, b.committed)
	}
	b.committed++
	b.updateCommitted(1)
	return addr, nil
}

// ReleaseTrailingFrame decommits the last committed frame. The cursor is
// pulled back to the end of the remaining frames, so allocations handed out
// from the released frame must no longer be used.
func (b *Bag) ReleaseTrailingFrame() error {
	if err := b.checkSealed(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLive(); err != nil {
		return err
	}
	if b.committed <= 1 {
		return errors.Wrapf(ErrCannotReleaseAccountingFrame, "bag %d", b.id)
	}
	idx := b.committed - 1
	if err := b.mapper.Decommit(b.base+idx*b.frameSize, b.frameSize); err != nil {
		return y.Wrapf(err, "bag %d: decommit frame %d", b.id, idx)
	}
	b.committed--
	if end := b.committed * b.frameSize; b.bump.cursor > end {
		b.bump.cursor = end
	}
	b.updateCommitted(-1)
	return nil
}

func (b *Bag) checkFrame(idx int) error {
	if idx < 0 || uintptr(idx) >= b.maxFrames {
		return errors.Wrapf(ErrFrameOutOfRange, "bag %d: frame %d of %d", b.id, idx, b.maxFrames)
	}
	return nil
}

// CommitFrameAt commits the frame at idx without moving the cursor or the
// committed prefix. Use ReleaseFrameAt to undo it.
func (b *Bag) CommitFrameAt(idx int) error {
	if err := b.checkSealed(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLive(); err != nil {
		return err
	}
	if err := b.checkFrame(idx); err != nil {
		return err
	}
	if b.committed >= b.maxFrames {
		return errors.Wrapf(ErrFrameBudgetExceeded, "bag %d: %d frames", b.id, b.maxFrames)
	}
	if err := b.mapper.Commit(b.base+uintptr(idx)*b.frameSize, b.frameSize, b.prot); err != nil {
		return y.Wrapf(err, "bag %d: commit frame %d", b.id, idx)
	}
	y.NumFramesCommittedAdd(b.metricsEnabled(), 1)
	return nil
}

// ReleaseFrameAt decommits the frame at idx. Frame 0 cannot be released. No
// bookkeeping is updated; the caller must not touch the frame afterwards.
func (b *Bag) ReleaseFrameAt(idx int) error {
	if err := b.checkSealed(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLive(); err != nil {
		return err
	}
	if idx == 0 {
		return errors.Wrapf(ErrCannotReleaseAccountingFrame, "bag %d", b.id)
	}
	if err := b.checkFrame(idx); err != nil {
		return err
	}
	if err := b.mapper.Decommit(b.base+uintptr(idx)*b.frameSize, b.frameSize); err != nil {
		return y.Wrapf(err, "bag %d: decommit frame %d", b.id, idx)
	}
	y.NumFramesDecommittedAdd(b.metricsEnabled(), 1)
	return nil
}

// ZeroFrame clears a committed frame. Neighbouring frames are untouched.
func (b *Bag) ZeroFrame(idx int) error {
	if err := b.checkSealed(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLive(); err != nil {
		return err
	}
	if idx < 0 || uintptr(idx) >= b.committed {
		return errors.Wrapf(ErrFrameOutOfRange, "bag %d: frame %d of %d committed",
			b.id, idx, b.committed)
	}
	buf := b.mapper.View(b.base+uintptr(idx)*b.frameSize, b.frameSize)
	if buf == nil {
		return errors.Wrapf(ErrOutOfRange, "bag %d: frame %d is not mapped", b.id, idx)
	}
	for i := range buf {
		buf[i] = 0
	}
	return nil
}

// FrameIndex returns the index of the frame holding off.
func (b *Bag) FrameIndex(off Offset) int {
	return int(frameIndex(b.base, b.base+uintptr(off), b.frameSize))
}

// FrameOffset returns the offset of the first byte of frame idx.
func (b *Bag) FrameOffset(idx int) Offset {
	return Offset(uintptr(idx) * b.frameSize)
}

// Bytes returns the n committed bytes at off. The slice aliases bag memory.
func (b *Bag) Bytes(off Offset, n int) ([]byte, error) {
	if err := b.checkSealed(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bytes(off, n)
}

func (b *Bag) bytes(off Offset, n int) ([]byte, error) {
	if err := b.checkLive(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "bag %d: %d bytes", b.id, n)
	}
	end := uint64(off) + uint64(n)
	if end < uint64(off) || end > uint64(b.committed*b.frameSize) {
		return nil, errors.Wrapf(ErrOutOfRange, "bag %d: [%d, %d) past committed %d bytes",
			b.id, off, end, b.committed*b.frameSize)
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := b.mapper.View(b.base+uintptr(off), uintptr(n))
	if buf == nil {
		return nil, errors.Wrapf(ErrOutOfRange, "bag %d: [%d, %d) is not mapped", b.id, off, end)
	}
	return buf, nil
}

// Element returns the element of a typed bag at off.
func (b *Bag) Element(off Offset) ([]byte, error) {
	if err := b.checkSealed(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.bump.typed() {
		return nil, errors.Wrapf(ErrUntypedBag, "bag %d", b.id)
	}
	return b.bytes(off, int(b.bump.width))
}

// ApplyInit calls fn on count consecutive elements starting at off. It stops
// at the first error. The bag is not locked while fn runs.
func (b *Bag) ApplyInit(off Offset, count int, fn func(elem []byte) error) error {
	if err := b.checkSealed(); err != nil {
		return err
	}
	if !b.bump.typed() {
		return errors.Wrapf(ErrUntypedBag, "bag %d", b.id)
	}
	stride := Offset(b.bump.alignedWidth)
	for i := 0; i < count; i++ {
		elem, err := b.Element(off + Offset(i)*stride)
		if err != nil {
			return err
		}
		if err := fn(elem); err != nil {
			return y.Wrapf(err, "bag %d: init element %d", b.id, i)
		}
	}
	return nil
}

// release returns the bag's address space to the host.
func (b *Bag) release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkLive(); err != nil {
		return err
	}
	if err := b.mapper.Release(b.base, b.slot); err != nil {
		return y.Wrapf(err, "bag %d: release %s", b.id, b.Reserved())
	}
	n := int64(b.committed)
	b.committed = 0
	b.state = BagReleased
	b.updateCommitted(-n)
	y.NumBagsReleasedAdd(b.metricsEnabled(), 1)
	return nil
}

// Release returns the bag's address space and removes it from the engine's
// directory. Every slice obtained from the bag becomes invalid. The
// accounting bag is released by Engine.Close only.
func (b *Bag) Release() error {
	if b.id == AccountingBag {
		return errors.Wrapf(ErrAccountingBag, "accounting bag is released on Close")
	}
	if err := b.release(); err != nil {
		return err
	}
	b.engine.forget(b)
	return nil
}

// BagStats is a snapshot of a bag.
type BagStats struct {
	ID              BagID
	State           BagState
	Base            uintptr
	FrameSize       int
	MaxFrames       int
	CommittedFrames int
	// Used is the offset of the bump cursor.
	Used         int64
	Allocations  uint64
	Width        uint16
	Align        uint16
	AlignedWidth int
}

// Stats returns a snapshot of the bag.
func (b *Bag) Stats() BagStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BagStats{
		ID:              b.id,
		State:           b.state,
		Base:            b.base,
		FrameSize:       int(b.frameSize),
		MaxFrames:       int(b.maxFrames),
		CommittedFrames: int(b.committed),
		Used:            int64(b.bump.cursor),
		Allocations:     b.bump.allocs,
		Width:           b.bump.width,
		Align:           b.bump.align,
		AlignedWidth:    int(b.bump.alignedWidth),
	}
}

func (b *Bag) String() string {
	s := b.Stats()
	return fmt.Sprintf("bag %d at %#x (%s): %s used, %d/%d frames of %s committed",
		s.ID, s.Base, s.State, humanize.IBytes(uint64(s.Used)),
		s.CommittedFrames, s.MaxFrames, humanize.IBytes(uint64(s.FrameSize)))
}
