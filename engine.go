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
	"strconv"
	"sync"

	"github.com/dgraph-io/mist/region"
	"github.com/dgraph-io/mist/y"
	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/net/trace"
)

// Engine places bags in consecutive reservation slots starting at
// Options.StartAddress. The first bag, with ID AccountingBag, holds one
// Record per bag the engine has created.
//
// An Engine is safe for concurrent use.
type Engine struct {
	opt  Options
	elog trace.EventLog

	mu          sync.Mutex
	mapper      region.Mapper
	pageSize    uintptr
	slot        uintptr
	next        uintptr // base of the next reservation slot
	dir         *directory
	initialized bool
	closed      bool
}

// New returns an engine that is not yet initialized.
func New(opt Options) *Engine {
	e := &Engine{opt: opt}
	e.elog = newEventLog(&e.opt, "Engine")
	return e
}

// Options returns the options the engine was created with.
func (e *Engine) Options() Options { return e.opt }

// Init resolves the mapper and page size, then creates the accounting bag. It
// succeeds once per engine.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.closed:
		return ErrEngineClosed
	case e.initialized:
		return ErrAlreadyInitialized
	}

	m := e.opt.Mapper
	if m == nil {
		var err error
		if m, err = region.System(); err != nil {
			return y.Wrap(err, "while selecting the host mapper")
		}
	}
	ps := m.PageSize()
	if ps <= 0 {
		return region.ErrNoPageSize
	}
	slot := uintptr(e.opt.MaxBagReservation)
	switch {
	case uint64(slot) != e.opt.MaxBagReservation || slot == 0 || slot%uintptr(ps) != 0:
		return errors.Wrapf(ErrInvalidOptions, "MaxBagReservation %d with page size %d",
			e.opt.MaxBagReservation, ps)
	case uint64(uintptr(e.opt.StartAddress)) != e.opt.StartAddress ||
		uintptr(e.opt.StartAddress)%uintptr(ps) != 0:
		return errors.Wrapf(ErrInvalidOptions, "StartAddress %#x with page size %d",
			e.opt.StartAddress, ps)
	case e.opt.MaxBags < 1:
		return errors.Wrapf(ErrInvalidOptions, "MaxBags %d", e.opt.MaxBags)
	case e.opt.FrameSize < 0 || e.opt.FrameSize%ps != 0:
		return errors.Wrapf(ErrBadFrameSize, "FrameSize %d with page size %d", e.opt.FrameSize, ps)
	}

	e.mapper = m
	e.pageSize = uintptr(ps)
	e.slot = slot
	e.next = uintptr(e.opt.StartAddress)
	e.dir = newDirectory(e.opt.MaxBags)

	acct, err := e.createBag(ps, 0, RecordSize, recordAlign)
	if err != nil {
		e.opt.Errorf("Unable to create the accounting bag: %v", err)
		return y.Wrapf(err, "while creating the accounting bag")
	}
	y.AssertTrue(acct.id == AccountingBag)
	e.initialized = true
	e.opt.Infof("Engine ready: page size %s, %s per bag, first bag at %#x",
		humanize.IBytes(uint64(ps)), humanize.IBytes(uint64(slot)), acct.base)
	return nil
}

// CreateBag reserves the next slot and returns a bag with frame 0 committed.
//
// A zero frameSize selects Options.FrameSize, or the page size when that is
// zero too. A zero maxFrames lets the bag grow to fill its slot. A non-zero
// width makes the bag typed: each allocation returns one element of width
// bytes rounded up to align.
//
// The reservation cursor moves past the slot even when placing the bag fails,
// so a slot the host refused is never tried again.
func (e *Engine) CreateBag(frameSize, maxFrames int, width, align uint16) (*Bag, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.closed:
		return nil, ErrEngineClosed
	case !e.initialized:
		return nil, ErrNotInitialized
	}
	return e.createBag(frameSize, maxFrames, width, align)
}

// geometry resolves the frame size and budget of a new bag.
func (e *Engine) geometry(frameSize, maxFrames int) (uintptr, uintptr, error) {
	if frameSize == 0 {
		frameSize = e.opt.FrameSize
	}
	if frameSize == 0 {
		frameSize = int(e.pageSize)
	}
	if frameSize < 0 || uintptr(frameSize)%e.pageSize != 0 {
		return 0, 0, errors.Wrapf(ErrBadFrameSize, "frame size %d with page size %d",
			frameSize, e.pageSize)
	}
	fs := uintptr(frameSize)
	if fs > e.slot {
		return 0, 0, errors.Wrapf(ErrReservationTooLarge, "frame size %d, slot %d", fs, e.slot)
	}
	if maxFrames < 0 {
		return 0, 0, errors.Wrapf(ErrBadFrameBudget, "%d frames", maxFrames)
	}
	mf := uintptr(maxFrames)
	if mf == 0 {
		mf = e.slot / fs
	}
	if !mulFits(mf, fs) || mf*fs > e.slot {
		return 0, 0, errors.Wrapf(ErrReservationTooLarge, "%d frames of %d bytes, slot %d",
			mf, fs, e.slot)
	}
	return fs, mf, nil
}

// createBag places a bag in the next slot. Caller holds e.mu.
func (e *Engine) createBag(frameSize, maxFrames int, width, align uint16) (*Bag, error) {
	fs, mf, err := e.geometry(frameSize, maxFrames)
	if err != nil {
		return nil, err
	}
	if e.dir.full() {
		return nil, errors.Wrapf(ErrTooManyBags, "%d bags", len(e.dir.bags))
	}

	base := e.next
	e.next += e.slot
	if e.next < base {
		return nil, errors.Wrapf(region.ErrReserveFailed, "no address space left after %#x", base)
	}
	if err := e.mapper.Reserve(base, e.slot); err != nil {
		e.elog.Errorf("Reserve at %#x: %v", base, err)
		return nil, y.Wrapf(err, "while reserving %s at %#x", humanize.IBytes(uint64(e.slot)), base)
	}
	prot := e.opt.protection()
	if err := e.mapper.Commit(base, fs, prot); err != nil {
		e.elog.Errorf("Commit frame 0 at %#x: %v", base, err)
		err = y.Wrapf(err, "while committing frame 0 at %#x", base)
		return nil, y.CombineErrors(e.mapper.Release(base, e.slot), err)
	}

	b := &Bag{
		engine:    e,
		mapper:    e.mapper,
		prot:      prot,
		base:      base,
		slot:      e.slot,
		frameSize: fs,
		maxFrames: mf,
		committed: 1,
		bump:      newBumpAllocator(width, align),
		state:     BagReady,
	}
	b.id = e.dir.add(b)
	b.metricKey = strconv.Itoa(int(b.id))
	b.updateCommitted(1)

	if err := e.writeRecord(b); err != nil {
		e.dir.remove(b.id)
		return nil, y.CombineErrors(b.release(), err)
	}
	y.NumBagsCreatedAdd(e.opt.MetricsEnabled, 1)
	e.elog.Printf("Created bag %d at %#x", b.id, base)
	e.opt.Debugf("Created bag %d at %#x: %d frames of %s, element %d/%d",
		b.id, base, mf, humanize.IBytes(uint64(fs)), width, align)
	return b, nil
}

// writeRecord appends b's record to the accounting bag. Caller holds e.mu.
func (e *Engine) writeRecord(b *Bag) error {
	acct := e.dir.get(AccountingBag)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	off, _, err := acct.allocate(0)
	if err != nil {
		return y.Wrapf(err, "while recording bag %d", b.id)
	}
	buf, err := acct.bytes(off, RecordSize)
	if err != nil {
		return err
	}
	recordOf(b).Encode(buf)
	b.recordOff = off
	return nil
}

// forget drops a released bag from the directory and flags its record.
func (e *Engine) forget(b *Bag) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dir.get(b.id) != b {
		return
	}
	e.dir.remove(b.id)
	acct := e.dir.get(AccountingBag)
	acct.mu.Lock()
	if buf, err := acct.bytes(b.recordOff, RecordSize); err == nil {
		r := recordOf(b)
		r.Released = true
		r.Encode(buf)
	}
	acct.mu.Unlock()
	e.elog.Printf("Released bag %d", b.id)
}

// Bag returns the live bag with the given ID. IDs are for introspection, such
// as matching Records to bags; callers keep the *Bag from CreateBag.
func (e *Engine) Bag(id BagID) (*Bag, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized || e.closed {
		return nil, false
	}
	b := e.dir.get(id)
	return b, b != nil
}

// Bags returns the live bags in ID order, accounting bag first.
func (e *Engine) Bags() []*Bag {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized || e.closed {
		return nil
	}
	return e.dir.all()
}

// Records decodes every record in the accounting bag, oldest first. Records of
// released bags stay in place with Released set.
func (e *Engine) Records() ([]Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.closed:
		return nil, ErrEngineClosed
	case !e.initialized:
		return nil, ErrNotInitialized
	}
	acct := e.dir.get(AccountingBag)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	n := int(acct.bump.cursor) / RecordSize
	out := make([]Record, n)
	for i := range out {
		buf, err := acct.bytes(Offset(i*RecordSize), RecordSize)
		if err != nil {
			return nil, err
		}
		if err := out[i].Decode(buf); err != nil {
			return nil, y.Wrapf(err, "record %d", i)
		}
	}
	return out, nil
}

// Close releases every bag, the accounting bag last.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	defer e.elog.Finish()
	if !e.initialized {
		return nil
	}
	var rerr error
	bags := e.dir.all()
	for i := len(bags) - 1; i >= 0; i-- {
		b := bags[i]
		if err := b.release(); err != nil && !errors.Is(err, ErrBagReleased) {
			e.opt.Errorf("Unable to release bag %d: %v", b.id, err)
			rerr = y.CombineErrors(rerr, err)
		}
		e.dir.remove(b.id)
	}
	e.opt.Infof("Engine closed")
	return rerr
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the process-wide engine, created with DefaultOptions.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New(DefaultOptions())
	})
	return defaultEngine
}

// Init initializes the process-wide engine.
func Init() error { return Default().Init() }

// CreateBag creates a bag in the process-wide engine.
func CreateBag(frameSize, maxFrames int, width, align uint16) (*Bag, error) {
	return Default().CreateBag(frameSize, maxFrames, width, align)
}
