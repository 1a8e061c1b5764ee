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
	"encoding/binary"
	"expvar"
	"sync"
	"testing"

	"github.com/dgraph-io/mist/region"
	"github.com/dgraph-io/mist/y"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	testPageSize = 4096
	// testSlot keeps the simulated backing buffers small.
	testSlot = 16 << 20
)

func testOptions() Options {
	return DefaultOptions().
		WithMaxBagReservation(testSlot).
		WithLogger(nil).
		WithMetricsEnabled(false).
		WithEventLogging(false)
}

// runEngineTest runs test against an initialized engine backed by a simulated
// mapper. A nil opts selects testOptions. A mapper set in opts is kept.
func runEngineTest(t *testing.T, opts *Options,
	test func(t *testing.T, e *Engine, sim *region.Simulated)) {
	if opts == nil {
		opts = new(Options)
		*opts = testOptions()
	}
	sim, ok := opts.Mapper.(*region.Simulated)
	if !ok {
		sim = region.NewSimulated(testPageSize, 0)
		opts.Mapper = sim
	}
	defer sim.Close()
	e := New(*opts)
	require.NoError(t, e.Init())
	defer func() {
		require.NoError(t, e.Close())
	}()
	test(t, e, sim)
}

func TestInitTwice(t *testing.T) {
	runEngineTest(t, nil, func(t *testing.T, e *Engine, _ *region.Simulated) {
		require.ErrorIs(t, e.Init(), ErrAlreadyInitialized)
	})
}

func TestCreateBagBeforeInit(t *testing.T) {
	e := New(testOptions().WithMapper(region.NewSimulated(testPageSize, 0)))
	_, err := e.CreateBag(0, 0, 8, 8)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.Records()
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Nil(t, e.Bags())
	require.NoError(t, e.Close())
	require.ErrorIs(t, e.Init(), ErrEngineClosed)
}

func TestCreateBagAfterClose(t *testing.T) {
	sim := region.NewSimulated(testPageSize, 0)
	defer sim.Close()
	e := New(testOptions().WithMapper(sim))
	require.NoError(t, e.Init())
	b, err := e.CreateBag(0, 4, 8, 8)
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.CreateBag(0, 0, 8, 8)
	require.ErrorIs(t, err, ErrEngineClosed)
	_, err = b.Allocate(0)
	require.ErrorIs(t, err, ErrBagReleased)
	require.Equal(t, BagReleased, b.State())
	require.Equal(t, int64(0), sim.Committed())
	require.Equal(t, 2, sim.Stats().Releases)
}

func TestInitZeroPageSize(t *testing.T) {
	e := New(testOptions().WithMapper(region.NewSimulated(0, 0)))
	require.ErrorIs(t, e.Init(), region.ErrNoPageSize)
}

func TestInitInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Options
		err  error
	}{
		{"no bags", testOptions().WithMaxBags(0), ErrInvalidOptions},
		{"unaligned start", testOptions().WithStartAddress(0x1_0000_1001), ErrInvalidOptions},
		{"unaligned slot", testOptions().WithMaxBagReservation(1<<20 + 1), ErrInvalidOptions},
		{"empty slot", testOptions().WithMaxBagReservation(0), ErrInvalidOptions},
		{"odd frame size", testOptions().WithFrameSize(1000), ErrBadFrameSize},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := New(tc.opt.WithMapper(region.NewSimulated(testPageSize, 0)))
			require.ErrorIs(t, e.Init(), tc.err)
		})
	}
}

func TestAccountingBag(t *testing.T) {
	runEngineTest(t, nil, func(t *testing.T, e *Engine, _ *region.Simulated) {
		acct, ok := e.Bag(AccountingBag)
		require.True(t, ok)
		require.Equal(t, uintptr(DefaultStartAddress), acct.Base())
		require.Equal(t, testPageSize, acct.FrameSize())
		require.Equal(t, 1, acct.Stats().CommittedFrames)

		require.ErrorIs(t, acct.Release(), ErrAccountingBag)
		require.ErrorIs(t, acct.ReleaseTrailingFrame(), ErrAccountingBag)

		recs, err := e.Records()
		require.NoError(t, err)
		require.Len(t, recs, 1)
		require.Equal(t, AccountingBag, recs[0].ID)
		require.Equal(t, uint16(RecordSize), recs[0].Width)
	})
}

func TestBagsAreConsecutive(t *testing.T) {
	opt := testOptions().WithMaxBagReservation(1 << 20)
	runEngineTest(t, &opt, func(t *testing.T, e *Engine, _ *region.Simulated) {
		var bags []*Bag
		for i := 0; i < 5; i++ {
			b, err := e.CreateBag(0, 0, 8, 8)
			require.NoError(t, err)
			require.Equal(t, BagID(i+1), b.ID())
			require.Equal(t, uintptr(DefaultStartAddress)+uintptr(i+1)<<20, b.Base())
			require.Equal(t, 256, b.MaxFrames())
			bags = append(bags, b)
		}
		for i, a := range bags {
			require.True(t, a.Reserved().Contains(a.Committed().End(), true, true))
			for _, b := range bags[i+1:] {
				require.False(t, a.Reserved().Overlaps(b.Reserved()), "%s and %s", a.Reserved(), b.Reserved())
			}
		}
		require.Len(t, e.Bags(), 6)
	})
}

func TestCreateBagGeometry(t *testing.T) {
	opt := testOptions().WithMaxBagReservation(64 << 10)
	runEngineTest(t, &opt, func(t *testing.T, e *Engine, _ *region.Simulated) {
		tests := []struct {
			name      string
			fs, mf    int
			err       error
			wantFrame int
			wantMax   int
		}{
			{"defaults", 0, 0, nil, testPageSize, 16},
			{"two pages", 2 * testPageSize, 0, nil, 2 * testPageSize, 8},
			{"odd slot fit", 3 * testPageSize, 0, nil, 3 * testPageSize, 5},
			{"not page multiple", 1000, 0, ErrBadFrameSize, 0, 0},
			{"negative size", -testPageSize, 0, ErrBadFrameSize, 0, 0},
			{"negative budget", 0, -1, ErrBadFrameBudget, 0, 0},
			{"budget past slot", 0, 17, ErrReservationTooLarge, 0, 0},
			{"frame past slot", 128 << 10, 0, ErrReservationTooLarge, 0, 0},
		}
		for _, tc := range tests {
			b, err := e.CreateBag(tc.fs, tc.mf, 8, 8)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err, tc.name)
				require.Nil(t, b, tc.name)
				continue
			}
			require.NoError(t, err, tc.name)
			require.Equal(t, tc.wantFrame, b.FrameSize(), tc.name)
			require.Equal(t, tc.wantMax, b.MaxFrames(), tc.name)
			require.NoError(t, b.Release())
		}
	})
}

func TestOptionsFrameSize(t *testing.T) {
	opt := testOptions().WithFrameSize(4 * testPageSize)
	runEngineTest(t, &opt, func(t *testing.T, e *Engine, _ *region.Simulated) {
		b, err := e.CreateBag(0, 8, 8, 8)
		require.NoError(t, err)
		require.Equal(t, 4*testPageSize, b.FrameSize())
	})
}

func TestTooManyBags(t *testing.T) {
	opt := testOptions().WithMaxBags(3)
	runEngineTest(t, &opt, func(t *testing.T, e *Engine, _ *region.Simulated) {
		_, err := e.CreateBag(0, 4, 8, 8)
		require.NoError(t, err)
		b, err := e.CreateBag(0, 4, 8, 8)
		require.NoError(t, err)
		_, err = e.CreateBag(0, 4, 8, 8)
		require.ErrorIs(t, err, ErrTooManyBags)

		// A released bag frees its directory slot.
		require.NoError(t, b.Release())
		nb, err := e.CreateBag(0, 4, 8, 8)
		require.NoError(t, err)
		require.Equal(t, b.ID(), nb.ID())
		require.NotEqual(t, b.Base(), nb.Base())
	})
}

func TestPlacementFailureAdvancesCursor(t *testing.T) {
	opt := testOptions().WithMaxBagReservation(1 << 20)
	runEngineTest(t, &opt, func(t *testing.T, e *Engine, sim *region.Simulated) {
		taken := uintptr(DefaultStartAddress) + 1<<20
		sim.Occupy(taken, testPageSize)

		b, err := e.CreateBag(0, 0, 8, 8)
		require.ErrorIs(t, err, region.ErrPlacementFailed)
		require.Nil(t, b)

		b, err = e.CreateBag(0, 0, 8, 8)
		require.NoError(t, err)
		require.Equal(t, taken+1<<20, b.Base())
		require.Equal(t, BagID(1), b.ID())
	})
}

func TestFrameZeroCommitFailure(t *testing.T) {
	sim := region.NewSimulated(testPageSize, testPageSize)
	opt := testOptions().WithMapper(sim)
	runEngineTest(t, &opt, func(t *testing.T, e *Engine, sim *region.Simulated) {
		_, err := e.CreateBag(0, 0, 8, 8)
		require.ErrorIs(t, err, region.ErrCommitFailed)
		// The reservation was handed back.
		require.Equal(t, 1, sim.Stats().Releases)
		require.Len(t, e.Bags(), 1)
	})
}

func TestRecords(t *testing.T) {
	runEngineTest(t, nil, func(t *testing.T, e *Engine, _ *region.Simulated) {
		a, err := e.CreateBag(0, 32, 8, 8)
		require.NoError(t, err)
		b, err := e.CreateBag(2*testPageSize, 16, 12, 16)
		require.NoError(t, err)
		require.NoError(t, a.Release())

		recs, err := e.Records()
		require.NoError(t, err)
		require.Len(t, recs, 3)
		require.Equal(t, Record{
			ID: a.ID(), Width: 8, Align: 8, Base: uint64(a.Base()),
			FrameSize: testPageSize, MaxFrames: 32, Released: true,
		}, recs[1])
		require.Equal(t, Record{
			ID: b.ID(), Width: 12, Align: 16, Base: uint64(b.Base()),
			FrameSize: 2 * testPageSize, MaxFrames: 16,
		}, recs[2])

		// Flip a byte of b's base address.
		acct, _ := e.Bag(AccountingBag)
		acct.mu.Lock()
		buf, err := acct.bytes(2*RecordSize+8, 1)
		acct.mu.Unlock()
		require.NoError(t, err)
		buf[0] ^= 0xff
		_, err = e.Records()
		require.ErrorIs(t, err, y.ErrChecksumMismatch)
	})
}

func TestAccountingBagIsSealed(t *testing.T) {
	runEngineTest(t, nil, func(t *testing.T, e *Engine, sim *region.Simulated) {
		b, err := e.CreateBag(0, 4, 8, 8)
		require.NoError(t, err)
		acct, ok := e.Bag(AccountingBag)
		require.True(t, ok)
		before := acct.Stats()
		commits := sim.Stats().Commits

		_, err = acct.Allocate(0)
		require.ErrorIs(t, err, ErrAccountingBag)
		_, err = acct.Grow()
		require.ErrorIs(t, err, ErrAccountingBag)
		require.ErrorIs(t, acct.ZeroFrame(0), ErrAccountingBag)
		require.ErrorIs(t, acct.CommitFrameAt(1), ErrAccountingBag)
		require.ErrorIs(t, acct.ReleaseFrameAt(1), ErrAccountingBag)
		_, err = acct.Bytes(0, RecordSize)
		require.ErrorIs(t, err, ErrAccountingBag)
		_, err = acct.Element(0)
		require.ErrorIs(t, err, ErrAccountingBag)
		require.ErrorIs(t, acct.ApplyInit(0, 1, func([]byte) error { return nil }), ErrAccountingBag)

		require.Equal(t, before, acct.Stats())
		require.Equal(t, commits, sim.Stats().Commits)
		recs, err := e.Records()
		require.NoError(t, err)
		require.Len(t, recs, 2)
		require.Equal(t, b.ID(), recs[1].ID)

		// The engine still records new bags.
		_, err = e.CreateBag(0, 4, 8, 8)
		require.NoError(t, err)
		recs, err = e.Records()
		require.NoError(t, err)
		require.Len(t, recs, 3)
	})
}

func TestRecordEncoding(t *testing.T) {
	r := Record{ID: 3, Width: 12, Align: 16, Base: 0x4_0000_0000, FrameSize: 8192, MaxFrames: 7}
	buf := make([]byte, RecordSize)
	r.Encode(buf)
	require.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[0:4]))
	require.Equal(t, uint64(0x4_0000_0000), binary.LittleEndian.Uint64(buf[8:16]))
	require.Equal(t, uint64(0), binary.LittleEndian.Uint64(buf[32:40]))

	var got Record
	require.NoError(t, got.Decode(buf))
	require.Equal(t, r, got)
	require.Error(t, got.Decode(buf[:RecordSize-1]))
}

func TestConcurrentBags(t *testing.T) {
	opt := testOptions().WithMaxBagReservation(1 << 20)
	runEngineTest(t, &opt, func(t *testing.T, e *Engine, _ *region.Simulated) {
		const workers, perWorker = 8, 1000
		var wg sync.WaitGroup
		bags := make([]*Bag, workers)
		errCh := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				b, err := e.CreateBag(0, 0, 8, 8)
				if err != nil {
					errCh <- err
					return
				}
				for j := 0; j < perWorker; j++ {
					off, err := b.Allocate(0)
					if err != nil {
						errCh <- err
						return
					}
					if off != Offset(8*j) {
						errCh <- errors.Errorf("bag %d: allocation %d at offset %d", b.ID(), j, off)
						return
					}
				}
				bags[i] = b
			}(i)
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			require.NoError(t, err)
		}

		bases := make(map[uintptr]bool)
		for _, b := range bags {
			require.False(t, bases[b.Base()])
			bases[b.Base()] = true
			require.Equal(t, uint64(perWorker), b.Stats().Allocations)
		}
		recs, err := e.Records()
		require.NoError(t, err)
		require.Len(t, recs, workers+1)
	})
}

func TestConcurrentAllocate(t *testing.T) {
	runEngineTest(t, nil, func(t *testing.T, e *Engine, _ *region.Simulated) {
		b, err := e.CreateBag(0, 64, 8, 8)
		require.NoError(t, err)

		const workers, perWorker = 8, 2000
		offs := make(chan Offset, workers*perWorker)
		errCh := make(chan error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					off, err := b.Allocate(0)
					if err != nil {
						errCh <- err
						return
					}
					offs <- off
				}
			}()
		}
		wg.Wait()
		close(offs)
		close(errCh)
		for err := range errCh {
			require.NoError(t, err)
		}

		seen := make(map[Offset]bool)
		for off := range offs {
			require.False(t, seen[off], "offset %d handed out twice", off)
			seen[off] = true
		}
		require.Len(t, seen, workers*perWorker)
		require.Equal(t, 32, b.Stats().CommittedFrames)
	})
}

func TestMetrics(t *testing.T) {
	get := func(name string) int64 {
		return expvar.Get(name).(*expvar.Int).Value()
	}
	opt := testOptions().WithMetricsEnabled(true)
	runEngineTest(t, &opt, func(t *testing.T, e *Engine, _ *region.Simulated) {
		created := get("mist_bags_created_total")
		b, err := e.CreateBag(0, 1, 8, 8)
		require.NoError(t, err)

		allocs := get("mist_allocations_total")
		failures := get("mist_alloc_failures_total")
		for i := 0; i < 512; i++ {
			_, err := b.Allocate(0)
			require.NoError(t, err)
		}
		_, err = b.Allocate(0)
		require.ErrorIs(t, err, ErrOutOfFrames)

		require.Equal(t, created+1, get("mist_bags_created_total"))
		require.Equal(t, allocs+512, get("mist_allocations_total"))
		require.Equal(t, failures+1, get("mist_alloc_failures_total"))
		committed := y.CommittedBytesGet(true, "1")
		require.Equal(t, int64(testPageSize), committed.(*expvar.Int).Value())
	})
}

func TestDefaultEngine(t *testing.T) {
	require.Same(t, Default(), Default())
	require.Equal(t, DefaultMaxBags, Default().Options().MaxBags)
}
