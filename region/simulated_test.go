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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	testPage = 4096
	testBase = uintptr(0x1_0000_0000)
)

func TestSimulatedCommitView(t *testing.T) {
	s := NewSimulated(testPage, 0)
	defer s.Close()

	require.NoError(t, s.Reserve(testBase, 16*testPage))
	require.Nil(t, s.View(testBase, testPage), "reserved memory is not readable")

	require.NoError(t, s.Commit(testBase, testPage, ReadWrite))
	v := s.View(testBase, testPage)
	require.Len(t, v, testPage)
	for _, b := range v {
		require.Zero(t, b)
	}
	v[0], v[testPage-1] = 0xaa, 0xbb

	// Committing further pages keeps what was written.
	require.NoError(t, s.Commit(testBase+4*testPage, testPage, ReadWrite))
	v = s.View(testBase, testPage)
	require.Equal(t, byte(0xaa), v[0])
	require.Equal(t, byte(0xbb), v[testPage-1])

	// Pages 1..3 were skipped and stay unreadable.
	require.Nil(t, s.View(testBase, 2*testPage))

	st := s.Stats()
	require.Equal(t, 1, st.Reserves)
	require.Equal(t, 2, st.Commits)
	require.Equal(t, 2, st.CommittedPages)
	require.Equal(t, int64(2*testPage), s.Committed())
}

func TestSimulatedViewSurvivesCommit(t *testing.T) {
	s := NewSimulated(testPage, 0)
	defer s.Close()

	require.NoError(t, s.Reserve(testBase, 64*testPage))
	require.NoError(t, s.Commit(testBase, testPage, ReadWrite))
	old := s.View(testBase, testPage)
	require.Len(t, old, testPage)

	for i := 1; i < 64; i++ {
		require.NoError(t, s.Commit(testBase+uintptr(i)*testPage, testPage, ReadWrite))
	}
	old[8] = 0x42
	require.Equal(t, byte(0x42), s.View(testBase, testPage)[8])

	// Both views alias the same memory.
	whole := s.View(testBase, 64*testPage)
	require.Len(t, whole, 64*testPage)
	whole[16] = 0x24
	require.Equal(t, byte(0x24), old[16])
}

func TestSimulatedDecommitZeroes(t *testing.T) {
	s := NewSimulated(testPage, 0)
	defer s.Close()

	require.NoError(t, s.Reserve(testBase, 4*testPage))
	require.NoError(t, s.Commit(testBase, 2*testPage, ReadWrite))
	v := s.View(testBase, 2*testPage)
	for i := range v {
		v[i] = 0x5a
	}

	require.NoError(t, s.Decommit(testBase+testPage, testPage))
	require.Nil(t, s.View(testBase+testPage, testPage))
	require.Equal(t, byte(0x5a), s.View(testBase, testPage)[testPage-1])

	require.NoError(t, s.Commit(testBase+testPage, testPage, ReadWrite))
	for _, b := range s.View(testBase+testPage, testPage) {
		require.Zero(t, b)
	}
	require.Equal(t, 1, s.Stats().Decommits)
}

func TestSimulatedPlacement(t *testing.T) {
	s := NewSimulated(testPage, 0)
	defer s.Close()

	s.Occupy(testBase+8*testPage, testPage)
	err := s.Reserve(testBase, 16*testPage)
	require.True(t, errors.Is(err, ErrPlacementFailed), "got %v", err)

	require.NoError(t, s.Reserve(testBase, 8*testPage))
	err = s.Reserve(testBase+4*testPage, 4*testPage)
	require.True(t, errors.Is(err, ErrPlacementFailed), "got %v", err)
}

func TestSimulatedLimit(t *testing.T) {
	s := NewSimulated(testPage, 2*testPage)
	defer s.Close()

	require.NoError(t, s.Reserve(testBase, 8*testPage))
	require.NoError(t, s.Commit(testBase, 2*testPage, ReadWrite))
	// Recommitting pages already counted does not need more room.
	require.NoError(t, s.Commit(testBase, testPage, ReadWrite))

	err := s.Commit(testBase+2*testPage, testPage, ReadWrite)
	require.True(t, errors.Is(err, ErrCommitFailed), "got %v", err)

	require.NoError(t, s.Decommit(testBase+testPage, testPage))
	require.NoError(t, s.Commit(testBase+2*testPage, testPage, ReadWrite))
}

func TestSimulatedRelease(t *testing.T) {
	s := NewSimulated(testPage, 0)
	defer s.Close()

	require.NoError(t, s.Reserve(testBase, 4*testPage))
	require.NoError(t, s.Commit(testBase, testPage, ReadWrite))
	require.NoError(t, s.Release(testBase, 4*testPage))
	require.Zero(t, s.Committed())
	require.Nil(t, s.View(testBase, testPage))

	err := s.Release(testBase, 4*testPage)
	require.True(t, errors.Is(err, ErrReleaseFailed), "got %v", err)

	// The range can be reserved again.
	require.NoError(t, s.Reserve(testBase, 4*testPage))
}

func TestCheckRange(t *testing.T) {
	tests := []struct {
		name   string
		addr   uintptr
		length uintptr
		ok     bool
	}{
		{"aligned", testBase, testPage, true},
		{"empty", testBase, 0, false},
		{"unaligned address", testBase + 1, testPage, false},
		{"unaligned length", testBase, testPage + 1, false},
		{"wraps", ^uintptr(0) - testPage + 1, 2 * testPage, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRange(tt.addr, tt.length, testPage)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, ErrBadRange), "got %v", err)
		})
	}
}
