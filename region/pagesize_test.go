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
	"testing"

	"github.com/stretchr/testify/require"
)

// resetPageSize forgets the cached page size and installs query.
func resetPageSize(t *testing.T, query func() int) {
	old := queryPageSize
	pageSizeOnce = sync.Once{}
	pageSize, pageSizeErr = 0, nil
	queryPageSize = query
	t.Cleanup(func() {
		queryPageSize = old
		pageSizeOnce = sync.Once{}
		pageSize, pageSizeErr = 0, nil
	})
}

func TestPageSizeQueriedOnce(t *testing.T) {
	calls := 0
	resetPageSize(t, func() int {
		calls++
		return 16384
	})
	for i := 0; i < 3; i++ {
		ps, err := PageSize()
		require.NoError(t, err)
		require.Equal(t, 16384, ps)
	}
	require.Equal(t, 1, calls)
}

func TestPageSizeZeroIsFatal(t *testing.T) {
	resetPageSize(t, func() int { return 0 })
	_, err := PageSize()
	require.Equal(t, ErrNoPageSize, err)

	_, err = System()
	require.Equal(t, ErrNoPageSize, err)
}

func TestHostPageSize(t *testing.T) {
	ps := hostPageSize()
	require.True(t, ps > 0)
	require.Zero(t, ps&(ps-1), "page size %d is not a power of two", ps)
}
