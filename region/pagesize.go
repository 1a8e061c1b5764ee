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
)

var (
	pageSizeOnce sync.Once
	pageSize     int
	pageSizeErr  error

	// queryPageSize is swapped out by tests.
	queryPageSize = hostPageSize
)

// PageSize returns the host allocation granularity. The host is asked once per
// process and the answer is cached.
func PageSize() (int, error) {
	pageSizeOnce.Do(func() {
		pageSize = queryPageSize()
		if pageSize <= 0 {
			pageSizeErr = ErrNoPageSize
		}
	})
	return pageSize, pageSizeErr
}
