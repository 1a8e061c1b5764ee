/*
 * Copyright (C) 2017 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package y

import (
	"expvar"
)

var (
	// numBagsCreated is the number of bags created across all engines.
	numBagsCreated *expvar.Int
	// numBagsReleased is the number of bags whose reservation was returned.
	numBagsReleased *expvar.Int

	// These are cumulative

	// numFramesCommitted has cumulative number of frames committed
	numFramesCommitted *expvar.Int
	// numFramesDecommitted has cumulative number of frames handed back
	numFramesDecommitted *expvar.Int
	// numAllocations is number of successful bump allocations
	numAllocations *expvar.Int
	// numAllocatedBytes is number of bytes handed out by bump allocations
	numAllocatedBytes *expvar.Int
	// numAllocFailures is number of rejected allocations
	numAllocFailures *expvar.Int
	// committedBytes has committed bytes per bag
	committedBytes *expvar.Map
)

// These variables are global and have cumulative values for all engines.
func init() {
	numBagsCreated = expvar.NewInt("mist_bags_created_total")
	numBagsReleased = expvar.NewInt("mist_bags_released_total")
	numFramesCommitted = expvar.NewInt("mist_frames_committed_total")
	numFramesDecommitted = expvar.NewInt("mist_frames_decommitted_total")
	numAllocations = expvar.NewInt("mist_allocations_total")
	numAllocatedBytes = expvar.NewInt("mist_allocated_bytes_total")
	numAllocFailures = expvar.NewInt("mist_alloc_failures_total")
	committedBytes = expvar.NewMap("mist_committed_bytes")
}

func NumBagsCreatedAdd(enabled bool, val int64) {
	addInt(enabled, numBagsCreated, val)
}

func NumBagsReleasedAdd(enabled bool, val int64) {
	addInt(enabled, numBagsReleased, val)
}

func NumFramesCommittedAdd(enabled bool, val int64) {
	addInt(enabled, numFramesCommitted, val)
}

func NumFramesDecommittedAdd(enabled bool, val int64) {
	addInt(enabled, numFramesDecommitted, val)
}

func NumAllocationsAdd(enabled bool, val int64) {
	addInt(enabled, numAllocations, val)
}

func NumAllocatedBytesAdd(enabled bool, val int64) {
	addInt(enabled, numAllocatedBytes, val)
}

func NumAllocFailuresAdd(enabled bool, val int64) {
	addInt(enabled, numAllocFailures, val)
}

func CommittedBytesSet(enabled bool, key string, val int64) {
	if !enabled {
		return
	}
	v := new(expvar.Int)
	v.Set(val)
	storeToMap(enabled, committedBytes, key, v)
}

func CommittedBytesGet(enabled bool, key string) expvar.Var {
	return getFromMap(enabled, committedBytes, key)
}

func addInt(enabled bool, metric *expvar.Int, val int64) {
	if !enabled {
		return
	}

	metric.Add(val)
}

func storeToMap(enabled bool, metric *expvar.Map, key string, val expvar.Var) {
	if !enabled {
		return
	}

	metric.Set(key, val)
}

func getFromMap(enabled bool, metric *expvar.Map, key string) expvar.Var {
	if !enabled {
		return nil
	}

	return metric.Get(key)
}
