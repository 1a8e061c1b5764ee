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

package main

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"go.opencensus.io/zpages"

	"github.com/dgraph-io/mist/cmd/mist/cmd"
	"github.com/dgraph-io/ristretto/z"
)

func main() {
	zpages.Handle(nil, "/z")
	runtime.SetBlockProfileRate(100)

	cmd.Execute()
	if z.NumAllocBytes() > 0 {
		fmt.Printf("Num Allocated Bytes at program end: %s\n",
			humanize.IBytes(uint64(z.NumAllocBytes())))
		fmt.Println(z.Leaks())
	}
}
