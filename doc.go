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

// Package mist is a frame-granular arena allocator over reserved virtual
// memory.
//
// An Engine hands out bags. Each bag owns a fixed slot of address space that
// is reserved up front and committed one frame at a time as its bump
// allocator moves forward, so memory is only backed once it is used. Bags
// sit at predictable addresses: the first one at Options.StartAddress and
// every further one a slot further up.
//
//	e := mist.New(mist.DefaultOptions())
//	if err := e.Init(); err != nil {
//		return err
//	}
//	defer e.Close()
//	bag, err := e.CreateBag(0, 0, 8, 8)
//	...
//	off, err := bag.Allocate(0)
//	elem, err := bag.Element(off)
//
// Allocations are never freed individually. Trailing frames can be handed
// back with Bag.ReleaseTrailingFrame and a whole bag with Bag.Release.
//
// The *Bag returned by CreateBag is the handle for all work on a bag. A BagID
// is for introspection only: it names the bag in Records and can be looked up
// with Engine.Bag. The accounting bag, ID AccountingBag, can be inspected
// but is written only by the engine.
//
// The package-level Init and CreateBag functions use a process-wide engine.
package mist
