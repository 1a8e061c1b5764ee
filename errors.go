/*
 * Copyright 2017 Dgraph Labs, Inc. and Contributors
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
	"github.com/pkg/errors"
)

// Engine errors.
var (
	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("Engine is already initialized")

	// ErrNotInitialized is returned when a bag is requested before Init.
	ErrNotInitialized = errors.New("Engine is not initialized")

	// ErrEngineClosed is returned for any operation after Close.
	ErrEngineClosed = errors.New("Engine is closed")

	// ErrTooManyBags is returned when the bag directory has no free slot.
	ErrTooManyBags = errors.New("Bag directory is full")

	// ErrInvalidOptions is returned by Init when Options are inconsistent.
	ErrInvalidOptions = errors.New("Invalid engine options")
)

// Bag errors.
var (
	// ErrBadFrameSize is returned when a frame size is not a positive multiple
	// of the host page size.
	ErrBadFrameSize = errors.New("Frame size must be a positive multiple of the host page size")

	// ErrBadFrameBudget is returned for a negative frame budget.
	ErrBadFrameBudget = errors.New("Frame budget must not be negative")

	// ErrReservationTooLarge is returned when a bag would not fit in its
	// reservation slot.
	ErrReservationTooLarge = errors.New("Bag does not fit in a reservation slot")

	// ErrFrameBudgetExceeded is returned when every frame of a bag is committed.
	ErrFrameBudgetExceeded = errors.New("Bag frame budget exceeded")

	// ErrCannotReleaseAccountingFrame is returned on an attempt to release
	// frame 0 of a bag.
	ErrCannotReleaseAccountingFrame = errors.New("Cannot release the accounting frame")

	// ErrAccountingBag is returned when a caller tries to change the
	// accounting bag. Only the engine touches its memory.
	ErrAccountingBag = errors.New("Accounting bag is managed by the engine")

	// ErrFrameOutOfRange is returned for a frame index outside the bag.
	ErrFrameOutOfRange = errors.New("Frame index out of range")

	// ErrOutOfRange is returned when an access reaches past committed memory.
	ErrOutOfRange = errors.New("Access outside committed memory")

	// ErrBagReleased is returned for any operation on a released bag.
	ErrBagReleased = errors.New("Bag has been released")
)

// Allocation errors.
var (
	// ErrSizeMismatch is returned when a typed bag is asked for an explicit size.
	ErrSizeMismatch = errors.New("Typed bag only serves its own element size")

	// ErrOutOfFrames is returned when an allocation needs more frames than the
	// bag may commit. The bag stays exhausted afterwards.
	ErrOutOfFrames = errors.New("Bag is out of frames")

	// ErrIndexOverflow is returned when an allocation would end outside the
	// bag's reservation.
	ErrIndexOverflow = errors.New("Allocation overflows the bag reservation")

	// ErrInvalidSize is returned for negative sizes and for zero sized requests
	// on an untyped bag.
	ErrInvalidSize = errors.New("Invalid allocation size")

	// ErrUntypedBag is returned by element accessors on a bag without an
	// element width.
	ErrUntypedBag = errors.New("Bag has no element type")
)
