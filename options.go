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
	"github.com/dgraph-io/mist/region"
)

const (
	// DefaultMaxBagReservation is the address space reserved for every bag.
	DefaultMaxBagReservation uint64 = 4 << 30
	// DefaultStartAddress is where the first bag is placed.
	DefaultStartAddress uint64 = 0x1_0000_0000
	// DefaultMaxBags is the capacity of the bag directory, accounting bag included.
	DefaultMaxBags = 16
)

// NOTE: Keep the comments in the following to 75 chars width, so they
// format nicely in godoc.

// Options are params for creating an Engine.
//
// DefaultOptions works for most programs. Use it as a starting point and
// adjust it with the With* methods.
type Options struct {
	// Mapper manages address space for the engine. Nil selects the host
	// mapper returned by region.System.
	Mapper region.Mapper

	// FrameSize is used for bags created with a zero frame size. Zero
	// means the host page size.
	FrameSize int

	// MaxBagReservation is the address space set aside for each bag. It
	// must be a multiple of the page size and bounds every bag's frame
	// budget.
	MaxBagReservation uint64

	// StartAddress is the base of the first bag. Every further bag is
	// placed MaxBagReservation bytes after the previous one.
	StartAddress uint64

	// MaxBags bounds the number of live bags, accounting bag included.
	MaxBags int

	// Executable commits frames as read, write and execute.
	Executable bool

	// MetricsEnabled publishes expvar counters for bags and frames.
	MetricsEnabled bool

	// EventLogging records engine events with golang.org/x/net/trace.
	EventLogging bool

	// Engine-specific logger. Nil disables logging.
	Logger
}

// DefaultOptions returns the recommended options.
func DefaultOptions() Options {
	return Options{
		MaxBagReservation: DefaultMaxBagReservation,
		StartAddress:      DefaultStartAddress,
		MaxBags:           DefaultMaxBags,
		MetricsEnabled:    true,
		EventLogging:      true,
		Logger:            defaultLogger(INFO),
	}
}

// WithMapper returns a new Options value with Mapper set to the given value.
func (opt Options) WithMapper(m region.Mapper) Options {
	opt.Mapper = m
	return opt
}

// WithFrameSize returns a new Options value with FrameSize set to the given
// value.
func (opt Options) WithFrameSize(val int) Options {
	opt.FrameSize = val
	return opt
}

// WithMaxBagReservation returns a new Options value with MaxBagReservation
// set to the given value.
func (opt Options) WithMaxBagReservation(val uint64) Options {
	opt.MaxBagReservation = val
	return opt
}

// WithStartAddress returns a new Options value with StartAddress set to the
// given value.
func (opt Options) WithStartAddress(val uint64) Options {
	opt.StartAddress = val
	return opt
}

// WithMaxBags returns a new Options value with MaxBags set to the given value.
func (opt Options) WithMaxBags(val int) Options {
	opt.MaxBags = val
	return opt
}

// WithExecutable returns a new Options value with Executable set to the given
// value.
func (opt Options) WithExecutable(val bool) Options {
	opt.Executable = val
	return opt
}

// WithMetricsEnabled returns a new Options value with MetricsEnabled set to
// the given value.
func (opt Options) WithMetricsEnabled(val bool) Options {
	opt.MetricsEnabled = val
	return opt
}

// WithEventLogging returns a new Options value with EventLogging set to the
// given value.
func (opt Options) WithEventLogging(val bool) Options {
	opt.EventLogging = val
	return opt
}

// WithLogger returns a new Options value with Logger set to the given logger.
// A nil logger silences the engine.
func (opt Options) WithLogger(val Logger) Options {
	opt.Logger = val
	return opt
}

// WithLoggingLevel returns a new Options value with the default logger set
// to the given level.
func (opt Options) WithLoggingLevel(val loggingLevel) Options {
	opt.Logger = defaultLogger(val)
	return opt
}

func (opt *Options) protection() region.Protection {
	if opt.Executable {
		return region.ReadWriteExec
	}
	return region.ReadWrite
}
