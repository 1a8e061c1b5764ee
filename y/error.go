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

package y

// This file contains some functions for error handling.
// Some common use cases are:
// (1) An invariant of our own is broken. Use y.AssertTrue or y.AssertTruef,
//     which log fatal.
// (2) You receive an error from a lower layer, and would like to pass it on
//     with some context. In this case, use y.Wrap or y.Wrapf.

import (
	"fmt"
	"log"

	"github.com/pkg/errors"
)

var debugMode = false

// AssertTrue asserts that b is true. Otherwise, it would log fatal.
func AssertTrue(b bool) {
	if !b {
		log.Fatalf("%+v", errors.Errorf("Assert failed"))
	}
}

// AssertTruef is AssertTrue with extra info.
func AssertTruef(b bool, format string, args ...interface{}) {
	if !b {
		log.Fatalf("%+v", errors.Errorf(format, args...))
	}
}

// Wrap wraps errors from external lib.
func Wrap(err error, msg string) error {
	if !debugMode {
		if err == nil {
			return nil
		}
		return fmt.Errorf("%s err: %w", msg, err)
	}
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with extra info.
func Wrapf(err error, format string, args ...interface{}) error {
	if !debugMode {
		if err == nil {
			return nil
		}
		return fmt.Errorf(format+" error: %w", append(args, err)...)
	}
	return errors.Wrapf(err, format, args...)
}

// CombineErrors joins two errors into one message. The result unwraps to the
// second error when both are present.
func CombineErrors(one, other error) error {
	if one != nil && other != nil {
		return fmt.Errorf("%v; %w", one, other)
	}
	if one != nil && other == nil {
		return fmt.Errorf("%w", one)
	}
	if one == nil && other != nil {
		return fmt.Errorf("%w", other)
	}
	return nil
}
