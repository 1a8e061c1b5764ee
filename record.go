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

	"github.com/dgraph-io/mist/y"
	"github.com/pkg/errors"
)

// Every bag the engine creates is described by a fixed-size record in the
// accounting bag:
//
//	[0:4]   bag ID
//	[4:6]   element width
//	[6:8]   element alignment
//	[8:16]  base address
//	[16:24] frame size
//	[24:32] frame budget
//	[32:40] flags
//	[40:48] xxhash of bytes [0:40]
//
// All fields are little endian.
const (
	// RecordSize is the encoded size of a Record.
	RecordSize  = 48
	recordAlign = 8

	recordReleased uint64 = 1 << 0
)

// Record describes a bag as seen by the accounting bag.
type Record struct {
	ID        BagID
	Width     uint16
	Align     uint16
	Base      uint64
	FrameSize uint64
	MaxFrames uint64
	Released  bool
}

func recordOf(b *Bag) Record {
	return Record{
		ID:        b.id,
		Width:     b.bump.width,
		Align:     b.bump.align,
		Base:      uint64(b.base),
		FrameSize: uint64(b.frameSize),
		MaxFrames: uint64(b.maxFrames),
	}
}

// Encode writes r into buf, which must hold RecordSize bytes.
func (r Record) Encode(buf []byte) {
	y.AssertTrue(len(buf) >= RecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.ID))
	binary.LittleEndian.PutUint16(buf[4:6], r.Width)
	binary.LittleEndian.PutUint16(buf[6:8], r.Align)
	binary.LittleEndian.PutUint64(buf[8:16], r.Base)
	binary.LittleEndian.PutUint64(buf[16:24], r.FrameSize)
	binary.LittleEndian.PutUint64(buf[24:32], r.MaxFrames)
	var flags uint64
	if r.Released {
		flags |= recordReleased
	}
	binary.LittleEndian.PutUint64(buf[32:40], flags)
	binary.LittleEndian.PutUint64(buf[40:48], y.Checksum(buf[:40]))
}

// Decode reads a record from buf and verifies its checksum.
func (r *Record) Decode(buf []byte) error {
	if len(buf) < RecordSize {
		return errors.Errorf("record needs %d bytes, got %d", RecordSize, len(buf))
	}
	if err := y.VerifyChecksum(buf[:40], binary.LittleEndian.Uint64(buf[40:48])); err != nil {
		return err
	}
	r.ID = BagID(binary.LittleEndian.Uint32(buf[0:4]))
	r.Width = binary.LittleEndian.Uint16(buf[4:6])
	r.Align = binary.LittleEndian.Uint16(buf[6:8])
	r.Base = binary.LittleEndian.Uint64(buf[8:16])
	r.FrameSize = binary.LittleEndian.Uint64(buf[16:24])
	r.MaxFrames = binary.LittleEndian.Uint64(buf[24:32])
	r.Released = binary.LittleEndian.Uint64(buf[32:40])&recordReleased != 0
	return nil
}
