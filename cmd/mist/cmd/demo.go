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

package cmd

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dgraph-io/mist"
	"github.com/dgraph-io/mist/y"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Fill three typed bags and print their first and last elements.",
	Long: `
Creates bags of 8 byte, 4 byte and 12 byte (16 byte aligned) elements, allocates
--count elements in each and writes a value derived from the element index into
every one. The first and last ten elements of each bag are printed afterwards.
`,
	RunE: handleDemo,
}

var demoOpt struct {
	count    int
	dumpFile string
}

func init() {
	RootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntVarP(&demoOpt.count, "count", "n", 0x4000, "Elements to allocate per bag.")
	demoCmd.Flags().StringVar(&demoOpt.dumpFile, "dump", "",
		"Write the committed frames of every bag to this file, zstd compressed.")
}

// twelveByte mirrors a struct { uint64; uint32 } laid out in 12 bytes.
type twelveByte struct {
	b8 uint64
	b4 uint32
}

func (tb twelveByte) put(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], tb.b8)
	binary.LittleEndian.PutUint32(buf[8:12], tb.b4)
}

func readTwelveByte(buf []byte) twelveByte {
	return twelveByte{
		b8: binary.LittleEndian.Uint64(buf[0:8]),
		b4: binary.LittleEndian.Uint32(buf[8:12]),
	}
}

func handleDemo(cmd *cobra.Command, args []string) error {
	if demoOpt.count < 1 {
		return errors.New("--count should be at least 1")
	}
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer closeEngine(e)

	out := cmd.OutOrStdout()
	var bags [3]*mist.Bag
	for i, wa := range [][2]uint16{{8, 8}, {4, 4}, {12, 16}} {
		b, err := e.CreateBag(0, 0, wa[0], wa[1])
		if err != nil {
			return errors.Wrapf(err, "while creating bag #%d", i+1)
		}
		s := b.Stats()
		fmt.Fprintf(out, "Bag #%d is at %#x (Frame Size: %d, Max Frames: %d, Type Width: %d, "+
			"Type Align: %d, Aligned Width: %d)\n",
			i+1, s.Base, s.FrameSize, s.MaxFrames, s.Width, s.Align, s.AlignedWidth)
		bags[i] = b
	}

	offs := make([][3]mist.Offset, demoOpt.count)
	for z := 0; z < demoOpt.count; z++ {
		for i, b := range bags {
			off, err := b.Allocate(0)
			if err != nil {
				return errors.Wrapf(err, "bag #%d at index %d", i+1, z)
			}
			offs[z][i] = off
		}
		elems, err := elements(bags, offs[z])
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(elems[0], uint64(z))
		binary.LittleEndian.PutUint32(elems[1], uint32(z))
		twelveByte{b8: 0xDEADBEEF + uint64(z), b4: 0xDEEDDEED}.put(elems[2])
	}

	show := func(z int) error {
		elems, err := elements(bags, offs[z])
		if err != nil {
			return err
		}
		tb := readTwelveByte(elems[2])
		fmt.Fprintf(out, "[%d] 64: %#x = %#x, 32: %#x = %#x, 12: %#x = {%#x, %#x}\n", z,
			bags[0].Base()+uintptr(offs[z][0]), binary.LittleEndian.Uint64(elems[0]),
			bags[1].Base()+uintptr(offs[z][1]), binary.LittleEndian.Uint32(elems[1]),
			bags[2].Base()+uintptr(offs[z][2]), tb.b8, tb.b4)
		return nil
	}
	last := demoOpt.count - 10
	if last < 10 {
		last = 10
	}
	for z := 0; z < demoOpt.count && z < 10; z++ {
		if err := show(z); err != nil {
			return err
		}
	}
	for z := last; z < demoOpt.count; z++ {
		if err := show(z); err != nil {
			return err
		}
	}
	for _, b := range bags {
		fmt.Fprintln(out, b)
	}

	if demoOpt.dumpFile == "" {
		return nil
	}
	f, err := os.Create(demoOpt.dumpFile)
	if err != nil {
		return err
	}
	if err := dumpBags(f, e, bags[:]); err != nil {
		return y.CombineErrors(f.Close(), err)
	}
	return f.Close()
}

func elements(bags [3]*mist.Bag, offs [3]mist.Offset) ([3][]byte, error) {
	var elems [3][]byte
	for i, b := range bags {
		elem, err := b.Element(offs[i])
		if err != nil {
			return elems, err
		}
		elems[i] = elem
	}
	return elems, nil
}

// dumpBags writes, for each bag, its accounting record followed by its
// committed frames. The stream is zstd compressed.
func dumpBags(w io.Writer, e *mist.Engine, bags []*mist.Bag) error {
	enc, err := y.NewZSTDWriter(w, 3)
	if err != nil {
		return err
	}
	recs, err := e.Records()
	if err != nil {
		return y.CombineErrors(enc.Close(), err)
	}
	byID := make(map[mist.BagID]mist.Record, len(recs))
	for _, r := range recs {
		if !r.Released {
			byID[r.ID] = r
		}
	}
	hdr := make([]byte, mist.RecordSize)
	for _, b := range bags {
		byID[b.ID()].Encode(hdr)
		committed, err := b.Bytes(0, int(b.Committed().Size))
		if err == nil {
			_, err = enc.Write(hdr)
		}
		if err == nil {
			_, err = enc.Write(committed)
		}
		if err != nil {
			return y.CombineErrors(enc.Close(), errors.Wrapf(err, "while dumping bag %d", b.ID()))
		}
	}
	return enc.Close()
}
