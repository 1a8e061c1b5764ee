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
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure allocation throughput of a single bag.",
	RunE:  handleBench,
}

var benchOpt struct {
	count int
	width uint16
	align uint16
}

func init() {
	RootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVarP(&benchOpt.count, "count", "n", 1<<20, "Number of allocations.")
	benchCmd.Flags().Uint16VarP(&benchOpt.width, "width", "w", 8, "Element width in bytes.")
	benchCmd.Flags().Uint16VarP(&benchOpt.align, "align", "a", 8, "Element alignment in bytes.")
}

func handleBench(cmd *cobra.Command, args []string) error {
	if benchOpt.count < 1 {
		return errors.New("--count should be at least 1")
	}
	if benchOpt.width == 0 {
		return errors.New("--width should be at least 1")
	}
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer closeEngine(e)

	b, err := e.CreateBag(0, 0, benchOpt.width, benchOpt.align)
	if err != nil {
		return err
	}
	start := time.Now()
	for i := 0; i < benchOpt.count; i++ {
		if _, err := b.Allocate(0); err != nil {
			return errors.Wrapf(err, "after %d allocations", i)
		}
	}
	dur := time.Since(start)
	if dur <= 0 {
		dur = time.Nanosecond
	}

	s := b.Stats()
	fmt.Fprintf(cmd.OutOrStdout(),
		"%d allocations in %s (%s/sec), %s used, %d frames of %s committed\n",
		benchOpt.count, dur.Round(time.Millisecond),
		humanize.Comma(int64(float64(benchOpt.count)/dur.Seconds())),
		humanize.IBytes(uint64(s.Used)), s.CommittedFrames, humanize.IBytes(uint64(s.FrameSize)))
	return nil
}
