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

	"github.com/dgraph-io/mist/region"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print host page size, engine layout and the accounting records.",
	RunE:  handleInfo,
}

func init() {
	RootCmd.AddCommand(infoCmd)
}

func handleInfo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ps, err := region.PageSize()
	if err != nil {
		return err
	}
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer closeEngine(e)

	opt := e.Options()
	fmt.Fprintf(out, "Page size:     %s\n", humanize.IBytes(uint64(ps)))
	fmt.Fprintf(out, "Slot size:     %s\n", humanize.IBytes(opt.MaxBagReservation))
	fmt.Fprintf(out, "Start address: %#x\n", opt.StartAddress)
	fmt.Fprintf(out, "Max bags:      %d\n", opt.MaxBags)

	for _, b := range e.Bags() {
		fmt.Fprintln(out, b)
	}
	recs, err := e.Records()
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Fprintf(out, "Record: bag %d at %#x, %d frames of %s, element %d/%d, released: %v\n",
			r.ID, r.Base, r.MaxFrames, humanize.IBytes(r.FrameSize), r.Width, r.Align, r.Released)
	}
	return nil
}
