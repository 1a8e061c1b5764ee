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
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec
	"os"
	"strings"

	"github.com/dgraph-io/mist"
	"github.com/dgraph-io/mist/region"
	"github.com/spf13/cobra"
)

// simulatedSlot is the default slot under --simulate, where every reservation
// is backed by a buffer of its full size.
const simulatedSlot uint64 = 64 << 20

var (
	simulate  bool
	startAddr uint64
	slotSize  uint64
	maxBags   int
	verbose   bool
	debugAddr string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:               "mist",
	Short:             "Tools to exercise the Mist arena allocator.",
	PersistentPreRunE: validateRootCmdArgs,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false,
		"Keep bags in process memory instead of at fixed host addresses.")
	RootCmd.PersistentFlags().Uint64Var(&startAddr, "start", mist.DefaultStartAddress,
		"Address of the first bag.")
	RootCmd.PersistentFlags().Uint64Var(&slotSize, "slot", mist.DefaultMaxBagReservation,
		"Address space reserved per bag. Defaults to 64 MiB under --simulate.")
	RootCmd.PersistentFlags().IntVar(&maxBags, "max-bags", mist.DefaultMaxBags,
		"Maximum number of live bags, accounting bag included.")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs.")
	RootCmd.PersistentFlags().StringVar(&debugAddr, "debug-addr", "",
		"Serve /debug and /z pages at this address, e.g. localhost:8080.")
}

func validateRootCmdArgs(cmd *cobra.Command, args []string) error {
	if strings.HasPrefix(cmd.Use, "help ") { // No need to validate if it is help
		return nil
	}
	if startAddr == 0 {
		return errors.New("--start should be non-zero")
	}
	if slotSize == 0 {
		return errors.New("--slot should be non-zero")
	}
	if maxBags < 1 {
		return errors.New("--max-bags should be at least 1")
	}
	if debugAddr != "" {
		go func() {
			fmt.Printf("Listening for /debug HTTP requests at %s\n", debugAddr)
			if err := http.ListenAndServe(debugAddr, nil); err != nil {
				fmt.Printf("Debug server stopped: %v\n", err)
			}
		}()
	}
	return nil
}

func engineOptions() (mist.Options, error) {
	slot := slotSize
	if simulate && !RootCmd.PersistentFlags().Changed("slot") {
		slot = simulatedSlot
	}
	opt := mist.DefaultOptions().
		WithStartAddress(startAddr).
		WithMaxBagReservation(slot).
		WithMaxBags(maxBags)
	if verbose {
		opt = opt.WithLoggingLevel(mist.DEBUG)
	} else {
		opt = opt.WithLoggingLevel(mist.WARNING)
	}
	if simulate {
		ps, err := region.PageSize()
		if err != nil {
			return opt, err
		}
		opt = opt.WithMapper(region.NewSimulated(ps, 0))
	}
	return opt, nil
}

// openEngine returns an initialized engine. The caller closes it.
func openEngine() (*mist.Engine, error) {
	opt, err := engineOptions()
	if err != nil {
		return nil, err
	}
	e := mist.New(opt)
	if err := e.Init(); err != nil {
		return nil, err
	}
	return e, nil
}

func closeEngine(e *mist.Engine) {
	if err := e.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Engine.Close. Error: %v\n", err)
	}
	if sim, ok := e.Options().Mapper.(*region.Simulated); ok {
		sim.Close()
	}
}
