/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Command capx inspects the sample bindings and drives a value through the
// WebAssembly-hosted foreign heap.
//
// Usage:
//
//	capx [-config capx.toml] types [-json]
//	capx [-config capx.toml] roundtrip [-name dolly]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"dirpx.dev/capx"
	"dirpx.dev/capx/boundary"
	"dirpx.dev/capx/cell"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/registry"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintln(fs.Output(), "Usage: capx [-config file.toml] types [-json]")
	fmt.Fprintln(fs.Output(), "       capx [-config file.toml] roundtrip [-name NAME]")
	fs.PrintDefaults()
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("capx", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a TOML config file")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := setup(*configPath); err != nil {
		return err
	}

	switch cmd, rest := fs.Arg(0), fs.Args(); cmd {
	case "types":
		return runTypes(rest[1:], out)
	case "roundtrip":
		return runRoundTrip(ctx, rest[1:], out)
	case "":
		usage(fs)
		return fmt.Errorf("missing command")
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// setup applies the config file, if any, and installs its logger everywhere.
func setup(path string) error {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	capx.SetConfig(cfg)
	capx.SetLogger(log)
	registry.SetLogger(log)
	cell.SetLogger(log)
	boundary.SetLogger(log)
	return nil
}
