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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"dirpx.dev/capx"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/examples/animals"
)

// typeReport is the introspection record of one registered type.
type typeReport struct {
	Name       string   `json:"name"`
	Implements []string `json:"implements"`
	Storage    []string `json:"storage"`
	Targets    []string `json:"targets"`
}

func runTypes(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("types", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print JSON instead of text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	animals.Register()
	reports := collectTypes(capx.Registry())

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Registered types: %d", len(reports))))
	for _, r := range reports {
		fmt.Fprintf(out, "\n%s\n", typeStyle.Render(r.Name))
		fmt.Fprintf(out, "  implements: %s\n", strings.Join(r.Implements, ", "))
		for _, s := range r.Storage {
			fmt.Fprintf(out, "  storage:    %s\n", s)
		}
		for _, t := range r.Targets {
			fmt.Fprintf(out, "  -> %s\n", targetStyle.Render(t))
		}
	}
	return nil
}

// collectTypes joins type metadata with the coercion targets of the type's
// storage wrappers, sorted by name.
func collectTypes(reg apis.Registry) []typeReport {
	snap := reg.Snapshot()

	byName := make(map[string]*typeReport, len(snap.Infos))
	for _, info := range snap.Infos {
		byName[info.Name] = &typeReport{Name: info.Name, Implements: info.Implements}
	}
	// Wrapper storage keys share the display name of their element type.
	targets := make(map[string]map[string]bool)
	for _, e := range snap.Coercions {
		name, ok := snap.Names[e.Storage]
		if !ok {
			continue
		}
		r, ok := byName[name]
		if !ok {
			continue
		}
		if !slices.Contains(r.Storage, e.Storage.String()) {
			r.Storage = append(r.Storage, e.Storage.String())
		}
		if targets[name] == nil {
			targets[name] = make(map[string]bool)
		}
		if t := e.Target.String(); !targets[name][t] {
			targets[name][t] = true
			r.Targets = append(r.Targets, t)
		}
	}

	reports := make([]typeReport, 0, len(byName))
	for _, r := range byName {
		slices.Sort(r.Storage)
		slices.Sort(r.Targets)
		reports = append(reports, *r)
	}
	slices.SortFunc(reports, func(a, b typeReport) int { return strings.Compare(a.Name, b.Name) })
	return reports
}
