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
	"context"
	"flag"
	"fmt"
	"io"

	"dirpx.dev/capx"
	"dirpx.dev/capx/boundary"
	"dirpx.dev/capx/examples/animals"
	"dirpx.dev/capx/foreign/wasmheap"
)

// runRoundTrip hands a sheep to the wasm heap, shears it through a borrowed
// reference, lets the guest collect the wrapper and checks the sheep is gone.
func runRoundTrip(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("roundtrip", flag.ContinueOnError)
	name := fs.String("name", "dolly", "Name of the sheep")
	if err := fs.Parse(args); err != nil {
		return err
	}

	heap, err := wasmheap.New(ctx)
	if err != nil {
		return err
	}
	defer heap.Close(ctx)

	sheep := animals.CreateSheep(*name)
	cell := sheep.Cell()
	v, err := boundary.ToValue(ctx, heap, sheep)
	if err != nil {
		sheep.Drop()
		return err
	}
	sheep.Drop()
	fmt.Fprintf(out, "%s value=%d refs=%d tickets=%d\n",
		titleStyle.Render("wrapped"), v, cell.Refs(), capx.OutstandingTickets())

	borrowed, err := boundary.FromValue[animals.Sheep](ctx, heap, v)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, resultStyle.Render(animals.SheepShear(borrowed)))
	fmt.Fprintln(out, resultStyle.Render(animals.AnimalTalk(animals.AsAnimal(borrowed))))
	borrowed.Drop()

	if err := heap.Collect(ctx, v); err != nil {
		return err
	}
	if !cell.Dropped() {
		return fmt.Errorf("sheep %q survived collection (refs=%d)", *name, cell.Refs())
	}
	fmt.Fprintf(out, "%s live=%d tickets=%d\n",
		titleStyle.Render("collected"), heap.Live(), capx.OutstandingTickets())
	return nil
}
