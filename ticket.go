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

package capx

import (
	"strconv"
	"sync"
	"sync/atomic"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/cell"
	"dirpx.dev/capx/internal/metrics"
	"dirpx.dev/capx/registry"
)

// Ticket stands for one strong reference held by a foreign runtime. It is a
// plain integer, so it can live in foreign memory the Go collector never
// scans. Each ticket is consumed exactly once by FromRaw.
type Ticket uint64

var (
	tickets   sync.Map // Ticket -> *cell.Cell
	ticketSeq atomic.Uint64
)

// IntoRaw moves b's reference into a new ticket. The count is unchanged;
// b must not be dropped afterwards.
func (b Box[T]) IntoRaw() Ticket {
	if b.c == nil {
		registry.Fail(Registry(), &apis.BindingError{Kind: apis.KindCellDropped, Detail: "zero box"})
	}
	t := Ticket(ticketSeq.Add(1))
	tickets.Store(t, b.c)
	metrics.TicketIssued()
	return t
}

// FromRaw consumes t and returns the reference it stood for. Consuming a
// ticket twice, or one never issued, panics.
func FromRaw[T any](t Ticket) Box[T] {
	v, ok := tickets.LoadAndDelete(t)
	if !ok {
		registry.Fail(Registry(), &apis.BindingError{Kind: apis.KindTicketConsumed, Detail: ticketDetail(t)})
	}
	metrics.TicketRedeemed()
	return Box[T]{c: v.(*cell.Cell)}
}

// CloneRaw returns a new reference to the cell behind t and leaves t owned
// by the foreign side.
func CloneRaw[T any](t Ticket) Box[T] {
	v, ok := tickets.Load(t)
	if !ok {
		registry.Fail(Registry(), &apis.BindingError{Kind: apis.KindTicketConsumed, Detail: ticketDetail(t)})
	}
	c := v.(*cell.Cell)
	c.Retain()
	return Box[T]{c: c}
}

// OutstandingTickets returns the number of issued, unconsumed tickets.
func OutstandingTickets() int {
	n := 0
	tickets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func ticketDetail(t Ticket) string {
	return "ticket " + strconv.FormatUint(uint64(t), 10)
}
