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

// Package metrics holds the Prometheus collectors describing cell and ticket
// lifecycles, coercions and finalizer outcomes. Collectors are always updated;
// Register exposes them on a registerer once.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "capx"

var (
	registerOnce sync.Once
	registerErr  error

	cellsLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cell",
			Name:      "live",
			Help:      "Type-erased cells whose payload has not been destroyed.",
		},
	)
	cellsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cell",
			Name:      "dropped_total",
			Help:      "Payload destructors run.",
		},
	)
	ticketsOutstanding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ticket",
			Name:      "outstanding",
			Help:      "Strong references leaked to a foreign runtime and not yet reclaimed.",
		},
	)
	coercions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "coercions_total",
			Help:      "Successful coercions by access mode.",
		},
		[]string{"mode"},
	)
	bindingDefects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "binding_defects_total",
			Help:      "Binding defects detected at run time, by kind.",
		},
		[]string{"kind"},
	)
	finalizers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boundary",
			Name:      "finalizers_total",
			Help:      "Foreign finalizer invocations by outcome.",
		},
		[]string{"outcome"},
	)
)

// Collectors returns every capx collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		cellsLive, cellsDropped, ticketsOutstanding, coercions, bindingDefects, finalizers,
	}
}

// Register registers all collectors on r. Only the first call has an effect;
// later calls return the first call's result.
func Register(r prometheus.Registerer) error {
	registerOnce.Do(func() {
		for _, c := range Collectors() {
			if err := r.Register(c); err != nil {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

// CellCreated records a new live cell.
func CellCreated() { cellsLive.Inc() }

// CellDropped records a destroyed payload.
func CellDropped() {
	cellsLive.Dec()
	cellsDropped.Inc()
}

// TicketIssued records a reference leaked into a ticket.
func TicketIssued() { ticketsOutstanding.Inc() }

// TicketRedeemed records a ticket consumed back into a reference.
func TicketRedeemed() { ticketsOutstanding.Dec() }

// Coerced records a successful coercion; mode is "read" or "write".
func Coerced(mode string) { coercions.WithLabelValues(mode).Inc() }

// BindingDefect records a detected binding defect of the given kind.
func BindingDefect(kind string) { bindingDefects.WithLabelValues(kind).Inc() }

// Finalized records a finalizer outcome: "ok" or "failed".
func Finalized(outcome string) { finalizers.WithLabelValues(outcome).Inc() }

// FinalizerOutcomes exposes the finalizer counter for inspection.
func FinalizerOutcomes() *prometheus.CounterVec { return finalizers }

// BindingDefects exposes the binding-defect counter for inspection.
func BindingDefects() *prometheus.CounterVec { return bindingDefects }
