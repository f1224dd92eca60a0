// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics instruments the engine with the same Prometheus client
// the rest of AxonFlow exposes its request metrics through, applied here
// to step and workflow execution outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder wraps the engine's Prometheus collectors. A nil *Recorder is
// never dereferenced by the engine package itself (Driver checks for nil
// before calling in), so an engine without a configured Recorder pays no
// instrumentation cost.
type Recorder struct {
	stepDuration      *prometheus.HistogramVec
	workflowOutcomes  *prometheus.CounterVec
	activeBranches    prometheus.Gauge
}

// NewRecorder builds and registers the engine's collectors against reg.
// Pass prometheus.DefaultRegisterer to use the global registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "axonflow_workflowengine_step_duration_milliseconds",
				Help:    "Step execution duration in milliseconds, by kind and terminal status.",
				Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 30000},
			},
			[]string{"kind", "status"},
		),
		workflowOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axonflow_workflowengine_workflow_outcomes_total",
				Help: "Total number of workflow executions, by terminal status.",
			},
			[]string{"status"},
		),
		activeBranches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "axonflow_workflowengine_active_parallel_branches",
				Help: "Number of parallel branches currently executing across all workflows.",
			},
		),
	}
	reg.MustRegister(r.stepDuration, r.workflowOutcomes, r.activeBranches)
	return r
}

// ObserveStep records one step's terminal duration and status.
func (r *Recorder) ObserveStep(kind, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.stepDuration.WithLabelValues(kind, status).Observe(float64(d.Milliseconds()))
}

// ObserveWorkflow records one workflow execution's terminal status.
func (r *Recorder) ObserveWorkflow(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.workflowOutcomes.WithLabelValues(status).Inc()
}

// BranchStarted/BranchFinished track the active-parallel-branch gauge
// around a parallel step's goroutine lifetime.
func (r *Recorder) BranchStarted() {
	if r == nil {
		return
	}
	r.activeBranches.Inc()
}

func (r *Recorder) BranchFinished() {
	if r == nil {
		return
	}
	r.activeBranches.Dec()
}
