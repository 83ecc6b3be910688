/*
Copyright 2026.

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

// Package observability wires the structured logger and Prometheus metrics
// every component shares. Metrics are package-level vectors registered once
// at init, with small Record* helpers keyed by gateway/plan/reboot labels.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetadm_gateway_requests_total",
			Help: "Total number of remote-API gateway requests by upstream, operation, and outcome",
		},
		[]string{"upstream", "op", "outcome"},
	)

	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetadm_gateway_request_duration_seconds",
			Help:    "Duration of remote-API gateway requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"upstream", "op"},
	)

	planExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetadm_plan_executions_total",
			Help: "Total number of plan executions by result",
		},
		[]string{"result"},
	)

	planProcedureDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetadm_plan_procedure_duration_seconds",
			Help:    "Duration of individual plan procedures in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"kind"},
	)

	rebootDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetadm_reboot_duration_seconds",
			Help:    "Time from reboot job submission to operational for a server",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		},
		[]string{"server"},
	)

	rebootsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetadm_reboots_in_flight",
			Help: "Current number of reboots awaiting completion across all batches",
		},
	)

	lockWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetadm_lock_wait_seconds",
			Help:    "Time spent waiting to acquire the process-wide lock",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(
		gatewayRequestsTotal,
		gatewayRequestDuration,
		planExecutionsTotal,
		planProcedureDuration,
		rebootDuration,
		rebootsInFlight,
		lockWaitSeconds,
	)
}

// RecordGatewayRequest records one gateway round trip's outcome and latency.
func RecordGatewayRequest(upstream, op string, statusCode int, d time.Duration) {
	outcome := "error"
	if statusCode >= 200 && statusCode < 300 {
		outcome = "ok"
	} else if statusCode > 0 {
		outcome = fmt.Sprintf("status_%d", statusCode)
	}
	gatewayRequestsTotal.WithLabelValues(upstream, op, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(upstream, op).Observe(d.Seconds())
}

// RecordPlanExecution records the terminal result of one plan execution.
func RecordPlanExecution(result string) {
	planExecutionsTotal.WithLabelValues(result).Inc()
}

// RecordProcedureDuration records how long one procedure kind took to execute.
func RecordProcedureDuration(kind string, d time.Duration) {
	planProcedureDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordRebootDuration records the wall-clock time for one server's reboot.
func RecordRebootDuration(server string, d time.Duration) {
	rebootDuration.WithLabelValues(server).Observe(d.Seconds())
}

// SetRebootsInFlight updates the current in-flight reboot gauge.
func SetRebootsInFlight(n int) {
	rebootsInFlight.Set(float64(n))
}

// RecordLockWait records how long a caller waited to acquire the lock.
func RecordLockWait(d time.Duration) {
	lockWaitSeconds.Observe(d.Seconds())
}

// ServeMetrics starts an HTTP server exposing /metrics on addr and returns
// it unstarted from the caller's perspective of control flow: the server
// runs in the background until ctx is canceled, at which point it shuts
// down. Errors from ListenAndServe other than the expected shutdown one are
// logged, not returned, since a dead metrics endpoint should not take down
// the process driving the actual work.
func ServeMetrics(ctx context.Context, addr string, log *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Warnw("metrics server", "error", err)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && log != nil {
			log.Warnw("metrics server shutdown", "error", err)
		}
	}()
}
