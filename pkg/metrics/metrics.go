package metrics

import (
	"runtime"
	"time"
)

// A nil *Registry is valid and records nothing, so components can run
// without metrics in tests.

// RecordRequest records one render server request against its route pattern
func (r *Registry) RecordRequest(method, route, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
	r.RequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordTick records one simulation step
func (r *Registry) RecordTick(alpha float64, duration time.Duration) {
	if r == nil {
		return
	}
	r.LayoutTicksTotal.Inc()
	r.LayoutTickDuration.Observe(duration.Seconds())
	r.LayoutAlpha.Set(alpha)
}

// RecordLoad records a snapshot load outcome and the resulting graph size
func (r *Registry) RecordLoad(result string, orders, documents, edges int) {
	if r == nil {
		return
	}
	r.LayoutLoadsTotal.WithLabelValues(result).Inc()
	r.LayoutNodes.WithLabelValues("order").Set(float64(orders))
	r.LayoutNodes.WithLabelValues("document").Set(float64(documents))
	r.LayoutEdges.Set(float64(edges))
}

// RecordDropped counts snapshot entries dropped for reason
func (r *Registry) RecordDropped(reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.LayoutDroppedInputs.WithLabelValues(reason).Add(float64(n))
}

// RecordViewportRetry counts one deferred layout attempt
func (r *Registry) RecordViewportRetry() {
	if r == nil {
		return
	}
	r.LayoutViewportRetries.Inc()
}

// RecordConvergence records how many ticks a layout needed to settle
func (r *Registry) RecordConvergence(ticks int) {
	if r == nil {
		return
	}
	r.LayoutConvergenceTicks.Observe(float64(ticks))
}

// SimulationStarted and SimulationStopped track running loops
func (r *Registry) SimulationStarted() {
	if r == nil {
		return
	}
	r.LayoutActiveSimulations.Inc()
}

func (r *Registry) SimulationStopped() {
	if r == nil {
		return
	}
	r.LayoutActiveSimulations.Dec()
}

// RecordFrame counts a frame drawn to surface, and a failure if err is set
func (r *Registry) RecordFrame(surface string, err error) {
	if r == nil {
		return
	}
	r.FramesRenderedTotal.WithLabelValues(surface).Inc()
	if err != nil {
		r.RenderErrorsTotal.WithLabelValues(surface).Inc()
	}
}

// RecordAction records a completed node action
func (r *Registry) RecordAction(action, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.ActionRequestsTotal.WithLabelValues(action, status).Inc()
	r.ActionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordActionRejected counts an action refused before dispatch
func (r *Registry) RecordActionRejected(reason string) {
	if r == nil {
		return
	}
	r.ActionRejectedTotal.WithLabelValues(reason).Inc()
}

// ActionStarted and ActionFinished track in-flight actions
func (r *Registry) ActionStarted() {
	if r == nil {
		return
	}
	r.ActionsInFlight.Inc()
}

func (r *Registry) ActionFinished() {
	if r == nil {
		return
	}
	r.ActionsInFlight.Dec()
}

// RecordSourceLoad records a graph source read
func (r *Registry) RecordSourceLoad(driver, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.SourceLoadsTotal.WithLabelValues(driver, status).Inc()
	r.SourceLoadDuration.WithLabelValues(driver).Observe(duration.Seconds())
}

// RecordDataServiceCall records a data service response code per endpoint
func (r *Registry) RecordDataServiceCall(endpoint, code string) {
	if r == nil {
		return
	}
	r.DataServiceCallsTotal.WithLabelValues(endpoint, code).Inc()
}

// UpdateSystemMetrics refreshes uptime and runtime gauges
func (r *Registry) UpdateSystemMetrics(started time.Time) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	r.UptimeSeconds.Set(time.Since(started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(ms.Alloc))
	r.MemorySysBytes.Set(float64(ms.Sys))
}
