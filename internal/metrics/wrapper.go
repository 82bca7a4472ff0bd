package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the interfaces used by the ml and api packages
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc(decision string) {
	w.m.MLPredictions.WithLabelValues(decision).Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *MetricsWrapper) MLModelLoadObserve(seconds float64, ok bool) {
	result := "error"
	if ok {
		result = "ok"
		w.m.MLModelLoaded.Set(1)
	} else {
		w.m.MLModelLoaded.Set(0)
	}
	w.m.MLModelLoads.WithLabelValues(result).Inc()
	w.m.MLModelLoadSeconds.Observe(seconds)
}

func (w *MetricsWrapper) HTTPRequestObserve(route string, code int) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (w *MetricsWrapper) ValidationFailuresInc() {
	w.m.ValidationFailures.Inc()
}
