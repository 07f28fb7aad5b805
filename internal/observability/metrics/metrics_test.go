package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLifecycleMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLifecycleMetrics(reg)
	m.ObserveTransition("book", "committed")
	m.ObserveTransition("accept", "rejected_local")
}

func TestSyncMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)
	m.ObservePoll("ok", 0.2)
	m.ObservePoll("error", 0.1)
	m.ObservePushEvent("new_message")
	m.ObserveMerge(3, 1)
	m.ObserveSend("ok")
}

func TestMetricsNilSafe(t *testing.T) {
	var lm *LifecycleMetrics
	lm.ObserveTransition("book", "committed")

	var sm *SyncMetrics
	sm.ObservePoll("ok", 0.1)
	sm.ObservePushEvent("new_message")
	sm.ObserveMerge(1, 0)
	sm.ObserveSend("error")
}
