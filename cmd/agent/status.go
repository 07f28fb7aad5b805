package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/styleslot/styleslot-go/internal/api"
	"github.com/styleslot/styleslot-go/pkg/logging"
)

// statusSnapshot is a human-readable rollup of the sync counters, for quick
// inspection without a Prometheus scrape.
type statusSnapshot struct {
	UserID          int64            `json:"user_id"`
	Role            string           `json:"role"`
	Polls           map[string]int64 `json:"polls"`
	MessagesMerged  int64            `json:"messages_merged"`
	MessagesDeduped int64            `json:"messages_deduped"`
	Sends           map[string]int64 `json:"sends"`
	Transitions     map[string]int64 `json:"transitions"`
}

func statusHandler(user api.User, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := gatherStatus(prometheus.DefaultGatherer, user)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			logger.Warn("status encode failed", "error", err)
		}
	}
}

func gatherStatus(gatherer prometheus.Gatherer, user api.User) statusSnapshot {
	snap := statusSnapshot{
		UserID:      user.ID,
		Role:        user.Role,
		Polls:       map[string]int64{},
		Sends:       map[string]int64{},
		Transitions: map[string]int64{},
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return snap
	}
	for _, mf := range mfs {
		switch mf.GetName() {
		case "styleslot_sync_polls_total":
			sumByLabel(mf, "status", snap.Polls)
		case "styleslot_sync_sends_total":
			sumByLabel(mf, "status", snap.Sends)
		case "styleslot_appointment_transitions_total":
			sumByLabel(mf, "outcome", snap.Transitions)
		case "styleslot_sync_messages_merged_total":
			snap.MessagesMerged = counterValue(mf)
		case "styleslot_sync_messages_deduped_total":
			snap.MessagesDeduped = counterValue(mf)
		}
	}
	return snap
}

func sumByLabel(mf *dto.MetricFamily, label string, out map[string]int64) {
	for _, metric := range mf.Metric {
		if metric == nil || metric.Counter == nil {
			continue
		}
		for _, lp := range metric.Label {
			if lp.GetName() == label {
				out[lp.GetValue()] += int64(metric.Counter.GetValue())
			}
		}
	}
}

func counterValue(mf *dto.MetricFamily) int64 {
	var total int64
	for _, metric := range mf.Metric {
		if metric == nil || metric.Counter == nil {
			continue
		}
		total += int64(metric.Counter.GetValue())
	}
	return total
}
