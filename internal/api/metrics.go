package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lumenplay/StoryEngine/internal/events"
	"github.com/lumenplay/StoryEngine/internal/version"
)

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu        sync.RWMutex
	startTime time.Time
	showName  string
}

var metricsState = &MetricsState{}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics(showName string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
	metricsState.showName = showName
}

// metricsHandler serves Prometheus-style plain text metrics.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	metricsState.mu.RLock()
	start := metricsState.startTime
	showName := metricsState.showName
	metricsState.mu.RUnlock()

	uptime := 0.0
	if !start.IsZero() {
		uptime = time.Since(start).Seconds()
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP storyengine_info Build information.\n")
	fmt.Fprintf(w, "# TYPE storyengine_info gauge\n")
	fmt.Fprintf(w, "storyengine_info{version=%q,show=%q} 1\n", version.Version, showName)

	fmt.Fprintf(w, "# HELP storyengine_uptime_seconds Seconds since startup.\n")
	fmt.Fprintf(w, "# TYPE storyengine_uptime_seconds gauge\n")
	fmt.Fprintf(w, "storyengine_uptime_seconds %f\n", uptime)

	fmt.Fprintf(w, "# HELP storyengine_event_subscribers Live event stream subscribers.\n")
	fmt.Fprintf(w, "# TYPE storyengine_event_subscribers gauge\n")
	fmt.Fprintf(w, "storyengine_event_subscribers %d\n", events.SubscriberCount())

	if statusProvider != nil {
		st := statusProvider.Status()
		fmt.Fprintf(w, "# HELP storyengine_flow_index Current question index.\n")
		fmt.Fprintf(w, "# TYPE storyengine_flow_index gauge\n")
		fmt.Fprintf(w, "storyengine_flow_index %d\n", st.Index)

		fmt.Fprintf(w, "# HELP storyengine_flow_awaiting_choice Whether the flow awaits a choice.\n")
		fmt.Fprintf(w, "# TYPE storyengine_flow_awaiting_choice gauge\n")
		fmt.Fprintf(w, "storyengine_flow_awaiting_choice %d\n", boolMetric(st.Awaiting))

		fmt.Fprintf(w, "# HELP storyengine_flow_complete Whether the sequence completed.\n")
		fmt.Fprintf(w, "# TYPE storyengine_flow_complete gauge\n")
		fmt.Fprintf(w, "storyengine_flow_complete %d\n", boolMetric(st.Complete))
	}
}

func boolMetric(b bool) int {
	if b {
		return 1
	}
	return 0
}
