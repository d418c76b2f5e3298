package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/lumenplay/StoryEngine/internal/events"
	"github.com/lumenplay/StoryEngine/internal/show"
)

// FlowStatus is the operator-visible state of the flow machine.
type FlowStatus struct {
	Started  bool   `json:"started"`
	Index    int    `json:"index"`
	Phase    string `json:"phase"`
	Awaiting bool   `json:"awaiting_choice"`
	Complete bool   `json:"complete"`
}

// StatusProvider reports the flow machine's current state.
type StatusProvider interface {
	Status() FlowStatus
}

// Controller lets the operator start and stop the show flow.
type Controller interface {
	StartFlow() error
	StopFlow() error
}

// ChoiceInjector delivers an operator choice into the playback loop, the
// same path a physical choice panel uses.
type ChoiceInjector interface {
	InjectChoice(c show.Choice)
}

var (
	statusProvider StatusProvider
	controller     Controller
	choiceInjector ChoiceInjector
)

// SetStatusProvider sets the provider backing /status.
func SetStatusProvider(p StatusProvider) {
	statusProvider = p
}

// SetController sets the start/stop controller.
func SetController(c Controller) {
	controller = c
}

// SetChoiceInjector sets the injector backing /operator/choice.
func SetChoiceInjector(i ChoiceInjector) {
	choiceInjector = i
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "storyengine",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events.Snapshot())
}

// eventsHistoryHandler serves persisted events when Postgres is configured.
func eventsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	client := events.GetPostgresClient()
	if client == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "event persistence not configured"})
		return
	}

	rows, err := client.Recent(200)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

func statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if statusProvider == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "flow not attached"})
		return
	}
	_ = json.NewEncoder(w).Encode(statusProvider.Status())
}

type ChoiceRequest struct {
	Choice string `json:"choice"`
}

type OperatorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// operatorChoiceHandler injects a success/failure decision, for installations
// where the operator drives choices from the booth instead of a panel.
func operatorChoiceHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "method not allowed"})
		return
	}

	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "invalid JSON"})
		return
	}

	c := show.Choice(req.Choice)
	if c != show.ChoiceSuccess && c != show.ChoiceFailure {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "choice must be success or failure"})
		return
	}

	if choiceInjector == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "flow not attached"})
		return
	}

	events.Emit("info", "operator.choice", "", map[string]interface{}{
		"choice": req.Choice,
	})
	choiceInjector.InjectChoice(c)

	_ = json.NewEncoder(w).Encode(OperatorResponse{OK: true})
}

func operatorStartHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "method not allowed"})
		return
	}
	if controller == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "flow not attached"})
		return
	}

	events.Emit("info", "operator.start", "", nil)
	if err := controller.StartFlow(); err != nil {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: err.Error()})
		return
	}

	_ = json.NewEncoder(w).Encode(OperatorResponse{OK: true})
}

func operatorStopHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "method not allowed"})
		return
	}
	if controller == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "flow not attached"})
		return
	}

	events.Emit("info", "operator.stop", "", nil)
	if err := controller.StopFlow(); err != nil {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: err.Error()})
		return
	}

	_ = json.NewEncoder(w).Encode(OperatorResponse{OK: true})
}

// Handler returns the API routing table.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", eventsHandler)
	mux.HandleFunc("/events/history", eventsHistoryHandler)
	mux.HandleFunc("/status", statusHandler)
	mux.HandleFunc("/ws/events", wsEventsHandler)
	mux.HandleFunc("/operator/choice", RequireOperator(operatorChoiceHandler))
	mux.HandleFunc("/operator/start", RequireOperator(operatorStartHandler))
	mux.HandleFunc("/operator/stop", RequireOperator(operatorStopHandler))
	return mux
}

// ListenAndServe starts the API server on the given port.
// It blocks until the server exits.
func ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("API listening on %s\n", addr)
	return http.ListenAndServe(addr, Handler())
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func Start(port int) {
	go func() {
		if err := ListenAndServe(port); err != nil {
			log.Printf("api server error: %v", err)
		}
	}()
}
