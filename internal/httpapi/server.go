// Package httpapi wires the five HTTP endpoints spec.md §6 describes onto
// a plain net/http.ServeMux, the same routing style orchestrator/main.go
// uses. Request/response framing lives here; validation and business
// logic stay in internal/admission and internal/dispatcher.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/railyard/factotum/internal/admission"
	"github.com/railyard/factotum/internal/dispatcher"
)

// Server bundles the dependencies the HTTP handlers need.
type Server struct {
	pipeline   *admission.Pipeline
	dispatcher *dispatcher.Dispatcher
	state      *admission.ServerState
	startTime  time.Time
	version    string
}

// New builds a Server and returns its http.Handler.
func New(pipeline *admission.Pipeline, disp *dispatcher.Dispatcher, state *admission.ServerState, version string) http.Handler {
	s := &Server{
		pipeline:   pipeline,
		dispatcher: disp,
		state:      state,
		startTime:  time.Now(),
		version:    version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHelp)
	mux.HandleFunc("/help", s.handleHelp)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/submit", s.handleSubmit)
	mux.HandleFunc("/check", s.handleCheck)
	return mux
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if r.URL.Query().Get("pretty") == "1" {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{
		"/":        "this help text",
		"/status":  "GET server and dispatcher status",
		"/settings": "POST {state: \"run\"|\"drain\"}",
		"/submit":  "POST {jobName, factfilePath, factfileArgs}",
		"/check":   "POST placeholder",
	})
}

type statusResponse struct {
	Version string `json:"version"`
	Server  struct {
		StartTime string `json:"startTime"`
		UpTime    string `json:"upTime"`
		State     string `json:"state"`
	} `json:"server"`
	Dispatcher struct {
		Workers struct {
			Total  int `json:"total"`
			Idle   int `json:"idle"`
			Active int `json:"active"`
		} `json:"workers"`
		Jobs struct {
			MaxQueueSize int `json:"maxQueueSize"`
			InQueue      int `json:"inQueue"`
			FailCount    int `json:"failCount"`
			SuccessCount int `json:"successCount"`
		} `json:"jobs"`
	} `json:"dispatcher"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	status := s.dispatcher.StatusSnapshot()

	var resp statusResponse
	resp.Version = s.version
	resp.Server.StartTime = s.startTime.UTC().Format("2006-01-02T15:04:05.000Z")
	resp.Server.UpTime = time.Since(s.startTime).String()
	resp.Server.State = s.state.String()
	resp.Dispatcher.Workers.Total = status.WorkersTotal
	resp.Dispatcher.Workers.Idle = status.WorkersIdle
	resp.Dispatcher.Workers.Active = status.WorkersActive
	resp.Dispatcher.Jobs.MaxQueueSize = status.MaxQueueSize
	resp.Dispatcher.Jobs.InQueue = status.QueueLength
	resp.Dispatcher.Jobs.FailCount = status.FailCount
	resp.Dispatcher.Jobs.SuccessCount = status.SuccessCount

	writeJSON(w, r, http.StatusOK, resp)
}

type settingsRequest struct {
	State string `json:"state"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.state.Set(req.State); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"state": s.state.String()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var sub admission.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	jobID, err := s.pipeline.Submit(r.Context(), sub)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "job accepted", "jobId": jobID})
}

// handleCheck is a placeholder per spec.md §6: it always replies 200.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
