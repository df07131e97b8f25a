package bridgeapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"sumobridge/cli/internal/launchlog"
)

const (
	maxRequestBody       = 1 << 20
	defaultLaunchTimeout = 30 * time.Second
)

type ScriptWriter interface {
	Write(projectName, content string) (string, error)
}

type Launcher interface {
	Launch(ctx context.Context, scriptPath string) error
}

type LaunchJournal interface {
	Record(e launchlog.Entry) (launchlog.Entry, error)
	List(limit int) ([]launchlog.Entry, error)
}

type Deps struct {
	Port          int
	Scripts       ScriptWriter
	Launcher      Launcher
	Journal       LaunchJournal
	Logger        *slog.Logger
	LaunchTimeout time.Duration
}

type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *WSHub
	log  *slog.Logger
}

func NewServer(deps Deps) *Server {
	lg := deps.Logger
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	if deps.LaunchTimeout <= 0 {
		deps.LaunchTimeout = defaultLaunchTimeout
	}
	s := &Server{deps: deps, mux: http.NewServeMux(), hub: NewWSHub(lg), log: lg}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.registerScriptRoutes()
	s.registerLaunchRoutes()
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	s.mux.HandleFunc("/", handleNotFound)
	return s
}

func (s *Server) Handler() http.Handler {
	return withRequestLog(s.log, withRecover(s.log, withCORS(s.mux)))
}

func (s *Server) Hub() *WSHub {
	return s.hub
}

type healthResponse struct {
	Status string `json:"status"`
	Port   int    `json:"port"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handleNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "running", Port: s.deps.Port})
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not found"})
}

type BridgeResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	LaunchID   string `json:"launchId,omitempty"`
	ScriptPath string `json:"scriptPath,omitempty"`
}

func respondBridge(w http.ResponseWriter, code int, resp BridgeResponse) {
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
