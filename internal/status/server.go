package status

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"trainops-supervisor/internal/logging"
	"trainops-supervisor/internal/supervise"
)

// Server exposes run health and counters for platform probes and for
// operators poking at a live container.
type Server struct {
	Sup *supervise.Supervisor
	tpl *template.Template
}

//go:embed templates/index.html
var content embed.FS

// NewServer creates a status server over sup.
func NewServer(sup *supervise.Supervisor) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Sup: sup, tpl: tpl}
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.routes(mux)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		logging.FromContext(ctx).Info("status server stopping", "component", "status")
		srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		RunID string
		State supervise.State
		PID   int
	}{
		RunID: s.Sup.Session().RunID,
		State: s.Sup.State(),
		PID:   s.Sup.PID(),
	}
	s.tpl.Execute(w, data)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "state": s.Sup.State()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"run_id": s.Sup.Session().RunID,
		"state":  s.Sup.State(),
		"pid":    s.Sup.PID(),
		"stats":  s.Sup.Stats(),
	}
	if outcome, done := s.Sup.Outcome(); done {
		resp["outcome"] = map[string]any{
			"kind":      outcome.Kind,
			"exit_code": outcome.ExitCode(),
			"detail":    outcome.String(),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
