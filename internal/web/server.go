package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/visiona/armdeck/internal/config"
	"github.com/visiona/armdeck/internal/pose"
	"github.com/visiona/armdeck/internal/posebus"
)

// Server is the HTTP side of the control surface: the websocket endpoint,
// pose persistence endpoints, and a health endpoint.
type Server struct {
	cfg    *config.Config
	hub    *Hub
	store  *pose.Store
	status func() map[string]interface{}

	httpSrv *http.Server
}

// NewServer creates the control-surface server.
func NewServer(cfg *config.Config, hub *Hub, store *pose.Store, status func() map[string]interface{}) *Server {
	s := &Server{cfg: cfg, hub: hub, store: store, status: status}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("GET /api/pose", s.handleGetPose)
	mux.HandleFunc("POST /api/pose", s.handleRestorePose)
	mux.HandleFunc("GET /api/configs", s.handleListConfigs)
	mux.HandleFunc("POST /api/configs", s.handleSaveConfig)
	mux.HandleFunc("GET /api/configs/{name}", s.handleLoadConfig)
	mux.HandleFunc("DELETE /api/configs/{name}", s.handleDeleteConfig)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: mux,
	}
	return s
}

// Handler exposes the route table, used by tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Start begins serving. Non-blocking; errors other than a clean close are
// logged.
func (s *Server) Start(ctx context.Context) {
	go s.hub.Run(ctx)
	go func() {
		slog.Info("control surface listening", "addr", s.cfg.HTTP.ListenAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("control surface server failed", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// PumpUpdates forwards bus updates to connected clients until ctx is
// cancelled or ch closes.
func (s *Server) PumpUpdates(ctx context.Context, ch <-chan posebus.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			var e event
			switch update.Kind {
			case posebus.KindAngle:
				e = event{Type: "joint", Joint: update.Joint, Angle: update.Angle}
			case posebus.KindHover:
				e = event{Type: "hover", Joint: update.Joint, Hovered: update.Hovered}
			default:
				continue
			}
			if msg, err := encodeEvent(e); err == nil {
				s.hub.Broadcast(msg)
			}
		}
	}
}

func (s *Server) handleGetPose(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.callbacks.Snapshot())
}

type restoreRequest struct {
	Pose       map[string]float64 `json:"pose"`
	Animate    bool               `json:"animate"`
	DurationMs int                `json:"duration_ms"`
}

func (s *Server) handleRestorePose(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid restore request: %w", err))
		return
	}
	if s.hub.callbacks.OnRestore != nil {
		s.hub.callbacks.OnRestore(pose.Pose(req.Pose), req.Animate, time.Duration(req.DurationMs)*time.Millisecond)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	names := s.store.ListNames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"names": names})
}

type saveConfigRequest struct {
	Name string             `json:"name"`
	Pose map[string]float64 `json:"pose,omitempty"` // defaults to the current pose
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid save request: %w", err))
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing 'name'"))
		return
	}

	p := pose.Pose(req.Pose)
	if len(p) == 0 {
		p = s.hub.callbacks.Snapshot()
	}
	if err := s.store.SaveNamed(req.Name, p); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadConfig(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, err := s.store.LoadNamed(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no saved configuration %q", name))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteNamed(r.PathValue("name")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	text, err := s.store.ExportText(s.hub.callbacks.Snapshot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, text)
}

// handleImport parses a shared pose and applies it without animation. A
// malformed payload is rejected and the current pose stays untouched.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := s.store.ImportText(string(body))
	if err != nil {
		if errors.Is(err, pose.ErrMalformedPayload) {
			writeError(w, http.StatusBadRequest, err)
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	if s.hub.callbacks.OnRestore != nil {
		s.hub.callbacks.OnRestore(p, false, 0)
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
