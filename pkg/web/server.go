// Package web exposes the coordinator's HTTP surface: the WebSocket
// endpoint devices and dashboards connect through, read-only listing
// APIs over the artifact roots, and static file serving for the
// dashboard and recorded artifacts.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/guardpost/guardpost/pkg/hub"
	"github.com/guardpost/guardpost/pkg/index"
	"github.com/guardpost/guardpost/pkg/storage"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// Hub receives upgraded WebSocket connections. Required.
	Hub *hub.Hub

	// Audio and Data are the artifact roots. Required.
	Audio *storage.Local
	Data  *storage.Local

	// Index serves /api/sessions. Optional; without it the endpoint
	// returns an empty list.
	Index *index.Index

	// StaticDir serves the dashboard at /. Optional.
	StaticDir string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the coordinator's HTTP front end.
type Server struct {
	opts     Options
	srv      *http.Server
	upgrader websocket.Upgrader
}

// NewServer builds the route table. Call ListenAndServe to run it.
func NewServer(opts Options) (*Server, error) {
	if opts.Hub == nil {
		return nil, fmt.Errorf("web: Options.Hub is required")
	}
	if opts.Audio == nil || opts.Data == nil {
		return nil, fmt.Errorf("web: Options.Audio and Options.Data are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Devices and dashboards connect from anywhere.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/audio-files", s.listHandler(opts.Audio, ".wav"))
	mux.HandleFunc("/api/csv-files", s.listHandler(opts.Data, ".csv"))
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.Handle("/audio/", http.StripPrefix("/audio/", http.FileServer(http.Dir(opts.Audio.Root()))))
	mux.Handle("/data/", http.StripPrefix("/data/", http.FileServer(http.Dir(opts.Data.Root()))))
	if opts.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(opts.StaticDir)))
	}

	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the route table (exposed for tests).
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.opts.Logger.Info("web: listening", "addr", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleWS upgrades the connection and hands it to the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.opts.Logger.Warn("web: websocket upgrade failed", "error", err)
		return
	}
	s.opts.Hub.Accept(hub.NewWSConn(ws))
}

// listHandler enumerates artifact files with the given extension.
func (s *Server) listHandler(store storage.FileStore, ext string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := store.List(r.Context(), "")
		if err != nil {
			s.opts.Logger.Error("web: list artifacts", "ext", ext, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unable to read artifact folder"})
			return
		}
		matched := make([]string, 0, len(names))
		for _, name := range names {
			if strings.HasSuffix(name, ext) {
				matched = append(matched, name)
			}
		}
		writeJSON(w, http.StatusOK, matched)
	}
}

// handleSessions serves indexed session records.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.opts.Index == nil {
		writeJSON(w, http.StatusOK, []*index.Record{})
		return
	}
	recs, err := s.opts.Index.List(r.Context())
	if err != nil {
		s.opts.Logger.Error("web: list sessions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unable to read session index"})
		return
	}
	if recs == nil {
		recs = []*index.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
