// Package server hosts a page whose favicon follows the badge, plus a small
// JSON API for triggering and cancelling notifications.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vincent-petithory/dataurl"

	"github.com/jmylchreest/favbadge/internal/badge"
	"github.com/jmylchreest/favbadge/internal/blink"
	"github.com/jmylchreest/favbadge/internal/sink"
)

const shutdownTimeout = 5 * time.Second

// Notifier is the notification surface driven by the server.
type Notifier interface {
	Notify()
	Cancel()
	Notifying() bool
	State() blink.State
	Options() badge.Options
}

// Status is the JSON body returned by the API.
type Status struct {
	Notifying bool   `json:"notifying"`
	State     string `json:"state"`
	Clients   int    `json:"clients"`
	IconSize  string `json:"icon_size,omitempty"`
	Position  string `json:"position"`
	Color     string `json:"color"`
	Blink     bool   `json:"blink"`
	Speed     string `json:"speed"`
	Format    string `json:"format"`
}

// Server serves the favicon page, the websocket hub and the API.
type Server struct {
	notifier Notifier
	hub      *sink.Hub
	logger   *slog.Logger
	title    string
}

// New creates a Server. Browser tabs that report becoming visible cancel the
// notification.
func New(n Notifier, hub *sink.Hub, title string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if title == "" {
		title = "favbadge"
	}

	s := &Server{
		notifier: n,
		hub:      hub,
		logger:   logger,
		title:    title,
	}
	hub.SetMessageHandler(s.handleClientMessage)
	return s
}

func (s *Server) handleClientMessage(clientID string, msg sink.Message) {
	switch msg.Type {
	case sink.MessageCancel:
		s.logger.Debug("client cancelled notification", "client", clientID)
		s.notifier.Cancel()
	case sink.MessageNotify:
		s.logger.Debug("client requested notification", "client", clientID)
		s.notifier.Notify()
	default:
		s.logger.Debug("ignoring client message", "client", clientID, "type", msg.Type)
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /ws", s.hub)
	mux.HandleFunc("GET /favicon", s.handleFavicon)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /notify", s.handleNotify)
	mux.HandleFunc("POST /cancel", s.handleCancel)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and disconnects websocket clients.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) status() Status {
	opts := s.notifier.Options()
	st := Status{
		Notifying: s.notifier.Notifying(),
		State:     s.notifier.State().String(),
		Clients:   s.hub.ClientCount(),
		Position:  string(opts.Position),
		Color:     opts.Color,
		Blink:     opts.Blink,
		Speed:     opts.Speed.String(),
		Format:    string(opts.Format),
	}
	if icon := s.hub.Current(); icon != "" {
		st.IconSize = humanize.Bytes(uint64(len(icon)))
	}
	return st
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	s.notifier.Notify()
	s.writeJSON(w, http.StatusAccepted, s.status())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.notifier.Cancel()
	s.writeJSON(w, http.StatusOK, s.status())
}

// handleFavicon serves the icon currently shown, badged or plain.
func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	icon := s.hub.Current()
	if !strings.HasPrefix(icon, "data:") {
		http.Error(w, "no inline icon available", http.StatusNotFound)
		return
	}

	du, err := dataurl.DecodeString(icon)
	if err != nil {
		s.logger.Warn("current icon is not a valid data URI", "error", err)
		http.Error(w, "invalid icon", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", du.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(du.Data)
}
