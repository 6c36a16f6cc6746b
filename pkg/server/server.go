// Package server exposes the program library and a WebSocket run service
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antibyte/linebasic/pkg/auth"
	"github.com/antibyte/linebasic/pkg/basic"
	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/logger"
	"github.com/antibyte/linebasic/pkg/store"
)

// Library is the part of the program store the server uses.
type Library interface {
	auth.Authenticator
	SaveProgram(ctx context.Context, name, source string) (string, error)
	ListPrograms(ctx context.Context) ([]store.Program, error)
	LoadProgram(ctx context.Context, idOrName string) (*basic.Program, error)
}

// Server serves /api/login, /api/programs and the /ws run service.
type Server struct {
	library  Library
	upgrader websocket.Upgrader
}

func getWriteWait() time.Duration {
	return configuration.GetDuration("Server", "write_wait_timeout", 10*time.Second)
}

func getPongWait() time.Duration {
	return configuration.GetDuration("Server", "pong_timeout", 60*time.Second)
}

func getPingPeriod() time.Duration {
	return (getPongWait() * 9) / 10
}

func getMaxMessageSize() int64 {
	return int64(configuration.GetInt("Server", "max_message_size_kb", 64) * 1024)
}

func getMaxSteps() int {
	return configuration.GetInt("Server", "max_steps", 100000)
}

func getMaxRunTime() time.Duration {
	return configuration.GetDuration("Server", "max_run_time", 30*time.Second)
}

// New creates a server backed by library.
func New(library Library) *Server {
	return &Server{
		library: library,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// checkOrigin accepts any origin unless [Server] allowed_origins lists some.
func checkOrigin(r *http.Request) bool {
	allowed := strings.TrimSpace(configuration.GetString("Server", "allowed_origins", ""))
	if allowed == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, candidate := range strings.Split(allowed, ",") {
		if origin == strings.TrimSpace(candidate) {
			return true
		}
	}
	logger.ServerWarn("WebSocket request from disallowed origin rejected: %q", origin)
	return false
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", auth.HandleLogin(s.library))
	mux.HandleFunc("/api/programs", auth.RequireToken(s.handlePrograms))
	mux.HandleFunc("/ws", auth.RequireToken(s.HandleWebSocket))
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled. With [TLS]
// enable_tls set it serves HTTPS, from Let's Encrypt or from cert_file and
// key_file.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	setup, err := newTLSSetup(LoadTLSSettings())
	if err != nil {
		return fmt.Errorf("TLS configuration: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         setup.config,
	}
	servers := []*http.Server{srv}

	errCh := make(chan error, 2)
	go func() {
		if !setup.settings.Enabled {
			logger.ServerInfo("Listening on %s", addr)
			errCh <- srv.ListenAndServe()
			return
		}
		logger.ServerInfo("Listening on %s (TLS)", addr)
		if setup.config != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServeTLS(setup.settings.CertFile, setup.settings.KeyFile)
	}()

	if setup.settings.Enabled {
		if handler := setup.redirectHandler(addr); handler != nil {
			plain := &http.Server{
				Addr:              setup.settings.RedirectAddr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			servers = append(servers, plain)
			go func() {
				logger.ServerInfo("Plain HTTP listener on %s", plain.Addr)
				errCh <- plain.ListenAndServe()
			}()
		}
	}

	select {
	case err := <-errCh:
		for _, other := range servers {
			other.Close()
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.ServerInfo("Shutting down")
		for _, server := range servers {
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
		}
		for range servers {
			if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	}
}

type saveRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type programInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"createdAt"`
}

type apiError struct {
	Error string `json:"error"`
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		programs, err := s.library.ListPrograms(r.Context())
		if err != nil {
			logger.ServerError("List programs: %v", err)
			writeJSON(w, http.StatusInternalServerError, apiError{Error: "failed to list programs"})
			return
		}
		infos := make([]programInfo, 0, len(programs))
		for _, p := range programs {
			infos = append(infos, programInfo{ID: p.ID, Name: p.Name, Digest: p.Digest, CreatedAt: p.CreatedAt})
		}
		writeJSON(w, http.StatusOK, infos)

	case http.MethodPost:
		var req saveRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, getMaxMessageSize())).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request format"})
			return
		}
		id, err := s.library.SaveProgram(r.Context(), req.Name, req.Source)
		switch {
		case errors.Is(err, store.ErrProgramExists):
			writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
		case isBASICError(err):
			writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: err.Error()})
		case err != nil:
			writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		default:
			claims, _ := auth.ClaimsFromContext(r.Context())
			if claims != nil {
				logger.ServerInfo("User %s saved program %s", claims.Username, req.Name)
			}
			writeJSON(w, http.StatusCreated, map[string]string{"id": id})
		}

	default:
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
	}
}

func isBASICError(err error) bool {
	var be *basic.BASICError
	return errors.As(err, &be)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
