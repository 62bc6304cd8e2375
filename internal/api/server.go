// Package api exposes the keyboard over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"vkeyboard/internal/config"
	"vkeyboard/internal/dispatch"
	"vkeyboard/internal/input"
	"vkeyboard/internal/keys"
	"vkeyboard/internal/protocol"
)

type ctxKey int

const requestIDKey ctxKey = iota

// Server provides the HTTP API
type Server struct {
	cfg     *config.Config
	handler dispatch.Handler
	token   string
	wsMgr   *WSManager

	// TargetAlive reports whether the target process exists. Used by the
	// status endpoint only; delivery itself is never confirmed.
	TargetAlive func(pid int) bool

	once       sync.Once
	mux        http.Handler
	mu         sync.Mutex
	httpServer *http.Server
	closed     bool
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, handler dispatch.Handler) *Server {
	s := &Server{
		cfg:     cfg,
		handler: handler,
		token:   cfg.Server.APIToken,
	}
	s.wsMgr = newWSManager(s)
	return s
}

// Handler returns the HTTP handler with all middleware applied. The
// WebSocket hub is started on first use.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		go s.wsMgr.start()

		mux := http.NewServeMux()
		mux.HandleFunc("PUT /press/{key}", s.handlePressPath)
		mux.HandleFunc("POST /api/press", s.handlePress)
		mux.HandleFunc("GET /api/status", s.handleStatus)
		mux.HandleFunc("GET /api/keys", s.handleKeys)
		mux.HandleFunc("GET /ws", s.wsMgr.handleWebSocket)
		mux.HandleFunc("GET /health", s.handleHealth)

		s.mux = s.requestIDMiddleware(s.authMiddleware(s.recoverMiddleware(mux)))
	})
	return s.mux
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	addr := s.cfg.Server.Listen
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("ERROR: API server failed to listen on %s: %v", addr, err)
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout(),
	}
	s.httpServer = srv
	s.mu.Unlock()

	log.Printf("API: Listening on %s (target pid %d, delay %v)", ln.Addr(), s.cfg.PID, s.cfg.Delay())

	// This is blocking
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("ERROR: API server stopped: %v", err)
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and the WebSocket hub
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsMgr.stop()

	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// requestIDMiddleware tags every request with a unique id
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		log.Printf("API: [%s] %s %s from %s", id, r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOV: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks the API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for health check
		if r.URL.Path == "/health" || s.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		expected := "Bearer " + s.token
		// Browsers cannot set headers on WebSocket upgrades
		if r.Header.Get("Authorization") != expected && r.URL.Query().Get("token") != s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"status": "error",
				"error":  "unauthorized",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handlePressPath handles PUT /press/{key}?modifier=<name>&action=<up|down|cycle>
func (s *Server) handlePressPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.respond(w, r, dispatch.Request{
		Key:      r.PathValue("key"),
		Modifier: q.Get("modifier"),
		Action:   q.Get("action"),
	})
}

// handlePress handles POST /api/press with a JSON body
func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error",
			"error":  "invalid request body: " + err.Error(),
		})
		return
	}
	s.respond(w, r, req)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, req dispatch.Request) {
	res := s.process(req, "http")
	if !res.OK() {
		id, _ := r.Context().Value(requestIDKey).(string)
		log.Printf("API: [%s] Rejected key %q: %s: %v", id, req.Key, res.Category, res.Err)
		writeJSON(w, statusFor(res.Category), resultBody(res))
		return
	}
	writeJSON(w, http.StatusOK, resultBody(res))
}

// process runs a request through the handler and announces successful
// presses to WebSocket clients
func (s *Server) process(req dispatch.Request, origin string) dispatch.Result {
	res := s.handler.Handle(req)
	if res.OK() {
		s.wsMgr.BroadcastKeyEvent(res.Event, origin)
	}
	return res
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type allowedKey struct {
		Key       string   `json:"key"`
		Code      uint16   `json:"code"`
		Modifiers []string `json:"modifiers"` // null: any modifier
	}

	p := s.cfg.Policy()
	codes := p.Keys()
	allowed := make([]allowedKey, 0, len(codes))
	for _, code := range codes {
		k := allowedKey{Key: keys.KeyName(code), Code: uint16(code)}
		if mods, restricted := p.AllowedModifiers(code); restricted {
			k.Modifiers = make([]string, 0, len(mods))
			for _, m := range mods {
				k.Modifiers = append(k.Modifiers, m.String())
			}
		}
		allowed = append(allowed, k)
	}

	status := map[string]any{
		"pid":      s.cfg.PID,
		"delay_ms": s.cfg.Delay().Milliseconds(),
		"keys":     allowed,
		"clients":  s.wsMgr.ClientCount(),
	}
	if s.TargetAlive != nil {
		status["target_alive"] = s.TargetAlive(s.cfg.PID)
	}
	writeJSON(w, http.StatusOK, status)
}

// handleKeys handles GET /api/keys, listing every key name the server knows
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"keys":      keys.Names(),
		"modifiers": keys.ModifierNames(),
		"actions":   []string{input.Up.String(), input.Down.String(), input.Cycle.String()},
	})
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps a rejection category to an HTTP status code
func statusFor(c dispatch.Category) int {
	switch c {
	case dispatch.OK:
		return http.StatusOK
	case dispatch.MissingField, dispatch.InvalidKey, dispatch.InvalidModifier, dispatch.InvalidAction:
		return http.StatusBadRequest
	case dispatch.KeyNotAllowed, dispatch.ModifierNotAllowed:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func resultBody(res dispatch.Result) protocol.ResultPayload {
	if res.OK() {
		return protocol.ResultPayload{Status: "ok"}
	}
	return protocol.ResultPayload{
		Status:   "error",
		Category: string(res.Category),
		Error:    res.Error(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
	}
}
