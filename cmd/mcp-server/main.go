// cmd/mcp-server/main.go — Standalone HTTP MCP server for symcalc
//
// Exposes symcalc tools as an HTTP endpoint for AI agent frameworks. Each
// caller gets a session holding its definitions and settings; pass the
// session id returned by the first call to reuse it.
//
// Usage:
//
//	go run ./cmd/mcp-server -port 8080 -config symcalc.yaml
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
// Metrics endpoint:   GET  /metrics
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/njchilds90/symcalc"
	"github.com/njchilds90/symcalc/config"
	"github.com/njchilds90/symcalc/parse"
)

const (
	maxBodyBytes = 1 << 20 // 1 MiB
	maxSessions  = 1024
	sessionTTL   = 30 * time.Minute
)

type toolCall struct {
	Session string `json:"session,omitempty"`
	symcalc.ToolRequest
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *symcalc.Session
	lastUsed time.Time
}

// sessionStore hands out sessions by id. A session serves one call at a
// time.
type sessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	opts    []symcalc.Option
	logger  *slog.Logger
}

func (st *sessionStore) get(id string) *sessionEntry {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now()
	if e, ok := st.entries[id]; ok {
		e.lastUsed = now
		return e
	}
	for k, e := range st.entries {
		if now.Sub(e.lastUsed) > sessionTTL || len(st.entries) >= maxSessions {
			delete(st.entries, k)
		}
	}
	opts := append(slices.Clip(st.opts), symcalc.WithLogger(st.logger), symcalc.WithParser(parse.Parse))
	e := &sessionEntry{session: symcalc.NewSession(opts...), lastUsed: now}
	st.entries[e.session.ID.String()] = e
	st.logger.Debug("session created", "session", e.session.ID.String())
	return e
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// recoverer logs panics with their stack and answers 500.
func recoverer(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic in handler", "request", reqID, "path", r.URL.Path,
					"panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request served", "request", reqID, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	cfgPath := flag.String("config", "", "YAML or TOML settings file")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	opts, err := cfg.SessionOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store := &sessionStore{entries: make(map[string]*sessionEntry), opts: opts, logger: logger}
	mux := http.NewServeMux()

	// POST /tool — handle a tool call
	mux.HandleFunc("/tool", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var call toolCall
		if err := dec.Decode(&call); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		// Ensure there's no trailing junk.
		if dec.More() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: trailing data"})
			return
		}

		e := store.get(call.Session)
		e.mu.Lock()
		resp := e.session.HandleToolCall(call.ToolRequest)
		e.mu.Unlock()
		if resp.Error != "" {
			logger.Info("tool call failed", "tool", call.Tool, "session", resp.Session,
				"request", w.Header().Get("X-Request-ID"), "error", resp.Error)
		}
		writeJSON(w, http.StatusOK, resp)
	})

	// GET /schema — return tool schema for agent registration
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, symcalc.MCPToolSpec())
	})

	// GET /health — liveness check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("symcalc MCP server listening", "addr", addr,
		"complex_format", cfg.ComplexFormat, "angle_unit", cfg.AngleUnit, "arena_size", cfg.ArenaSize)

	srv := &http.Server{
		Addr:              addr,
		Handler:           recoverer(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
