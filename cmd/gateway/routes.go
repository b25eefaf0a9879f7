package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hubenschmidt/voice-gateway/internal/session"
	"github.com/hubenschmidt/voice-gateway/internal/trace"
)

type deps struct {
	registry   *session.Registry
	traceStore *trace.Store
	wsHandler  http.Handler
	version    string
}

// registerRoutes wires the device WebSocket endpoint, health/session
// introspection, and the trace-replay surface to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/voice", d.wsHandler)
	mux.HandleFunc("GET /api/health", d.handleHealth)
	mux.HandleFunc("GET /api/sessions", d.handleSessions)
	mux.HandleFunc("GET /api/sessions/{id}/history", d.handleSessionHistory)
	registerTraceRoutes(mux, d.traceStore)
}

func (d deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":          "ok",
		"version":         d.version,
		"active_sessions": d.registry.Count(),
	})
}

func (d deps) handleSessions(w http.ResponseWriter, r *http.Request) {
	entries := d.registry.All()
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		s := e.Session
		out = append(out, map[string]any{
			"session_id":     s.ID,
			"device_id":      s.DeviceID,
			"client_id":      s.ClientID,
			"is_speaking":    s.Speaking,
			"history_length": len(s.History()),
		})
	}
	writeJSON(w, map[string]any{"sessions": out})
}

func (d deps) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry, ok := d.registry.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"error": "session not found"})
		return
	}
	writeJSON(w, map[string]any{"session_id": id, "history": entry.Session.History()})
}

func registerTraceRoutes(mux *http.ServeMux, store *trace.Store) {
	mux.HandleFunc("GET /api/traces/sessions", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		limit := queryInt(r, "limit", defaultTraceSessionLimit)
		offset := queryInt(r, "offset", 0)
		sessions, total, err := store.ListSessions(limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"sessions": sessions, "total": total})
	})

	mux.HandleFunc("GET /api/traces/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		sess, runs, err := store.GetSession(r.PathValue("id"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"session": sess, "runs": runs})
	})

	mux.HandleFunc("GET /api/traces/sessions/{id}/runs/{runId}", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		run, spans, err := store.GetRun(r.PathValue("id"), r.PathValue("runId"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"run": run, "spans": spans})
	})
}

// defaultTraceSessionLimit is how many trace sessions are returned when
// the caller omits the ?limit= query parameter.
const defaultTraceSessionLimit = 20

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
