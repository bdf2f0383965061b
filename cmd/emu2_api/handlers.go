package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/command"
	"github.com/NotCoffee418/rainforest_emu2/pkg/emu2"
	"github.com/NotCoffee418/rainforest_emu2/pkg/interpreter"
	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type api struct {
	engine *emu2.Engine
	hub    *hub
}

func newAPI(engine *emu2.Engine) *api {
	return &api{engine: engine, hub: newHub()}
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("GET /latest", a.handleLatest)
	mux.HandleFunc("GET /latest/{tag}", a.handleLatestTag)
	mux.HandleFunc("GET /state", a.handleState)
	mux.HandleFunc("POST /command/{name}", a.handleCommand)
	mux.HandleFunc("GET /ws", a.handleWebSocket)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// broadcastRecord is registered as an observer on every tag.
func (a *api) broadcastRecord(rec records.Record) {
	env, err := interpreter.NewEnvelope(rec, time.Now())
	if err != nil {
		log.Error().Err(err).Str("tag", string(rec.Tag())).Msg("failed to wrap record")
		return
	}
	a.hub.broadcast(env.ToJsonBytes())
}

// issueNamed runs a parameterless command by name.
func (a *api) issueNamed(ctx context.Context, name string) error {
	build, ok := command.Parameterless[name]
	if !ok {
		return command.ErrInvalidArgument
	}
	return a.engine.IssueCommand(ctx, build())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *api) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Rainforest EMU-2 API",
		"status":  "running",
		"state":   string(a.engine.State()),
	})
}

func (a *api) handleLatest(w http.ResponseWriter, r *http.Request) {
	snapshot := a.engine.Store().Snapshot()
	if len(snapshot) == 0 {
		writeError(w, http.StatusNotFound, "No records available yet")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *api) handleLatestTag(w http.ResponseWriter, r *http.Request) {
	tag := records.Tag(r.PathValue("tag"))
	if !records.Known(tag) {
		writeError(w, http.StatusNotFound, "Unknown tag")
		return
	}
	rec, ok := a.engine.Latest(tag)
	if !ok {
		writeError(w, http.StatusNotFound, "No record available yet")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *api) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":      a.engine.State(),
		"connected":  a.engine.Connected(),
		"ws_clients": a.hub.count(),
	})
}

func (a *api) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := command.Parameterless[name]; !ok {
		writeError(w, http.StatusNotFound, "Unknown or unsupported command")
		return
	}

	err := a.issueNamed(r.Context(), name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"command": name, "status": "sent"})
	case errors.Is(err, emu2.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, command.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("command", name).Msg("command failed")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (a *api) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	client := a.hub.add(conn)

	// Send the current records immediately
	for _, rec := range a.engine.Store().Snapshot() {
		env, err := interpreter.NewEnvelope(rec, time.Now())
		if err != nil {
			continue
		}
		if err := client.write(websocket.TextMessage, env.ToJsonBytes()); err != nil {
			a.hub.remove(client)
			return
		}
	}

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			a.hub.remove(client)
			return
		}
	}
}
