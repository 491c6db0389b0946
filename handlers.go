package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sharad1666/GD-AI-App/domain"
	"github.com/sharad1666/GD-AI-App/evaluation"
	"github.com/sharad1666/GD-AI-App/hub"
	"github.com/sharad1666/GD-AI-App/report"
	"github.com/sharad1666/GD-AI-App/transcript"
	ws "github.com/sharad1666/GD-AI-App/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func wsHandler(handler domain.SessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "error", err)
			return
		}

		ws.NewConn(uuid.New().String(), conn, handler).Start()
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func statsHandler(registry *hub.Registry, directory *hub.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, _ := directory.Stats()
		writeJSON(w, map[string]int{"rooms": rooms, "clients": registry.Count()})
	}
}

func transcriptGetHandler(store transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.ByRoom(r.PathValue("roomId"))
		if err != nil {
			slog.Error("transcript read failed", "error", err)
			http.Error(w, "transcript unavailable", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []transcript.Entry{}
		}
		writeJSON(w, entries)
	}
}

func transcriptClearHandler(store transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.ClearRoom(r.PathValue("roomId")); err != nil {
			slog.Error("transcript clear failed", "error", err)
			http.Error(w, "transcript unavailable", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func evaluationHandler(w http.ResponseWriter, r *http.Request) {
	stats, ok := decodeStats(w, r)
	if !ok {
		return
	}
	writeJSON(w, evaluation.Evaluate(stats))
}

func evaluationPDFHandler(w http.ResponseWriter, r *http.Request) {
	stats, ok := decodeStats(w, r)
	if !ok {
		return
	}

	pdf, err := report.Generate(stats.UserID, evaluation.Evaluate(stats))
	if err != nil {
		slog.Error("pdf generation failed", "userId", stats.UserID, "error", err)
		http.Error(w, "report unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+reportFilename(stats.UserID))
	w.Write(pdf)
}

// reportFilename builds a header-safe attachment name from the caller
// supplied user id. Anything that could malform the header is replaced.
func reportFilename(userID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return '_'
	}, userID)
	if safe == "" {
		safe = "participant"
	}
	return "GD_Report_" + safe + ".pdf"
}

func decodeStats(w http.ResponseWriter, r *http.Request) (evaluation.ParticipantStats, bool) {
	var stats evaluation.ParticipantStats
	if err := json.NewDecoder(r.Body).Decode(&stats); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return evaluation.ParticipantStats{}, false
	}
	return stats, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
