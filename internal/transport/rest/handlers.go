package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

const (
	qrSize         = 320
	defaultHistory = 20
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (that *Handlers) Ping(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Handlers) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	that.writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(that.startedAt).Round(time.Second).String(),
	})
}

func (that *Handlers) GetGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	game, err := that.games.GetGame(r.Context(), ps.ByName("id"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Handlers) Lobby(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	users, err := that.lobby.ActiveUsers(r.Context(), r.URL.Query().Get("exclude"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, users)
}

func (that *Handlers) GetStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	stats, err := that.stats.GetStats(r.Context(), ps.ByName("identity"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, stats)
}

func (that *Handlers) ResetStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := that.stats.ResetStats(r.Context(), ps.ByName("identity")); err != nil {
		that.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *Handlers) History(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit := defaultHistory
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	matches, err := that.stats.History(r.Context(), ps.ByName("identity"), limit)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, matches)
}

// SpectateQR renders a PNG QR code pointing at the spectate link of a game.
func (that *Handlers) SpectateQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("id")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr") + "?spectate=true"

	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		that.logger.Error("qr generation failed", "gameID", gameID, "error", err)
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (that *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func (that *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrGameNotFound),
		errors.Is(err, apperror.ErrPlayerNotFound),
		errors.Is(err, apperror.ErrChallengeNotFound):
		status = http.StatusNotFound
	default:
		that.logger.Error("request failed", "error", err)
	}

	that.writeJSON(w, status, errorResponse{Error: err.Error()})
}
