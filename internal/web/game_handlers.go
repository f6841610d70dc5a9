package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/engine"
	"Luanshi/server/internal/intent"
	"Luanshi/server/internal/models"
	"Luanshi/server/internal/storage"
)

const defaultHistoryLimit = 50

// TurnRequest is the body of POST /turns.
type TurnRequest struct {
	Intent string      `json:"intent"`
	Mode   intent.Mode `json:"mode"`
}

// GameView is the client projection of a save.
type GameView struct {
	Slot       string                `json:"slot"`
	Date       calendar.Date         `json:"date"`
	DateText   string                `json:"date_text"`
	Season     string                `json:"season"`
	Turns      int                   `json:"turns"`
	Player     *models.PlayerState   `json:"player"`
	World      *models.WorldSnapshot `json:"world"`
	Characters []*models.Character   `json:"characters"`
	LastPlayed string                `json:"last_played"`
}

func newGameView(s *models.Save) GameView {
	date := s.World.Date()
	return GameView{
		Slot:       s.Slot,
		Date:       date,
		DateText:   calendar.FormatDate(date),
		Season:     date.Season().String(),
		Turns:      s.Turns,
		Player:     s.Player,
		World:      s.World,
		Characters: s.Characters,
		LastPlayed: humanize.Time(s.UpdatedAt),
	}
}

func (h *Handlers) ListGames(w http.ResponseWriter, r *http.Request) {
	if h.slots == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"games": []storage.SlotSummary{}})
		return
	}
	list, err := h.slots.List(r.Context())
	if err != nil {
		h.logger.Error("list games failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list games")
		return
	}

	games := make([]map[string]interface{}, 0, len(list))
	for _, s := range list {
		games = append(games, map[string]interface{}{
			"slot":        s.Slot,
			"player_name": s.PlayerName,
			"year":        calendar.FormatEraYear(s.Year, 0),
			"turns":       s.Turns,
			"last_played": humanize.Time(s.UpdatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"games": games})
}

func (h *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req engine.NewGameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	save, err := h.game.NewGame(r.Context(), req)
	if err != nil {
		h.logger.Error("create game failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}
	writeJSON(w, http.StatusCreated, newGameView(save))
}

func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	save, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newGameView(save))
}

func (h *Handlers) PlayTurn(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Mode {
	case "", intent.ModeAction, intent.ModeDialogue:
	default:
		writeError(w, http.StatusBadRequest, "mode must be action or dialogue")
		return
	}

	ctx := r.Context()
	if h.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.turnTimeout)
		defer cancel()
	}

	result, err := h.game.PlayTurn(ctx, slot, req.Intent, req.Mode)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, engine.ErrEmptyIntent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "game not found")
	case errors.Is(err, engine.ErrTurnInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrBackendUnavailable):
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "narrative backend unavailable, please retry")
	default:
		h.logger.Error("turn failed", "slot", slot, "error", err)
		writeError(w, http.StatusInternalServerError, "turn failed")
	}
}

// GetHistory returns the newest entries first; ?limit bounds the count.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	save, ok := h.load(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries := make([]map[string]interface{}, 0, limit)
	for i := len(save.History) - 1; i >= 0 && len(entries) < limit; i-- {
		e := save.History[i]
		entries = append(entries, map[string]interface{}{
			"type":  e.Type,
			"date":  calendar.FormatEraYear(e.Year, e.Month),
			"year":  e.Year,
			"month": e.Month,
			"text":  e.Text,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slot":    save.Slot,
		"total":   len(save.History),
		"entries": entries,
	})
}

// Stream upgrades to a websocket that receives every committed turn of the
// slot.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "hub not initialized")
		return
	}
	if _, ok := h.load(w, r); !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		Slot: chi.URLParam(r, "slot"),
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
		Hub:  h.hub,
	}
	welcome, _ := json.Marshal(map[string]interface{}{
		"type": "connected",
		"id":   client.ID,
		"slot": client.Slot,
		"time": time.Now().Unix(),
	})
	client.Send <- welcome

	if !h.hub.join(client) {
		conn.Close()
		return
	}
	go client.readPump()
}

func (h *Handlers) load(w http.ResponseWriter, r *http.Request) (*models.Save, bool) {
	save, err := h.game.Load(r.Context(), chi.URLParam(r, "slot"))
	if errors.Is(err, storage.ErrSlotNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("load game failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load game")
		return nil, false
	}
	return save, true
}
