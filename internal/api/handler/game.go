package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/rummy-tracker/internal/api/response"
	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// KeyParam is the query parameter carrying the game key
const KeyParam = "gameId"

// maxBodyBytes bounds a snapshot upload
const maxBodyBytes = 1 << 20

// GameHandler serves the key-value snapshot endpoint
type GameHandler struct {
	store  storage.GameStore
	logger *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(store storage.GameStore, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		store:  store,
		logger: logger,
	}
}

// Get handles GET /api/game?gameId=<key>
// Absent games are reported as a null body, not as an error
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get(KeyParam)
	if key == "" {
		WriteError(w, NewInvalidRequestError("gameId is required"))
		return
	}

	game, err := h.store.GetGame(r.Context(), key)
	if errors.Is(err, model.ErrGameNotFound) {
		response.Null(w)
		return
	}
	if err != nil {
		h.logger.Error("failed to load game",
			slog.String("game_id", key),
			slog.String("error", err.Error()),
		)
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, game)
}

// Save handles POST /api/game?gameId=<key>
func (h *GameHandler) Save(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get(KeyParam)
	if key == "" {
		WriteError(w, NewInvalidRequestError("gameId is required"))
		return
	}

	var game model.Game
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&game); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}
	if err := game.Validate(); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.store.SaveGame(r.Context(), key, &game); err != nil {
		h.logger.Error("failed to save game",
			slog.String("game_id", key),
			slog.String("error", err.Error()),
		)
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SaveResponse{Success: true})
}
