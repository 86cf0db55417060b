// Package network - api.go
// JSON command/state API for presentation layers that do not hold a socket open.
package network

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MRamiBalles/WellBuilder/server/internal/domain/difficulty"
	"github.com/MRamiBalles/WellBuilder/server/internal/engine"
	"github.com/MRamiBalles/WellBuilder/server/internal/platform/logger"
)

// GameAPI serves the engine commands over plain HTTP.
type GameAPI struct {
	engine GameEngine
	logger *logger.Logger
}

// NewGameAPI creates the HTTP command handler.
func NewGameAPI(eng GameEngine, log *logger.Logger) *GameAPI {
	return &GameAPI{
		engine: eng,
		logger: log,
	}
}

// StateResponse wraps the read model.
type StateResponse struct {
	State engine.View `json:"state"`
}

// ResetResponse reports whether a reset happened.
type ResetResponse struct {
	Reset bool        `json:"reset"`
	State engine.View `json:"state"`
}

// HandleState returns the current view.
// GET /api/state
func (a *GameAPI) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, StateResponse{State: a.engine.View()})
}

// HandleDig applies one manual dig.
// POST /api/dig
func (a *GameAPI) HandleDig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := a.engine.ManualDig(); err != nil {
		a.commandError(w, err)
		return
	}
	jsonSuccess(w, StateResponse{State: a.engine.View()})
}

// HandlePurchase buys one upgrade.
// POST /api/upgrades/purchase {"index": 0}
func (a *GameAPI) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PurchasePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := a.engine.PurchaseUpgrade(req.Index); err != nil {
		a.commandError(w, err)
		return
	}
	jsonSuccess(w, StateResponse{State: a.engine.View()})
}

// HandleDifficulty starts the playthrough.
// POST /api/difficulty {"difficulty": "normal"}
func (a *GameAPI) HandleDifficulty(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DifficultyPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := a.engine.SelectDifficulty(r.Context(), difficulty.Difficulty(req.Difficulty)); err != nil {
		a.commandError(w, err)
		return
	}
	jsonSuccess(w, StateResponse{State: a.engine.View()})
}

// HandleReset wipes the playthrough when confirmed.
// POST /api/reset {"confirm": true}
func (a *GameAPI) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ResetPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	reset, err := a.engine.ResetGame(r.Context(), req.Confirm)
	if err != nil {
		a.commandError(w, err)
		return
	}
	if reset {
		a.logger.Event("GAME_RESET", "PLAYER", "Reset confirmed over HTTP")
	}
	jsonSuccess(w, ResetResponse{Reset: reset, State: a.engine.View()})
}

// RegisterRoutes sets up the game API routes.
func (a *GameAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", a.HandleState)
	mux.HandleFunc("/api/dig", a.HandleDig)
	mux.HandleFunc("/api/upgrades/purchase", a.HandlePurchase)
	mux.HandleFunc("/api/difficulty", a.HandleDifficulty)
	mux.HandleFunc("/api/reset", a.HandleReset)
}

// commandError maps an engine refusal onto an HTTP status.
func (a *GameAPI) commandError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("Command failed", zap.Error(err))
	}
	jsonError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownUpgrade):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownDifficulty), errors.Is(err, engine.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrDifficultyRequired),
		errors.Is(err, engine.ErrDifficultyLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
