package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/service"
	"github.com/wricardo/carreritas/game/session"
	"github.com/wricardo/carreritas/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, in which case /ws is not served.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Games
	api.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleDeleteGame).Methods("DELETE")

	// Players and turns
	api.HandleFunc("/games/{id}/players", s.handleJoin).Methods("POST")
	api.HandleFunc("/games/{id}/players/{pid}", s.handleLeave).Methods("DELETE")
	api.HandleFunc("/games/{id}/next", s.handleNextPlayer).Methods("GET")
	api.HandleFunc("/games/{id}/turns", s.handlePlayTurn).Methods("POST")
	api.HandleFunc("/games/{id}/frame", s.handleFrame).Methods("GET")

	// Tracks
	api.HandleFunc("/tracks", s.handleListTracks).Methods("GET")
	api.HandleFunc("/tracks/{name}", s.handleGetTrack).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message, "code": status})
}

// respondServiceError maps service and session errors to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidCommand),
		errors.Is(err, engine.ErrStartLineFull),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, session.ErrInvalidSettings),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrPlayerNotFound),
		errors.Is(err, service.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotPlayersTurn),
		errors.Is(err, session.ErrSessionFinished),
		errors.Is(err, session.ErrGameStarted),
		errors.Is(err, session.ErrPlayerExists),
		errors.Is(err, session.ErrNoPlayers),
		errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decode reads an optional JSON body
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body", service.ErrInvalidInput)
	}
	return nil
}

// Game Handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req service.CreateGameRequest
	if err := decode(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	game, err := s.service.CreateGame(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, game)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "id", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(games, func(i, j int) bool {
		if sortBy == "id" {
			if order == "asc" {
				return games[i].ID < games[j].ID
			}
			return games[i].ID > games[j].ID
		}
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = games[i].CreatedAt, games[j].CreatedAt
		} else {
			ti, tj = games[i].LastAccessedAt, games[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(games)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(games) {
		games = games[:l]
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(games),
		"total": total,
		"games": games,
		"sort":  sortBy,
		"order": order,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.service.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	if err := s.service.DeleteGame(r.Context(), gameID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Game %s deleted", gameID),
	})
}

// Player and Turn Handlers

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id,omitempty"`
		Name     string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	player, err := s.service.JoinGame(r.Context(), mux.Vars(r)["id"], req.PlayerID, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, player)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.service.LeaveGame(r.Context(), vars["id"], vars["pid"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Player %s left game %s", vars["pid"], vars["id"]),
	})
}

func (s *Server) handleNextPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.service.NextPlayer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, player)
}

func (s *Server) handlePlayTurn(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req struct {
		PlayerID string `json:"player_id"`
		Accel    string `json:"accel"`
		Heading  int    `json:"heading"`
	}
	if err := decode(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}
	if req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	accel, err := engine.ParseAccel(req.Accel)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.PlayTurn(r.Context(), gameID, req.PlayerID, engine.Command{Accel: accel, Heading: req.Heading})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().Str("game", gameID).Str("player", req.PlayerID).Str("accel", string(accel)).Int("heading", req.Heading).
		Bool("applied", result.Outcome.Applied).Int("x", result.Outcome.Position.X).Int("y", result.Outcome.Position.Y).
		Bool("finished", result.Finished).Msg("turn")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := s.service.RenderFrame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, frame)
}

// Track Handlers

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.service.ListTracks(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tracks)
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	track, err := s.service.GetTrack(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, track)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	if gameID == "" {
		respondError(w, http.StatusBadRequest, "game parameter required")
		return
	}

	if _, err := s.service.GetGame(r.Context(), gameID); err != nil {
		respondServiceError(w, err)
		return
	}

	s.hub.ServeWS(w, r, gameID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
