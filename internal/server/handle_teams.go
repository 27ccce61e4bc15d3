package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/alias/internal/alias"
	"github.com/playperu/alias/internal/game"
	"github.com/playperu/alias/internal/store"
)

type TeamRequest struct {
	Name string `json:"name"`
}

func handleListTeams(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomId")
		if _, err := s.Room(r.Context(), roomID); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		teams, err := s.ListTeams(r.Context(), roomID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func handleCreateTeam(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		team, err := s.CreateTeam(r.Context(), chi.URLParam(r, "roomId"), name)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, team)
	}
}

func handleGetTeam(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := s.Team(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func handleUpdateTeam(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		team, err := s.ModifyTeam(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"), func(t *alias.Team) error {
			t.Name = name
			return nil
		})
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func handleDeleteTeam(ctrl *game.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.DeleteTeam(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId")); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListPlayers resolves the team's member ids to users. Members whose
// account is gone are left out.
func handleListPlayers(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := s.Team(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		players := make([]alias.User, 0, len(team.Players))
		for _, id := range team.Players {
			u, err := s.User(r.Context(), id)
			if errors.Is(err, alias.ErrNotFound) {
				continue
			}
			if err != nil {
				writeDomainError(w, r, logger, err)
				return
			}
			players = append(players, u)
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func handleAddPlayer(lobby *game.Lobby, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := lobby.AddPlayer(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"), chi.URLParam(r, "userId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func handleRemovePlayer(lobby *game.Lobby, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := lobby.RemovePlayer(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"), chi.URLParam(r, "userId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func handleListMessages(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, teamID := chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId")
		if _, err := s.Team(r.Context(), roomID, teamID); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		msgs, err := s.ListMessages(r.Context(), roomID, teamID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}
