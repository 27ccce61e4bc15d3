package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/alias/internal/alias"
	"github.com/playperu/alias/internal/auth"
	"github.com/playperu/alias/internal/game"
	"github.com/playperu/alias/internal/store"
)

// UpdateUserRequest is the body of PATCH /users/{userId}. At least one field
// is required.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

func handleListUsers(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := s.ListUsers(r.Context())
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleGetUser(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.User(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func handleUpdateUser(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateUserRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Username == nil && req.Password == nil {
			writeError(w, http.StatusBadRequest, "username or password is required")
			return
		}

		var upd store.UserUpdate
		var username, password string
		if req.Username != nil {
			username = strings.TrimSpace(*req.Username)
			if username == "" {
				writeError(w, http.StatusBadRequest, "username must not be empty")
				return
			}
			upd.Username = &username
		}
		if req.Password != nil {
			password = *req.Password
			if password == "" {
				writeError(w, http.StatusBadRequest, "password must not be empty")
				return
			}
		}
		if err := auth.ValidateCredentials(username, password); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		if password != "" {
			hash, err := auth.HashPassword(password)
			if err != nil {
				writeDomainError(w, r, logger, err)
				return
			}
			upd.PasswordHash = &hash
		}

		user, err := s.UpdateUser(r.Context(), userFrom(r), upd)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// handleDeleteUser archives the caller by default; ?soft=false removes the
// account for good.
func handleDeleteUser(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		soft := true
		if raw := r.URL.Query().Get("soft"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "soft must be true or false")
				return
			}
			soft = v
		}

		var err error
		if soft {
			err = s.SoftDeleteUser(r.Context(), userFrom(r))
		} else {
			err = s.DeleteUser(r.Context(), userFrom(r))
		}
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleLeaderboard(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := s.Leaderboard(r.Context(), alias.LeaderboardSize)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleJoinRoom(lobby *game.Lobby, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := lobby.AddUserToRoom(r.Context(), userFrom(r))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func handleLeaveRoom(lobby *game.Lobby, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := lobby.RemoveUserFromRoom(r.Context(), userFrom(r), chi.URLParam(r, "roomId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func handleJoinTeam(lobby *game.Lobby, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := lobby.JoinTeam(r.Context(), userFrom(r), chi.URLParam(r, "teamId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func handleLeaveTeam(lobby *game.Lobby, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := lobby.LeaveTeam(r.Context(), userFrom(r), chi.URLParam(r, "teamId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}
