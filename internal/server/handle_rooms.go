package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/playperu/alias/internal/alias"
	"github.com/playperu/alias/internal/game"
	"github.com/playperu/alias/internal/store"
)

const inviteSize = 256

// CreateRoomRequest is the body of POST /rooms. Teams defaults to three
// teams named "Team 1".."Team 3"; TurnTime defaults to 60 seconds.
type CreateRoomRequest struct {
	Name     string   `json:"name"`
	TurnTime int      `json:"turnTime,omitempty"`
	Teams    []string `json:"teams,omitempty"`
}

type UpdateRoomRequest struct {
	Name     *string `json:"name,omitempty"`
	TurnTime *int    `json:"turnTime,omitempty"`
}

type ReadyResponse struct {
	Ready bool `json:"ready"`
}

type ScoresResponse struct {
	Scored []alias.Team `json:"scored"`
}

func validTurnTime(t int) error {
	if t < alias.MinTurnTime || t > alias.MaxTurnTime {
		return alias.Errorf(alias.ErrBadRequest, "turnTime must be between %d and %d seconds", alias.MinTurnTime, alias.MaxTurnTime)
	}
	return nil
}

func handleListRooms(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := s.ListRooms(r.Context())
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

func handleCreateRoom(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if req.TurnTime == 0 {
			req.TurnTime = alias.DefaultTurnTime
		}
		if err := validTurnTime(req.TurnTime); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		if req.Teams == nil {
			for i := range alias.DefaultTeamCount {
				req.Teams = append(req.Teams, fmt.Sprintf("Team %d", i+1))
			}
		}

		room, err := s.CreateRoom(r.Context(), req.Name, req.TurnTime, req.Teams)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	}
}

func handleGetRoom(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := s.Room(r.Context(), chi.URLParam(r, "roomId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func handleUpdateRoom(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		if req.TurnTime != nil {
			if err := validTurnTime(*req.TurnTime); err != nil {
				writeDomainError(w, r, logger, err)
				return
			}
		}

		room, err := s.ModifyRoom(r.Context(), chi.URLParam(r, "roomId"), func(room *alias.Room) error {
			if req.Name != nil {
				room.Name = strings.TrimSpace(*req.Name)
			}
			if req.TurnTime != nil {
				room.TurnTime = *req.TurnTime
			}
			return nil
		})
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func handleDeleteRoom(ctrl *game.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.DeleteRoom(r.Context(), chi.URLParam(r, "roomId")); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRoomReady(lobby *game.Lobby, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready, err := lobby.IsRoomReady(r.Context(), chi.URLParam(r, "roomId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ReadyResponse{Ready: ready})
	}
}

func handleCalculateScores(c *game.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scored, err := c.CalculateScores(r.Context(), chi.URLParam(r, "roomId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ScoresResponse{Scored: scored})
	}
}

// handleRoomInvite renders a QR code pointing at the room's public URL.
func handleRoomInvite(s *store.DocStore, publicURL string, logger *slog.Logger) http.HandlerFunc {
	base := strings.TrimRight(publicURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := s.Room(r.Context(), chi.URLParam(r, "roomId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		png, err := qrcode.Encode(base+"/rooms/"+room.ID, qrcode.Medium, inviteSize)
		if err != nil {
			writeDomainError(w, r, logger, fmt.Errorf("encoding invite: %w", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
