package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/alias/internal/game"
)

type TextRequest struct {
	Text string `json:"text"`
}

type DescriptionResponse struct {
	Valid bool `json:"valid"`
}

type AnswerResponse struct {
	Success bool `json:"success"`
}

func handleAssignRoles(c *game.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := c.AssignRoles(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

// handleDrawWord returns the secret word with its synonyms. Only the
// describer gets it.
func handleDrawWord(c *game.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		word, err := c.DrawWord(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"), userFrom(r))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, word)
	}
}

func handleSubmitDescription(c *game.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TextRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		valid, err := c.SubmitDescription(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"), userFrom(r), req.Text)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, DescriptionResponse{Valid: valid})
	}
}

func handleSubmitAnswer(c *game.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TextRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		success, err := c.SubmitAnswer(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"), userFrom(r), req.Text)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, AnswerResponse{Success: success})
	}
}

func handleResetRound(c *game.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := c.ResetRound(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "teamId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}
