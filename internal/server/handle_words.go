package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/alias/internal/store"
)

type CreateWordRequest struct {
	Word         string   `json:"word"`
	SimilarWords []string `json:"similarWords"`
}

type UpdateWordRequest struct {
	Word         *string  `json:"word,omitempty"`
	SimilarWords []string `json:"similarWords,omitempty"`
}

func handleListWords(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		words, err := s.ListWords(r.Context())
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, words)
	}
}

func handleCreateWord(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateWordRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		text := strings.TrimSpace(req.Word)
		if text == "" {
			writeError(w, http.StatusBadRequest, "word is required")
			return
		}
		word, err := s.CreateWord(r.Context(), text, req.SimilarWords)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, word)
	}
}

func handleGetWord(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		word, err := s.Word(r.Context(), chi.URLParam(r, "wordId"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, word)
	}
}

func handleUpdateWord(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateWordRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		var upd store.WordUpdate
		if req.Word != nil {
			text := strings.TrimSpace(*req.Word)
			if text == "" {
				writeError(w, http.StatusBadRequest, "word must not be empty")
				return
			}
			upd.Word = &text
		}
		upd.SimilarWords = req.SimilarWords

		word, err := s.UpdateWord(r.Context(), chi.URLParam(r, "wordId"), upd)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, word)
	}
}

func handleDeleteWord(s *store.DocStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.DeleteWord(r.Context(), chi.URLParam(r, "wordId")); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
