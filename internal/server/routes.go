package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	s := d.Store

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Alias API", "/openapi.json", "/docs"))
	if d.Health != nil {
		r.Mount("/healthz", d.Health)
	}
	if d.Chat != nil {
		// Authenticated by the token query parameter.
		r.Handle("/ws", d.Chat)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handleRegister(d.Auth, logger))
		r.Post("/login", handleLogin(d.Auth, logger))
		r.Post("/refresh", handleRefresh(d.Auth, logger))
		r.Post("/logout", handleLogout(d.Auth, logger))
	})

	r.Get("/leaderboards", handleLeaderboard(s, logger))

	requireAuth := authMiddleware(d.Auth)

	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", handleListUsers(s, logger))
		r.Get("/{userId}", handleGetUser(s, logger))

		r.Group(func(r chi.Router) {
			r.Use(selfOnly)
			r.Patch("/{userId}", handleUpdateUser(s, logger))
			r.Delete("/{userId}", handleDeleteUser(s, logger))
			r.Post("/{userId}/room/join", handleJoinRoom(d.Lobby, logger))
			r.Delete("/{userId}/room/leave/{roomId}", handleLeaveRoom(d.Lobby, logger))
			r.Post("/{userId}/team/join/{teamId}", handleJoinTeam(d.Lobby, logger))
			r.Delete("/{userId}/team/leave/{teamId}", handleLeaveTeam(d.Lobby, logger))
		})
	})

	r.Route("/rooms", func(r chi.Router) {
		// Invites are scanned by phones that have no session yet.
		r.Get("/{roomId}/invite.png", handleRoomInvite(s, d.PublicURL, logger))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", handleListRooms(s, logger))
			r.Post("/", handleCreateRoom(s, logger))

			r.Get("/{roomId}", handleGetRoom(s, logger))
			r.Patch("/{roomId}", handleUpdateRoom(s, logger))
			r.Delete("/{roomId}", handleDeleteRoom(d.Game, logger))
			r.Get("/{roomId}/ready", handleRoomReady(d.Lobby, logger))
			r.Patch("/{roomId}/calculate-scores", handleCalculateScores(d.Game, logger))

			r.Get("/{roomId}/teams", handleListTeams(s, logger))
			r.Post("/{roomId}/teams", handleCreateTeam(s, logger))

			r.Route("/{roomId}/teams/{teamId}", func(r chi.Router) {
				r.Get("/", handleGetTeam(s, logger))
				r.Put("/", handleUpdateTeam(s, logger))
				r.Delete("/", handleDeleteTeam(d.Game, logger))

				r.Get("/players", handleListPlayers(s, logger))
				r.Post("/players/{userId}", handleAddPlayer(d.Lobby, logger))
				r.Delete("/players/{userId}", handleRemovePlayer(d.Lobby, logger))

				r.Put("/roles", handleAssignRoles(d.Game, logger))
				r.Post("/word", handleDrawWord(d.Game, logger))
				r.Post("/description", handleSubmitDescription(d.Game, logger))
				r.Post("/answer", handleSubmitAnswer(d.Game, logger))
				r.Put("/reset", handleResetRound(d.Game, logger))

				r.Get("/messages", handleListMessages(s, logger))
			})
		})
	})

	r.Route("/words", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", handleListWords(s, logger))
		r.Post("/", handleCreateWord(s, logger))
		r.Get("/{wordId}", handleGetWord(s, logger))
		r.Patch("/{wordId}", handleUpdateWord(s, logger))
		r.Delete("/{wordId}", handleDeleteWord(s, logger))
	})
}
