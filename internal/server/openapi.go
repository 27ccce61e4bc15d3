package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/alias/internal/alias"
	"github.com/playperu/alias/internal/auth"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
}

type (
	userParams struct {
		UserID string `path:"userId"`
	}
	roomParams struct {
		RoomID string `path:"roomId"`
	}
	wordParams struct {
		WordID string `path:"wordId"`
	}
	userRoomParams struct {
		UserID string `path:"userId"`
		RoomID string `path:"roomId"`
	}
	userTeamParams struct {
		UserID string `path:"userId"`
		TeamID string `path:"teamId"`
	}
	teamParams struct {
		RoomID string `path:"roomId"`
		TeamID string `path:"teamId"`
	}
	playerParams struct {
		RoomID string `path:"roomId"`
		TeamID string `path:"teamId"`
		UserID string `path:"userId"`
	}
	tokenParams struct {
		Token string `query:"token" required:"true"`
	}
	deleteParams struct {
		UserID string `path:"userId"`
		Soft   *bool  `query:"soft"`
	}
)

type operation struct {
	method, path string
	params       any
	summary      string
	description  string
	req          any
	resp         any
	status       int
	errors       []int
	contentType  string
}

var (
	secured = []int{http.StatusUnauthorized}
	lookup  = []int{http.StatusUnauthorized, http.StatusNotFound}
	phased  = []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict}
)

func operations() []operation {
	return []operation{
		{method: http.MethodGet, path: "/healthz", summary: "Health check",
			description: "Reports the reachability of sqlite and, when configured, redis and nats.",
			resp:        map[string]HealthStatus{}, status: http.StatusOK, errors: []int{http.StatusServiceUnavailable}},
		{method: http.MethodGet, path: "/ws", params: tokenParams{}, summary: "Team chat",
			description: "WebSocket upgrade. Pass the access token as ?token=. Frames are {\"event\",\"data\"} with events joinTeam, sendMessage, joinedTeam, receiveMessage, roundUpdate and error.",
			status:      http.StatusSwitchingProtocols, errors: secured},

		{method: http.MethodPost, path: "/auth/register", summary: "Register",
			req: CredentialsRequest{}, resp: SessionResponse{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusConflict}},
		{method: http.MethodPost, path: "/auth/login", summary: "Log in",
			req: CredentialsRequest{}, resp: SessionResponse{}, status: http.StatusOK, errors: secured},
		{method: http.MethodPost, path: "/auth/refresh", summary: "Rotate tokens",
			description: "Redeems a refresh token for a new pair. Each refresh token works once.",
			req:         RefreshRequest{}, resp: auth.TokenPair{}, status: http.StatusOK, errors: secured},
		{method: http.MethodPost, path: "/auth/logout", summary: "Revoke refresh token",
			req: RefreshRequest{}, status: http.StatusNoContent, errors: secured},

		{method: http.MethodGet, path: "/users", summary: "List users",
			resp: []alias.User{}, status: http.StatusOK, errors: secured},
		{method: http.MethodGet, path: "/users/{userId}", params: userParams{}, summary: "Get user",
			resp: alias.User{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodPatch, path: "/users/{userId}", params: userParams{}, summary: "Update own profile",
			req: UpdateUserRequest{}, resp: alias.User{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusConflict}},
		{method: http.MethodDelete, path: "/users/{userId}", params: deleteParams{}, summary: "Delete own account",
			description: "Archives the account unless ?soft=false.",
			status:      http.StatusNoContent, errors: []int{http.StatusUnauthorized, http.StatusForbidden}},
		{method: http.MethodPost, path: "/users/{userId}/room/join", params: userParams{}, summary: "Join a room",
			description: "Seats the caller in the fullest room with a free seat.",
			resp:        alias.Room{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodDelete, path: "/users/{userId}/room/leave/{roomId}", params: userRoomParams{}, summary: "Leave a room",
			resp: alias.Room{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodPost, path: "/users/{userId}/team/join/{teamId}", params: userTeamParams{}, summary: "Join a team",
			resp: alias.Team{}, status: http.StatusOK, errors: append(lookup, http.StatusConflict)},
		{method: http.MethodDelete, path: "/users/{userId}/team/leave/{teamId}", params: userTeamParams{}, summary: "Leave a team",
			resp: alias.Team{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodGet, path: "/leaderboards", summary: "Top players",
			resp: []alias.User{}, status: http.StatusOK},

		{method: http.MethodGet, path: "/rooms", summary: "List rooms",
			resp: []alias.Room{}, status: http.StatusOK, errors: secured},
		{method: http.MethodPost, path: "/rooms", summary: "Create room",
			req: CreateRoomRequest{}, resp: alias.Room{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusConflict}},
		{method: http.MethodGet, path: "/rooms/{roomId}", params: roomParams{}, summary: "Get room",
			resp: alias.Room{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodPatch, path: "/rooms/{roomId}", params: roomParams{}, summary: "Update room",
			req: UpdateRoomRequest{}, resp: alias.Room{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict}},
		{method: http.MethodDelete, path: "/rooms/{roomId}", params: roomParams{}, summary: "Delete room",
			description: "Deletes the room and its teams.",
			status:      http.StatusNoContent, errors: lookup},
		{method: http.MethodGet, path: "/rooms/{roomId}/ready", params: roomParams{}, summary: "Room readiness",
			description: "Ready when the room has teams and every team is full.",
			resp:        ReadyResponse{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodGet, path: "/rooms/{roomId}/invite.png", params: roomParams{}, summary: "Room invite QR code",
			status: http.StatusOK, contentType: "image/png", errors: []int{http.StatusNotFound}},
		{method: http.MethodPatch, path: "/rooms/{roomId}/calculate-scores", params: roomParams{}, summary: "Score the round",
			description: "Awards every team that has answered. Teams already scored are skipped.",
			resp:        ScoresResponse{}, status: http.StatusOK, errors: lookup},

		{method: http.MethodGet, path: "/rooms/{roomId}/teams", params: roomParams{}, summary: "List teams",
			resp: []alias.Team{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodPost, path: "/rooms/{roomId}/teams", params: roomParams{}, summary: "Create team",
			req: TeamRequest{}, resp: alias.Team{}, status: http.StatusCreated, errors: append(lookup, http.StatusBadRequest)},
		{method: http.MethodGet, path: "/rooms/{roomId}/teams/{teamId}", params: teamParams{}, summary: "Get team",
			resp: alias.Team{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodPut, path: "/rooms/{roomId}/teams/{teamId}", params: teamParams{}, summary: "Rename team",
			req: TeamRequest{}, resp: alias.Team{}, status: http.StatusOK, errors: append(lookup, http.StatusBadRequest)},
		{method: http.MethodDelete, path: "/rooms/{roomId}/teams/{teamId}", params: teamParams{}, summary: "Delete team",
			status: http.StatusNoContent, errors: lookup},
		{method: http.MethodGet, path: "/rooms/{roomId}/teams/{teamId}/players", params: teamParams{}, summary: "List players",
			resp: []alias.User{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodPost, path: "/rooms/{roomId}/teams/{teamId}/players/{userId}", params: playerParams{}, summary: "Add player",
			resp: alias.Team{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodDelete, path: "/rooms/{roomId}/teams/{teamId}/players/{userId}", params: playerParams{}, summary: "Remove player",
			resp: alias.Team{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodGet, path: "/rooms/{roomId}/teams/{teamId}/messages", params: teamParams{}, summary: "Chat history",
			resp: []alias.Message{}, status: http.StatusOK, errors: lookup},

		{method: http.MethodPut, path: "/rooms/{roomId}/teams/{teamId}/roles", params: teamParams{}, summary: "Assign roles",
			description: "Picks the describer and the leader for the next round.",
			resp:        alias.Team{}, status: http.StatusOK, errors: phased},
		{method: http.MethodPost, path: "/rooms/{roomId}/teams/{teamId}/word", params: teamParams{}, summary: "Draw word",
			description: "Describer only. Returns a word the team has not tried yet, with its synonyms.",
			resp:        alias.Word{}, status: http.StatusOK, errors: phased},
		{method: http.MethodPost, path: "/rooms/{roomId}/teams/{teamId}/description", params: teamParams{}, summary: "Describe the word",
			description: "Describer only. valid=false when the text gives the word away; retry until the deadline.",
			req:         TextRequest{}, resp: DescriptionResponse{}, status: http.StatusOK, errors: phased},
		{method: http.MethodPost, path: "/rooms/{roomId}/teams/{teamId}/answer", params: teamParams{}, summary: "Answer",
			description: "Leader only.",
			req:         TextRequest{}, resp: AnswerResponse{}, status: http.StatusOK, errors: phased},
		{method: http.MethodPut, path: "/rooms/{roomId}/teams/{teamId}/reset", params: teamParams{}, summary: "Reset round",
			resp: alias.Team{}, status: http.StatusOK, errors: lookup},

		{method: http.MethodGet, path: "/words", summary: "List words",
			resp: []alias.Word{}, status: http.StatusOK, errors: secured},
		{method: http.MethodPost, path: "/words", summary: "Create word",
			req: CreateWordRequest{}, resp: alias.Word{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusConflict}},
		{method: http.MethodGet, path: "/words/{wordId}", params: wordParams{}, summary: "Get word",
			resp: alias.Word{}, status: http.StatusOK, errors: lookup},
		{method: http.MethodPatch, path: "/words/{wordId}", params: wordParams{}, summary: "Update word",
			req: UpdateWordRequest{}, resp: alias.Word{}, status: http.StatusOK, errors: append(lookup, http.StatusConflict)},
		{method: http.MethodDelete, path: "/words/{wordId}", params: wordParams{}, summary: "Delete word",
			status: http.StatusNoContent, errors: lookup},
	}
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Alias API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Alias word-guessing game.")

	for _, op := range operations() {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		if op.description != "" {
			oc.SetDescription(op.description)
		}
		if op.params != nil {
			oc.AddReqStructure(op.params)
		}
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		if op.contentType != "" {
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(op.status), openapi.WithContentType(op.contentType))
		} else {
			oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.status))
		}
		for _, status := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
