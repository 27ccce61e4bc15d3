package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/playperu/alias/internal/alias"
	"github.com/playperu/alias/internal/auth"
	"github.com/playperu/alias/internal/database"
	"github.com/playperu/alias/internal/game"
	"github.com/playperu/alias/internal/migrations"
	"github.com/playperu/alias/internal/store"
)

type testAPI struct {
	h     http.Handler
	store *store.DocStore
	lobby *game.Lobby
}

func setupAPI(t *testing.T) testAPI {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(db)
	tokens := auth.NewTokens("test-secret", time.Minute, time.Hour)
	ctrl := game.NewController(s, nil, logger)
	t.Cleanup(ctrl.Close)
	lobby := game.NewLobby(s, logger)

	h := NewRouter(logger, Deps{
		Store:     s,
		Game:      ctrl,
		Lobby:     lobby,
		Auth:      auth.NewService(s, tokens, auth.NewStoreRegistry(s), logger),
		PublicURL: "https://alias.example",
	})
	return testAPI{h: h, store: s, lobby: lobby}
}

func (a testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

// register creates a user and returns its id and access token.
func (a testAPI) register(t *testing.T, username string) (string, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", "", CredentialsRequest{Username: username, Password: "secret1"})
	expectStatus(t, rec, http.StatusCreated)
	resp := decode[SessionResponse](t, rec)
	return resp.User.ID, resp.AccessToken
}

func TestAuthFlow(t *testing.T) {
	a := setupAPI(t)

	a.register(t, "alice")

	rec := a.do(t, http.MethodPost, "/auth/register", "", CredentialsRequest{Username: "alice", Password: "secret1"})
	expectStatus(t, rec, http.StatusConflict)

	rec = a.do(t, http.MethodPost, "/auth/register", "", CredentialsRequest{Username: "al", Password: "secret1"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = a.do(t, http.MethodPost, "/auth/register", "", CredentialsRequest{Username: "bob", Password: strings.Repeat("x", alias.MaxPasswordBytes+1)})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = a.do(t, http.MethodPost, "/auth/login", "", CredentialsRequest{Username: "alice", Password: "nope-nope"})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = a.do(t, http.MethodPost, "/auth/login", "", CredentialsRequest{Username: "alice", Password: "secret1"})
	expectStatus(t, rec, http.StatusOK)
	session := decode[SessionResponse](t, rec)
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("login returned empty tokens: %+v", session)
	}

	rec = a.do(t, http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: session.RefreshToken})
	expectStatus(t, rec, http.StatusOK)
	pair := decode[auth.TokenPair](t, rec)

	rec = a.do(t, http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: session.RefreshToken})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = a.do(t, http.MethodPost, "/auth/logout", "", RefreshRequest{RefreshToken: pair.RefreshToken})
	expectStatus(t, rec, http.StatusNoContent)

	rec = a.do(t, http.MethodPost, "/auth/refresh", "", RefreshRequest{RefreshToken: pair.RefreshToken})
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestBearerRequired(t *testing.T) {
	a := setupAPI(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodGet, "/rooms", tt.token, nil)
			expectStatus(t, rec, http.StatusUnauthorized)
			if got := decode[ErrorResponse](t, rec); got.Error == "" {
				t.Error("error body is empty")
			}
		})
	}

	rec := a.do(t, http.MethodGet, "/leaderboards", "", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestUsersAreSelfService(t *testing.T) {
	a := setupAPI(t)
	aliceID, alice := a.register(t, "alice")
	bobID, _ := a.register(t, "bob")

	rec := a.do(t, http.MethodPatch, "/users/"+bobID, alice, UpdateUserRequest{Username: ptr("mallory")})
	expectStatus(t, rec, http.StatusForbidden)

	rec = a.do(t, http.MethodPatch, "/users/"+aliceID, alice, UpdateUserRequest{})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = a.do(t, http.MethodPatch, "/users/"+aliceID, alice, UpdateUserRequest{Username: ptr("bob")})
	expectStatus(t, rec, http.StatusConflict)

	rec = a.do(t, http.MethodPatch, "/users/"+aliceID, alice, UpdateUserRequest{Password: ptr("12")})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = a.do(t, http.MethodPatch, "/users/"+aliceID, alice, UpdateUserRequest{Password: ptr(strings.Repeat("x", alias.MaxPasswordBytes+1))})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = a.do(t, http.MethodPatch, "/users/"+aliceID, alice, UpdateUserRequest{Username: ptr("alicia"), Password: ptr("secret2")})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[alias.User](t, rec); got.Username != "alicia" {
		t.Errorf("username = %q, want alicia", got.Username)
	}

	rec = a.do(t, http.MethodPost, "/auth/login", "", CredentialsRequest{Username: "alicia", Password: "secret2"})
	expectStatus(t, rec, http.StatusOK)

	rec = a.do(t, http.MethodGet, "/users", alice, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]alias.User](t, rec); len(got) != 2 {
		t.Errorf("users = %d, want 2", len(got))
	}

	rec = a.do(t, http.MethodDelete, "/users/"+aliceID+"?soft=maybe", alice, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = a.do(t, http.MethodDelete, "/users/"+aliceID, alice, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = a.do(t, http.MethodGet, "/users/"+aliceID, alice, nil)
	expectStatus(t, rec, http.StatusNotFound)

	if _, err := a.store.DeletedUser(context.Background(), aliceID); err != nil {
		t.Errorf("soft-deleted user not archived: %v", err)
	}
}

func TestRoomsAndTeams(t *testing.T) {
	a := setupAPI(t)
	_, token := a.register(t, "alice")

	rec := a.do(t, http.MethodPost, "/rooms", token, CreateRoomRequest{Name: "Room1"})
	expectStatus(t, rec, http.StatusCreated)
	room := decode[alias.Room](t, rec)
	if room.TurnTime != alias.DefaultTurnTime || len(room.Teams) != alias.DefaultTeamCount {
		t.Fatalf("unexpected defaults: %+v", room)
	}

	rec = a.do(t, http.MethodPost, "/rooms", token, CreateRoomRequest{Name: "Room1"})
	expectStatus(t, rec, http.StatusConflict)

	rec = a.do(t, http.MethodPost, "/rooms", token, CreateRoomRequest{Name: "Fast", TurnTime: 5})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = a.do(t, http.MethodPatch, "/rooms/"+room.ID, token, UpdateRoomRequest{TurnTime: ptr(90)})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[alias.Room](t, rec); got.TurnTime != 90 || got.Name != "Room1" {
		t.Errorf("updated room = %+v", got)
	}

	rec = a.do(t, http.MethodPost, "/rooms/"+room.ID+"/teams", token, TeamRequest{Name: "Extra"})
	expectStatus(t, rec, http.StatusCreated)
	extra := decode[alias.Team](t, rec)

	rec = a.do(t, http.MethodPut, "/rooms/"+room.ID+"/teams/"+extra.ID, token, TeamRequest{Name: "Renamed"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[alias.Team](t, rec); got.Name != "Renamed" {
		t.Errorf("team name = %q", got.Name)
	}

	rec = a.do(t, http.MethodGet, "/rooms/"+room.ID+"/teams", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]alias.Team](t, rec); len(got) != alias.DefaultTeamCount+1 {
		t.Errorf("teams = %d, want %d", len(got), alias.DefaultTeamCount+1)
	}

	rec = a.do(t, http.MethodDelete, "/rooms/"+room.ID+"/teams/"+extra.ID, token, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = a.do(t, http.MethodGet, "/rooms/"+room.ID+"/teams/"+extra.ID, token, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = a.do(t, http.MethodDelete, "/rooms/"+room.ID, token, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = a.do(t, http.MethodGet, "/rooms/"+room.ID+"/teams/"+room.Teams[0], token, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestRoundOverHTTP(t *testing.T) {
	a := setupAPI(t)
	ctx := context.Background()

	ids := make([]string, 3)
	tokens := make([]string, 3)
	for i := range ids {
		ids[i], tokens[i] = a.register(t, fmt.Sprintf("player%d", i+1))
	}

	rec := a.do(t, http.MethodPost, "/words", tokens[0], CreateWordRequest{Word: "bicycle", SimilarWords: []string{"bike"}})
	expectStatus(t, rec, http.StatusCreated)

	room, err := a.store.CreateRoom(ctx, "Room1", 60, []string{"Team1"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	base := "/rooms/" + room.ID + "/teams/" + room.Teams[0]
	for _, id := range ids {
		rec := a.do(t, http.MethodPost, base+"/players/"+id, tokens[0], nil)
		expectStatus(t, rec, http.StatusOK)
	}

	rec = a.do(t, http.MethodGet, base+"/players", tokens[0], nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]alias.User](t, rec); len(got) != 3 {
		t.Fatalf("players = %d, want 3", len(got))
	}

	rec = a.do(t, http.MethodPost, base+"/word", tokens[0], nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = a.do(t, http.MethodPut, base+"/roles", tokens[2], nil)
	expectStatus(t, rec, http.StatusOK)
	team := decode[alias.Team](t, rec)
	if *team.Describer != ids[0] || *team.Leader != ids[1] {
		t.Fatalf("roles = %s/%s", *team.Describer, *team.Leader)
	}

	rec = a.do(t, http.MethodPut, base+"/roles", tokens[2], nil)
	expectStatus(t, rec, http.StatusConflict)

	rec = a.do(t, http.MethodPost, base+"/word", tokens[1], nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = a.do(t, http.MethodPost, base+"/word", tokens[0], nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[alias.Word](t, rec); got.Word != "bicycle" {
		t.Fatalf("word = %q", got.Word)
	}

	rec = a.do(t, http.MethodPost, base+"/description", tokens[0], TextRequest{Text: "ride a BIKE"})
	expectStatus(t, rec, http.StatusOK)
	if decode[DescriptionResponse](t, rec).Valid {
		t.Fatal("description leaking a synonym was accepted")
	}

	rec = a.do(t, http.MethodPost, base+"/description", tokens[0], TextRequest{Text: "two wheels and pedals"})
	expectStatus(t, rec, http.StatusOK)
	if !decode[DescriptionResponse](t, rec).Valid {
		t.Fatal("valid description rejected")
	}

	rec = a.do(t, http.MethodPost, base+"/answer", tokens[1], TextRequest{Text: "Bike"})
	expectStatus(t, rec, http.StatusOK)
	if !decode[AnswerResponse](t, rec).Success {
		t.Fatal("synonym answer not accepted")
	}

	rec = a.do(t, http.MethodPatch, "/rooms/"+room.ID+"/calculate-scores", tokens[0], nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[ScoresResponse](t, rec); len(got.Scored) != 1 || got.Scored[0].Score != 1 {
		t.Fatalf("scored = %+v", got)
	}

	rec = a.do(t, http.MethodPatch, "/rooms/"+room.ID+"/calculate-scores", tokens[0], nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[ScoresResponse](t, rec); len(got.Scored) != 0 {
		t.Fatalf("second scoring awarded again: %+v", got)
	}

	rec = a.do(t, http.MethodGet, "/leaderboards", "", nil)
	expectStatus(t, rec, http.StatusOK)
	for _, u := range decode[[]alias.User](t, rec) {
		if u.Score != 1 || u.Played != 1 || u.Wins != 1 {
			t.Errorf("%s: score=%d played=%d wins=%d", u.Username, u.Score, u.Played, u.Wins)
		}
	}

	rec = a.do(t, http.MethodPut, base+"/reset", tokens[0], nil)
	expectStatus(t, rec, http.StatusOK)
	reset := decode[alias.Team](t, rec)
	if reset.Phase != alias.PhaseIdle || reset.SelectedWord != nil || len(reset.TryedWords) != 1 {
		t.Errorf("reset team = %+v", reset)
	}

	// Every word has been tried now.
	rec = a.do(t, http.MethodPut, base+"/roles", tokens[0], nil)
	expectStatus(t, rec, http.StatusOK)
	describer := decode[alias.Team](t, rec).Describer
	var describerToken string
	for i, id := range ids {
		if id == *describer {
			describerToken = tokens[i]
		}
	}
	rec = a.do(t, http.MethodPost, base+"/word", describerToken, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestJoinRoomAndTeam(t *testing.T) {
	a := setupAPI(t)
	ctx := context.Background()
	room, err := a.lobby.ProvisionRoom(ctx)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	aliceID, alice := a.register(t, "alice")
	_, bob := a.register(t, "bob")

	rec := a.do(t, http.MethodPost, "/users/"+aliceID+"/room/join", bob, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = a.do(t, http.MethodPost, "/users/"+aliceID+"/room/join", alice, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[alias.Room](t, rec); got.ID != room.ID || !got.HasUser(aliceID) {
		t.Fatalf("joined room = %+v", got)
	}

	teamID := room.Teams[0]
	for i := range alias.MaxPlayersInTeam {
		if _, err := a.lobby.AddPlayer(ctx, room.ID, teamID, fmt.Sprintf("other%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	rec = a.do(t, http.MethodPost, "/users/"+aliceID+"/team/join/"+teamID, alice, nil)
	expectStatus(t, rec, http.StatusConflict)

	rec = a.do(t, http.MethodPost, "/users/"+aliceID+"/team/join/"+room.Teams[1], alice, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = a.do(t, http.MethodGet, "/rooms/"+room.ID+"/teams/"+room.Teams[1]+"/messages", alice, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]alias.Message](t, rec); len(got) != 0 {
		t.Errorf("messages = %d, want 0", len(got))
	}

	rec = a.do(t, http.MethodDelete, "/users/"+aliceID+"/team/leave/"+room.Teams[1], alice, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[alias.Team](t, rec); got.HasPlayer(aliceID) {
		t.Error("still a member after leaving")
	}

	rec = a.do(t, http.MethodDelete, "/users/"+aliceID+"/room/leave/"+room.ID, alice, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[alias.Room](t, rec); got.HasUser(aliceID) {
		t.Error("still in room after leaving")
	}
}

func TestReadyAndInvite(t *testing.T) {
	a := setupAPI(t)
	_, token := a.register(t, "alice")
	room, err := a.lobby.ProvisionRoom(context.Background())
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	rec := a.do(t, http.MethodGet, "/rooms/"+room.ID+"/ready", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if decode[ReadyResponse](t, rec).Ready {
		t.Error("empty room reported ready")
	}

	rec = a.do(t, http.MethodGet, "/rooms/"+room.ID+"/invite.png", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("content-type = %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a png")
	}

	rec = a.do(t, http.MethodGet, "/rooms/missing/invite.png", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestWordsCRUD(t *testing.T) {
	a := setupAPI(t)
	_, token := a.register(t, "alice")

	rec := a.do(t, http.MethodPost, "/words", token, CreateWordRequest{Word: "  "})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = a.do(t, http.MethodPost, "/words", token, CreateWordRequest{Word: "apple"})
	expectStatus(t, rec, http.StatusCreated)
	word := decode[alias.Word](t, rec)
	if word.SimilarWords == nil {
		t.Error("similarWords should be an empty list, not null")
	}

	rec = a.do(t, http.MethodPost, "/words", token, CreateWordRequest{Word: "apple"})
	expectStatus(t, rec, http.StatusConflict)

	rec = a.do(t, http.MethodPost, "/words", token, CreateWordRequest{Word: "APPLE"})
	expectStatus(t, rec, http.StatusConflict)

	rec = a.do(t, http.MethodPatch, "/words/"+word.ID, token, UpdateWordRequest{SimilarWords: []string{"fruit"}})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[alias.Word](t, rec); len(got.SimilarWords) != 1 || got.Word != "apple" {
		t.Errorf("updated word = %+v", got)
	}

	rec = a.do(t, http.MethodDelete, "/words/"+word.ID, token, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = a.do(t, http.MethodGet, "/words/"+word.ID, token, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func ptr[T any](v T) *T { return &v }
