package game

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/playperu/alias/internal/alias"
)

const timeoutBudget = 5 * time.Second

// Controller runs the round state machine of each team:
// idle → roles_assigned → word_drawn → description_submitted →
// answer_submitted → scored → idle (reset).
type Controller struct {
	store  Store
	notify Notifier
	logger *slog.Logger
	timers *Timers

	// phaseDuration is how long the description and answer phases last.
	phaseDuration func(room alias.Room) time.Duration
}

func NewController(store Store, notify Notifier, logger *slog.Logger) *Controller {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Controller{
		store:  store,
		notify: notify,
		logger: logger,
		timers: NewTimers(),
		phaseDuration: func(room alias.Room) time.Duration {
			return time.Duration(room.TurnTime) * time.Second
		},
	}
}

// Close cancels all pending phase deadlines.
func (c *Controller) Close() {
	c.timers.StopAll()
}

// AssignRoles picks the describer and the leader, rotating through the
// players with every round.
func (c *Controller) AssignRoles(ctx context.Context, roomID, teamID string) (alias.Team, error) {
	team, err := c.store.ModifyTeam(ctx, roomID, teamID, func(t *alias.Team) error {
		n := len(t.Players)
		if n < 2 {
			return alias.Errorf(alias.ErrBadRequest, "team needs at least two players, has %d", n)
		}
		if err := t.Advance(alias.PhaseIdle); err != nil {
			return err
		}
		describer := t.Players[t.Turn%n]
		leader := t.Players[(t.Turn+1)%n]
		t.Describer = &describer
		t.Leader = &leader
		t.Turn++
		return nil
	})
	if err != nil {
		return alias.Team{}, err
	}
	c.notify.RoundUpdated(team)
	return team, nil
}

// DrawWord hands the describer a random word the team has not tried yet and
// starts the description deadline.
func (c *Controller) DrawWord(ctx context.Context, roomID, teamID, userID string) (alias.Word, error) {
	team, err := c.store.Team(ctx, roomID, teamID)
	if err != nil {
		return alias.Word{}, err
	}
	if !team.IsDescriber(userID) {
		return alias.Word{}, alias.Errorf(alias.ErrUnauthorized, "only the describer may draw a word")
	}
	if team.Phase != alias.PhaseRolesAssigned {
		return alias.Word{}, fmt.Errorf("%w: expected %s, team is %s", alias.ErrPhase, alias.PhaseRolesAssigned, team.Phase)
	}

	word, err := c.store.RandomUnusedWord(ctx, team.TryedWords)
	if err != nil {
		return alias.Word{}, err
	}

	team, err = c.store.ModifyTeam(ctx, roomID, teamID, func(t *alias.Team) error {
		if !t.IsDescriber(userID) {
			return alias.Errorf(alias.ErrUnauthorized, "only the describer may draw a word")
		}
		if slices.Contains(t.TryedWords, word.ID) {
			// A concurrent draw picked this word first.
			return fmt.Errorf("%w: word already drawn", alias.ErrPhase)
		}
		if err := t.Advance(alias.PhaseRolesAssigned); err != nil {
			return err
		}
		t.SelectedWord = &word.ID
		t.TryedWords = append(t.TryedWords, word.ID)
		return nil
	})
	if err != nil {
		return alias.Word{}, err
	}

	c.schedule(ctx, team, alias.PhaseWordDrawn, c.expireDescription)
	c.notify.RoundUpdated(team)
	return word, nil
}

// SubmitDescription stores the describer's clue. A clue that contains the
// secret word or a synonym is rejected with valid=false and may be retried.
func (c *Controller) SubmitDescription(ctx context.Context, roomID, teamID, userID, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, alias.Errorf(alias.ErrBadRequest, "description is required")
	}

	team, word, err := c.currentWord(ctx, roomID, teamID)
	if err != nil {
		return false, err
	}
	if !team.IsDescriber(userID) {
		return false, alias.Errorf(alias.ErrUnauthorized, "only the describer may describe the word")
	}
	if team.Phase != alias.PhaseWordDrawn {
		return false, fmt.Errorf("%w: expected %s, team is %s", alias.ErrPhase, alias.PhaseWordDrawn, team.Phase)
	}
	if !alias.CheckDescription(word, text) {
		return false, nil
	}

	team, err = c.store.ModifyTeam(ctx, roomID, teamID, func(t *alias.Team) error {
		if err := t.Advance(alias.PhaseWordDrawn); err != nil {
			return err
		}
		t.Description = &text
		return nil
	})
	if err != nil {
		return false, err
	}

	c.schedule(ctx, team, alias.PhaseDescriptionSubmitted, c.expireAnswer)
	c.notify.RoundUpdated(team)
	return true, nil
}

// SubmitAnswer grades the leader's guess. Scores change only in
// CalculateScores.
func (c *Controller) SubmitAnswer(ctx context.Context, roomID, teamID, userID, text string) (bool, error) {
	team, word, err := c.currentWord(ctx, roomID, teamID)
	if err != nil {
		return false, err
	}
	if !team.IsLeader(userID) {
		return false, alias.Errorf(alias.ErrUnauthorized, "only the leader may answer")
	}
	return c.recordAnswer(ctx, roomID, teamID, word, strings.TrimSpace(text))
}

func (c *Controller) recordAnswer(ctx context.Context, roomID, teamID string, word alias.Word, text string) (bool, error) {
	success := alias.CheckAnswer(word, text)
	team, err := c.store.ModifyTeam(ctx, roomID, teamID, func(t *alias.Team) error {
		if err := t.Advance(alias.PhaseDescriptionSubmitted); err != nil {
			return err
		}
		t.Answer = &text
		t.Success = &success
		return nil
	})
	if err != nil {
		return false, err
	}

	c.timers.Cancel(teamID)
	c.notify.RoundUpdated(team)
	return success, nil
}

// CalculateScores awards every team of the room that has answered. Teams
// already scored, or still mid-round, are skipped, so a repeated call does
// not award twice.
func (c *Controller) CalculateScores(ctx context.Context, roomID string) ([]alias.Team, error) {
	if _, err := c.store.Room(ctx, roomID); err != nil {
		return nil, err
	}
	teams, err := c.store.ListTeams(ctx, roomID)
	if err != nil {
		return nil, err
	}

	scored := []alias.Team{}
	for _, t := range teams {
		if t.Phase != alias.PhaseAnswerSubmitted {
			continue
		}
		team, err := c.store.ModifyTeam(ctx, roomID, t.ID, func(t *alias.Team) error {
			if err := t.Advance(alias.PhaseAnswerSubmitted); err != nil {
				return err
			}
			if t.Success != nil && *t.Success {
				t.Score += alias.RoundReward
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scoring team %s: %w", t.ID, err)
		}

		won := team.Success != nil && *team.Success
		if err := c.store.RecordRound(ctx, team.Players, won, alias.RoundReward); err != nil {
			return nil, fmt.Errorf("recording round for team %s: %w", t.ID, err)
		}
		c.notify.RoundUpdated(team)
		scored = append(scored, team)
	}
	return scored, nil
}

// ResetRound clears the per-round fields so the team can start over. Tried
// words are kept for the rest of the game.
func (c *Controller) ResetRound(ctx context.Context, roomID, teamID string) (alias.Team, error) {
	team, err := c.store.ModifyTeam(ctx, roomID, teamID, func(t *alias.Team) error {
		t.ResetRound()
		return nil
	})
	if err != nil {
		return alias.Team{}, err
	}
	c.timers.Cancel(teamID)
	c.notify.RoundUpdated(team)
	return team, nil
}

// DeleteTeam removes the team and drops its pending deadline.
func (c *Controller) DeleteTeam(ctx context.Context, roomID, teamID string) error {
	if err := c.store.DeleteTeam(ctx, roomID, teamID); err != nil {
		return err
	}
	c.timers.Cancel(teamID)
	return nil
}

// DeleteRoom removes the room with its teams and drops their deadlines.
func (c *Controller) DeleteRoom(ctx context.Context, roomID string) error {
	room, err := c.store.Room(ctx, roomID)
	if err != nil {
		return err
	}
	if err := c.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	for _, teamID := range room.Teams {
		c.timers.Cancel(teamID)
	}
	return nil
}

func (c *Controller) currentWord(ctx context.Context, roomID, teamID string) (alias.Team, alias.Word, error) {
	team, err := c.store.Team(ctx, roomID, teamID)
	if err != nil {
		return alias.Team{}, alias.Word{}, err
	}
	if team.SelectedWord == nil {
		return team, alias.Word{}, fmt.Errorf("%w: no word drawn", alias.ErrPhase)
	}
	word, err := c.store.Word(ctx, *team.SelectedWord)
	if err != nil {
		return team, alias.Word{}, fmt.Errorf("loading selected word: %w", err)
	}
	return team, word, nil
}

// schedule arms the deadline for the phase team has just entered.
func (c *Controller) schedule(ctx context.Context, team alias.Team, phase alias.Phase, expire func(roomID, teamID string, phase alias.Phase)) {
	room, err := c.store.Room(ctx, team.RoomID)
	if err != nil {
		c.logger.Error("phase timer not scheduled", "team_id", team.ID, "error", err)
		return
	}
	c.timers.Schedule(team.ID, c.phaseDuration(room), func() {
		expire(team.RoomID, team.ID, phase)
	})
}

// expireDescription fills in a stock clue when the describer ran out of time.
func (c *Controller) expireDescription(roomID, teamID string, expected alias.Phase) {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutBudget)
	defer cancel()

	filler := alias.FillerDescription
	team, err := c.store.ModifyTeam(ctx, roomID, teamID, func(t *alias.Team) error {
		if err := t.Advance(expected); err != nil {
			return err
		}
		t.Description = &filler
		return nil
	})
	if err != nil {
		c.logger.Debug("description deadline skipped", "team_id", teamID, "error", err)
		return
	}
	c.logger.Info("description deadline reached", "room_id", roomID, "team_id", teamID)
	c.schedule(ctx, team, alias.PhaseDescriptionSubmitted, c.expireAnswer)
	c.notify.RoundUpdated(team)
}

// expireAnswer records an empty, wrong answer when the leader ran out of time.
func (c *Controller) expireAnswer(roomID, teamID string, expected alias.Phase) {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutBudget)
	defer cancel()

	empty := ""
	failed := false
	team, err := c.store.ModifyTeam(ctx, roomID, teamID, func(t *alias.Team) error {
		if err := t.Advance(expected); err != nil {
			return err
		}
		t.Answer = &empty
		t.Success = &failed
		return nil
	})
	if err != nil {
		c.logger.Debug("answer deadline skipped", "team_id", teamID, "error", err)
		return
	}
	c.logger.Info("answer deadline reached", "room_id", roomID, "team_id", teamID)
	c.notify.RoundUpdated(team)
}
