package alias

import "fmt"

// Phase tags where a team is within the current round.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseRolesAssigned        Phase = "roles_assigned"
	PhaseWordDrawn            Phase = "word_drawn"
	PhaseDescriptionSubmitted Phase = "description_submitted"
	PhaseAnswerSubmitted      Phase = "answer_submitted"
	PhaseScored               Phase = "scored"
)

var nextPhase = map[Phase]Phase{
	PhaseIdle:                 PhaseRolesAssigned,
	PhaseRolesAssigned:        PhaseWordDrawn,
	PhaseWordDrawn:            PhaseDescriptionSubmitted,
	PhaseDescriptionSubmitted: PhaseAnswerSubmitted,
	PhaseAnswerSubmitted:      PhaseScored,
}

// Advance moves the team to the phase following from. It fails with ErrPhase
// when the team is not currently in from. An empty phase counts as idle.
func (t *Team) Advance(from Phase) error {
	current := t.Phase
	if current == "" {
		current = PhaseIdle
	}
	if current != from {
		return fmt.Errorf("%w: expected %s, team is %s", ErrPhase, from, current)
	}
	to, ok := nextPhase[from]
	if !ok {
		return fmt.Errorf("%w: no transition from %s", ErrPhase, from)
	}
	t.Phase = to
	return nil
}
