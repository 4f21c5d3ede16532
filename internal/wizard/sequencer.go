package wizard

import (
	"context"
	"time"

	"github.com/levantcargo/shipdesk/internal/locale"
)

// Sequencer drives a draft through the step order. Moving forward demands
// a clean current step; moving backward is always allowed and keeps the
// entered data intact.
type Sequencer struct {
	draft *Draft
	rules *Rules
	loc   locale.Locale
}

// NewSequencer wraps a draft with the validation rules.
func NewSequencer(draft *Draft, rules *Rules) *Sequencer {
	return &Sequencer{draft: draft, rules: rules, loc: locale.For(string(draft.Lang))}
}

// Current returns the step the draft is on.
func (s *Sequencer) Current() Step {
	return s.draft.Step
}

// Next validates the current step and advances to the following one.
// A *ValidationError is returned when the step is incomplete. The final
// transition to the confirmation step belongs to submission, not Next.
func (s *Sequencer) Next(ctx context.Context) error {
	if errs := ValidateStep(ctx, s.draft, s.draft.Step, s.rules, s.loc); len(errs) > 0 {
		return &ValidationError{Step: s.draft.Step, Fields: errs}
	}
	if s.draft.Step < StepReview {
		s.draft.Step++
		s.touch()
	}
	return nil
}

// Back moves one step backward without validating anything.
func (s *Sequencer) Back() {
	if s.draft.Step > FirstStep && s.draft.Step < StepConfirmation {
		s.draft.Step--
		s.touch()
	}
}

// JumpTo moves directly to a step. Backward jumps are unconditional;
// forward jumps re-validate every step in between, so a customer cannot
// deep-link past incomplete screens.
func (s *Sequencer) JumpTo(ctx context.Context, target Step) error {
	// A consumed draft is terminal; a new shipment starts a new session.
	if s.draft.Step == StepConfirmation {
		return &ValidationError{Step: s.draft.Step, Fields: []FieldError{
			fieldErr(s.loc, "step", locale.KeyStepLocked),
		}}
	}
	if target < FirstStep || target >= StepConfirmation {
		return &ValidationError{Step: target, Fields: []FieldError{
			fieldErr(s.loc, "step", locale.KeyStepLocked),
		}}
	}
	if target <= s.draft.Step {
		s.draft.Step = target
		s.touch()
		return nil
	}
	for step := s.draft.Step; step < target; step++ {
		if errs := ValidateStep(ctx, s.draft, step, s.rules, s.loc); len(errs) > 0 {
			return &ValidationError{Step: step, Fields: errs}
		}
	}
	s.draft.Step = target
	s.touch()
	return nil
}

// Validate runs the current step's validator without moving.
func (s *Sequencer) Validate(ctx context.Context) []FieldError {
	return ValidateStep(ctx, s.draft, s.draft.Step, s.rules, s.loc)
}

func (s *Sequencer) touch() {
	s.draft.UpdatedAt = time.Now().UTC()
}
