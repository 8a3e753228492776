package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// Compile-time check: Validator implements domain.StageValidator.
var _ domain.StageValidator = (*Validator)(nil)

// events converts domain.StageTransitions into looplab/fsm EventDesc format,
// merging transitions that share event and destination (every skip lands in
// StageSkipped) into one EventDesc with several sources.
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range domain.StageTransitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Validator implements domain.StageValidator using looplab/fsm. A machine is
// built per Apply call from the artifact's current stage since looplab/fsm
// keeps its own state.
type Validator struct{}

// New creates a new FSM-backed stage validator.
func New() *Validator {
	return &Validator{}
}

// Apply returns the stage reached by event from current, or a
// domain.TransitionError when the event is not allowed there.
func (v *Validator) Apply(ctx context.Context, current domain.Stage, event domain.StageEvent) (domain.Stage, error) {
	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		var unknownEvent loopfsm.UnknownEventError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) || errors.As(err, &unknownEvent) {
			return "", &domain.TransitionError{
				Event:   event,
				Current: current,
			}
		}
		return "", err
	}

	return domain.Stage(machine.Current()), nil
}
