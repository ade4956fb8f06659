// Package input models the player's controls as a per-tick snapshot and the
// sources that produce those snapshots.
package input

import (
	"context"
	"fmt"
	"sort"
)

// State is the control snapshot for one tick. Trigger is level-sensitive;
// the other buttons act on their press edge (see Tracker).
type State struct {
	Trigger    bool `yaml:"trigger"`
	Jump       bool `yaml:"jump"`
	NextWeapon bool `yaml:"next_weapon"`
	Reload     bool `yaml:"reload"`
}

// Source produces the control snapshot for a tick.
type Source interface {
	// Poll returns the controls held at tick, which starts at simulated time t seconds.
	Poll(ctx context.Context, tick int, t float64) (State, error)
}

// Idle is a Source that never touches the controls.
type Idle struct{}

// Poll always returns the zero State.
func (Idle) Poll(context.Context, int, float64) (State, error) { return State{}, nil }

// Tracker turns held buttons into press edges.
type Tracker struct {
	prev State
}

// Update records cur and returns the buttons that went down this tick. The
// trigger is passed through as held.
func (tr *Tracker) Update(cur State) State {
	pressed := State{
		Trigger:    cur.Trigger,
		Jump:       cur.Jump && !tr.prev.Jump,
		NextWeapon: cur.NextWeapon && !tr.prev.NextWeapon,
		Reload:     cur.Reload && !tr.prev.Reload,
	}
	tr.prev = cur
	return pressed
}

// Step is one entry of a Schedule: from tick From onwards the controls are State.
type Step struct {
	From  int   `yaml:"from"`
	State State `yaml:",inline"`
}

// Schedule is a Source replaying a fixed list of steps. Before the first step
// the controls are idle.
type Schedule struct {
	steps []Step
}

// NewSchedule sorts steps by tick and rejects duplicates.
//
// Postcondition: Returns a Schedule or an error if two steps share a tick or
// a tick is negative.
func NewSchedule(steps []Step) (*Schedule, error) {
	sorted := append([]Step(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })
	for i, s := range sorted {
		if s.From < 0 {
			return nil, fmt.Errorf("input: schedule step at negative tick %d", s.From)
		}
		if i > 0 && sorted[i-1].From == s.From {
			return nil, fmt.Errorf("input: schedule has two steps at tick %d", s.From)
		}
	}
	return &Schedule{steps: sorted}, nil
}

// Poll returns the State of the last step at or before tick.
func (s *Schedule) Poll(_ context.Context, tick int, _ float64) (State, error) {
	i := sort.Search(len(s.steps), func(i int) bool { return s.steps[i].From > tick })
	if i == 0 {
		return State{}, nil
	}
	return s.steps[i-1].State, nil
}
