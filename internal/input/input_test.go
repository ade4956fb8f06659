package input

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestTracker_Edges(t *testing.T) {
	var tr Tracker
	got := tr.Update(State{Trigger: true, Jump: true})
	assert.Equal(t, State{Trigger: true, Jump: true}, got)

	got = tr.Update(State{Trigger: true, Jump: true, Reload: true})
	assert.Equal(t, State{Trigger: true, Reload: true}, got, "held jump is not a new press")

	got = tr.Update(State{})
	assert.Equal(t, State{}, got)

	got = tr.Update(State{Jump: true, NextWeapon: true})
	assert.Equal(t, State{Jump: true, NextWeapon: true}, got)
}

func TestSchedule_Poll(t *testing.T) {
	s, err := NewSchedule([]Step{
		{From: 10, State: State{Trigger: false}},
		{From: 2, State: State{Trigger: true}},
		{From: 5, State: State{Trigger: true, Reload: true}},
	})
	require.NoError(t, err)
	ctx := context.Background()

	for tick, want := range map[int]State{
		0:  {},
		1:  {},
		2:  {Trigger: true},
		4:  {Trigger: true},
		5:  {Trigger: true, Reload: true},
		9:  {Trigger: true, Reload: true},
		10: {},
		99: {},
	} {
		got, err := s.Poll(ctx, tick, 0)
		require.NoError(t, err)
		assert.Equal(t, want, got, "tick %d", tick)
	}
}

func TestNewSchedule_Rejects(t *testing.T) {
	_, err := NewSchedule([]Step{{From: 1}, {From: 1}})
	assert.Error(t, err)
	_, err = NewSchedule([]Step{{From: -1}})
	assert.Error(t, err)
}

func TestIdle(t *testing.T) {
	st, err := Idle{}.Poll(context.Background(), 7, 1.5)
	require.NoError(t, err)
	assert.Equal(t, State{}, st)
}

func TestPropertyTrackerPressesAreEdges(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var tr Tracker
		prev := State{}
		n := rapid.IntRange(1, 50).Draw(rt, "n")
		for i := 0; i < n; i++ {
			cur := State{
				Trigger:    rapid.Bool().Draw(rt, "trigger"),
				Jump:       rapid.Bool().Draw(rt, "jump"),
				NextWeapon: rapid.Bool().Draw(rt, "next"),
				Reload:     rapid.Bool().Draw(rt, "reload"),
			}
			got := tr.Update(cur)
			if got.Jump && (prev.Jump || !cur.Jump) {
				rt.Fatalf("jump press reported without an edge")
			}
			if got.Trigger != cur.Trigger {
				rt.Fatalf("trigger must pass through")
			}
			prev = cur
		}
	})
}
