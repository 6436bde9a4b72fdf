package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		terminal bool
	}{
		{StateQueued, false},
		{StateProcessing, false},
		{StateCompleted, true},
		{StateFailed, true},
		{State("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
		})
	}
}

func TestJob_Transitions(t *testing.T) {
	j := New("job-1", "front door", "clip_abc.mp4")
	assert.Equal(t, StateQueued, j.GetState())

	require.NoError(t, j.TransitionTo(StateProcessing))
	assert.Equal(t, StateProcessing, j.GetState())

	require.NoError(t, j.Complete(&Result{FramesExtracted: 120}))
	assert.Equal(t, StateCompleted, j.GetState())
	assert.False(t, j.CompletedAt.IsZero())
}

func TestJob_QueuedCanCompleteDirectly(t *testing.T) {
	// A short job may finish between two polls; the client never observes
	// the processing state.
	j := New("job-1", "clip", "clip_abc.mp4")
	require.NoError(t, j.Complete(&Result{}))
	assert.Equal(t, StateCompleted, j.GetState())
}

func TestJob_TerminalIsImmutable(t *testing.T) {
	j := New("job-1", "clip", "clip_abc.mp4")
	require.NoError(t, j.Fail("out of GPU memory"))
	assert.Equal(t, "out of GPU memory", j.Error)

	assert.ErrorIs(t, j.TransitionTo(StateProcessing), ErrInvalidTransition)
	assert.ErrorIs(t, j.Complete(nil), ErrInvalidTransition)
	assert.Equal(t, StateFailed, j.GetState())
}

func TestJob_SameStateIsNoop(t *testing.T) {
	j := New("job-1", "clip", "clip_abc.mp4")
	require.NoError(t, j.TransitionTo(StateQueued))
	assert.Equal(t, StateQueued, j.GetState())
}

func TestJob_Clone(t *testing.T) {
	j := New("job-1", "clip", "clip_abc.mp4")
	require.NoError(t, j.Complete(&Result{FramesExtracted: 10}))

	c := j.Clone()
	c.Result.FramesExtracted = 99
	assert.Equal(t, uint32(10), j.Result.FramesExtracted)
}
