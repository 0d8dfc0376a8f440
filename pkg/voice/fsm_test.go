package voice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionCaptureCycle(t *testing.T) {
	next, err := Transition(StateIdle, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateListening, next)

	next, err = Transition(next, EventEnded)
	require.NoError(t, err)
	require.Equal(t, StateRestarting, next)

	next, err = Transition(next, EventRestart)
	require.NoError(t, err)
	require.Equal(t, StateListening, next)

	next, err = Transition(next, EventResult)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionFailFromAnyStateGoesIdle(t *testing.T) {
	for _, state := range []State{StateIdle, StateListening, StateRestarting} {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateIdle, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle stop invalid", state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "idle result invalid", state: StateIdle, event: EventResult, want: StateIdle, wantErr: true},
		{name: "idle restart invalid", state: StateIdle, event: EventRestart, want: StateIdle, wantErr: true},
		{name: "idle ended schedules restart", state: StateIdle, event: EventEnded, want: StateRestarting},
		{name: "listening start invalid", state: StateListening, event: EventStart, want: StateListening, wantErr: true},
		{name: "listening restart invalid", state: StateListening, event: EventRestart, want: StateListening, wantErr: true},
		{name: "listening stop valid", state: StateListening, event: EventStop, want: StateIdle},
		{name: "restarting start invalid", state: StateRestarting, event: EventStart, want: StateRestarting, wantErr: true},
		{name: "restarting result invalid", state: StateRestarting, event: EventResult, want: StateRestarting, wantErr: true},
		{name: "restarting ended invalid", state: StateRestarting, event: EventEnded, want: StateRestarting, wantErr: true},
		{name: "restarting stop valid", state: StateRestarting, event: EventStop, want: StateIdle},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	_, err := Transition(State("weird"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
}

func TestErrorMessages(t *testing.T) {
	require.Equal(t, "Microphone access denied", ErrorMessage("not-allowed"))
	require.Equal(t, "Error: bogus", ErrorMessage("bogus"))
	require.True(t, IsTerminalError("not-allowed"))
	require.True(t, IsTerminalError("audio-capture"))
	require.False(t, IsTerminalError("no-speech"))
	require.False(t, IsTerminalError("network"))
}
