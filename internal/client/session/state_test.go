package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from   State
		ev     Event
		want   State
		wantOK bool
	}{
		{Locked, EventCredentialMissing, Unlocking, true},
		{Locked, EventUnlockFailed, Locked, true},
		{Locked, EventLock, Locked, true},
		{Locked, EventQuerySucceeded, Locked, false},
		{Locked, EventUnlockSucceeded, Locked, false},

		{Unlocking, EventUnlockSucceeded, Unlocked, true},
		{Unlocking, EventUnlockRejected, Error, true},
		{Unlocking, EventPromptCancelled, Locked, true},
		{Unlocking, EventUnlockFailed, Locked, true},
		{Unlocking, EventLock, Locked, true},
		{Unlocking, EventCredentialMissing, Unlocking, false},

		{Error, EventErrorReported, Locked, true},
		{Error, EventCredentialMissing, Unlocking, true},
		{Error, EventLock, Locked, true},
		{Error, EventQuerySucceeded, Error, false},

		{Unlocked, EventQuerySucceeded, Unlocked, true},
		{Unlocked, EventExpired, Locked, true},
		{Unlocked, EventCredentialRejected, Locked, true},
		{Unlocked, EventLock, Locked, true},
		{Unlocked, EventUnlockSucceeded, Unlocked, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.ev.String(), func(t *testing.T) {
			got, ok := Transition(tt.from, tt.ev)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestTransition_RejectedUnlockEndsLocked(t *testing.T) {
	s := Locked
	for _, ev := range []Event{EventCredentialMissing, EventUnlockRejected, EventErrorReported} {
		var ok bool
		s, ok = Transition(s, ev)
		assert.True(t, ok, ev.String())
	}
	assert.Equal(t, Locked, s)
}

func TestStateAndEventNames(t *testing.T) {
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "unlocking", Unlocking.String())
	assert.Equal(t, "unlocked", Unlocked.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.Equal(t, "lock", EventLock.String())
	assert.Equal(t, "unknown", Event(42).String())
}
