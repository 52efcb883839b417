// Package readiness holds the process-wide "trigger source authenticated"
// flag shared by the session manager and the broadcaster. The flag starts
// false, flips to true once the Twitch handshake completes, and never
// reverts without a process restart.
package readiness

import "sync/atomic"

type State struct {
	authenticated atomic.Bool
}

func NewState() *State {
	return &State{}
}

func (s *State) MarkAuthenticated() {
	s.authenticated.Store(true)
}

func (s *State) IsAuthenticated() bool {
	return s.authenticated.Load()
}
