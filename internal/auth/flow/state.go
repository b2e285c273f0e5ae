package flow

import "fmt"

// State is a step of the login callback.
type State int

const (
	AwaitingCode State = iota
	ExchangingToken
	FetchingProfile
	PersistingSession
	Complete
	Failed
)

var stateNames = [...]string{
	AwaitingCode:      "AwaitingCode",
	ExchangingToken:   "ExchangingToken",
	FetchingProfile:   "FetchingProfile",
	PersistingSession: "PersistingSession",
	Complete:          "Complete",
	Failed:            "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Complete || s == Failed
}

// next lists the only successful transition out of each non-terminal state.
var next = map[State]State{
	AwaitingCode:      ExchangingToken,
	ExchangingToken:   FetchingProfile,
	FetchingProfile:   PersistingSession,
	PersistingSession: Complete,
}
