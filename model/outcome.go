package model

// State is where a message ended up in the relay pipeline
type State int

// Message states, in pipeline order
const (
	StateReceived State = iota
	StateFiltered
	StateDetecting
	StateTranslating
	StateDispatched
	StateErrored
)

var stateNames = map[State]string{
	StateReceived:    "received",
	StateFiltered:    "filtered",
	StateDetecting:   "detecting",
	StateTranslating: "translating",
	StateDispatched:  "dispatched",
	StateErrored:     "errored",
}

// String returns a lowercase name of the state
func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return "unknown"
	}
	return name
}

// Outcome is the result of handling a single inbound message
type Outcome struct {
	State State
	// Route is the name of the matched route, empty if none matched
	Route string
	// Reason explains a filter decision
	Reason string
	Source string
	Target string
	// Output is the rendered message sent to DestinationChannelID
	Output               string
	DestinationChannelID string
	Err                  error
}
