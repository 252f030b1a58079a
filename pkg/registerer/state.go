package registerer

// State is a step of the registration state machine
type State int

const (
	StateIdle State = iota
	StateCheckConnectivity
	StatePollAvailability
	StateLogin
	StateTraverse
	StateAttemptRegister
	StateHandleError
	StateSuccess
	StateFatal
)

var stateNames = []string{
	StateIdle:              "Idle",
	StateCheckConnectivity: "CheckConnectivity",
	StatePollAvailability:  "PollAvailability",
	StateLogin:             "Login",
	StateTraverse:          "Traverse",
	StateAttemptRegister:   "AttemptRegister",
	StateHandleError:       "HandleError",
	StateSuccess:           "Success",
	StateFatal:             "Fatal",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the machine stops in s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFatal
}
