package checkout

type State string

const (
	StateAddressReview State = "ADDRESS_REVIEW"
	StateOrderReview   State = "ORDER_REVIEW"
	StateSubmitting    State = "SUBMITTING"
	StateCompleted     State = "COMPLETED"
	StateFailed        State = "FAILED"
)

var transitions = map[State][]State{
	StateAddressReview: {StateOrderReview},
	StateOrderReview:   {StateAddressReview, StateSubmitting},
	StateSubmitting:    {StateCompleted, StateFailed},
	StateFailed:        {StateOrderReview},
}

func CanTransitionTo(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s State) IsTerminal() bool {
	return s == StateCompleted
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}
