package enrollment

type State int

const (
	StateIdle State = iota
	StateValidating
	StateAwaitingLeadSave
	StateAwaitingIntent
	StateConfirming
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAwaitingLeadSave:
		return "awaiting_lead_save"
	case StateAwaitingIntent:
		return "awaiting_intent"
	case StateConfirming:
		return "confirming"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether an operation is in flight and the submit control is disabled.
func (s State) Busy() bool {
	switch s {
	case StateValidating, StateAwaitingLeadSave, StateAwaitingIntent, StateConfirming:
		return true
	default:
		return false
	}
}
