package delegation

// Phase is a step of the delegation state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseNetworkSwitch
	PhaseApprove
	PhaseDelegate
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseNetworkSwitch:
		return "network_switch"
	case PhaseApprove:
		return "approve"
	case PhaseDelegate:
		return "delegate"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}
