package types

// InquiryState is the lifecycle state of a single generated question.
type InquiryState string

// Inquiry state constants
const (
	InquiryActive             InquiryState = "active"              // Created, not yet presented
	InquiryAwaitingResponse   InquiryState = "awaiting_response"   // Presented to the learner
	InquiryFollowUp           InquiryState = "follow_up"           // A follow-up question is outstanding
	InquiryCompleted          InquiryState = "completed"           // Finished normally
	InquiryShutdownIncomplete InquiryState = "shutdown_incomplete" // Abandoned when the session ended
)

// ValidInquiryStates contains all valid inquiry state values
var ValidInquiryStates = []InquiryState{
	InquiryActive,
	InquiryAwaitingResponse,
	InquiryFollowUp,
	InquiryCompleted,
	InquiryShutdownIncomplete,
}

// IsValid reports whether s is a known inquiry state.
func (s InquiryState) IsValid() bool {
	for _, v := range ValidInquiryStates {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transitions leave s.
func (s InquiryState) IsTerminal() bool {
	return s == InquiryCompleted || s == InquiryShutdownIncomplete
}

// IsValidInquiryTransition validates transitions of the inquiry state machine.
//
// Valid transitions:
//
//	(empty) -> active
//	active -> awaiting_response | shutdown_incomplete
//	awaiting_response -> follow_up | completed | shutdown_incomplete
//	follow_up -> awaiting_response | shutdown_incomplete
//	completed, shutdown_incomplete -> (terminal)
func IsValidInquiryTransition(current, next InquiryState) bool {
	switch current {
	case "":
		return next == InquiryActive
	case InquiryActive:
		return next == InquiryAwaitingResponse || next == InquiryShutdownIncomplete
	case InquiryAwaitingResponse:
		return next == InquiryFollowUp || next == InquiryCompleted || next == InquiryShutdownIncomplete
	case InquiryFollowUp:
		return next == InquiryAwaitingResponse || next == InquiryShutdownIncomplete
	default:
		return false
	}
}
