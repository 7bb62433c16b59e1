package flow

// Screen identifies the single full-screen view a UI should render.
// Exactly one screen is visible at a time; switching screens never tears
// down the poller.
type Screen string

const (
	ScreenWaiting        Screen = "WAITING"
	ScreenConfirm        Screen = "CONFIRM"
	ScreenMeetingPoint   Screen = "MEETING_POINT"
	ScreenCheckIn        Screen = "CHECK_IN"
	ScreenNoShowReport   Screen = "NO_SHOW_REPORT"
	ScreenNetworking     Screen = "NETWORKING"
	ScreenContactSharing Screen = "CONTACT_SHARING"
	ScreenCompleted      Screen = "COMPLETED"
	ScreenNoMatch        Screen = "NO_MATCH"
	ScreenUnconfirmed    Screen = "UNCONFIRMED"
	ScreenError          Screen = "ERROR"
)

// ViewState carries the local, participant-scoped inputs the router needs on
// top of the phase. Navigation intent is explicit here rather than hidden in
// ambient storage flags.
type ViewState struct {
	// Confirmed mirrors the optimistic confirm: the button disappears
	// immediately, the countdown keeps running.
	Confirmed bool
	// CheckedIn is true once this participant has submitted a partner code.
	CheckedIn bool
	// ReportingNoShow is the explicit navigation intent into the report form.
	ReportingNoShow bool
	// PrefsSubmitted is true once contact-sharing preferences went out.
	PrefsSubmitted bool
	// Err is a screen-level error to surface; it wins over everything.
	Err error
}

// ScreenFor maps (phase, view state) to exactly one screen.
func ScreenFor(phase Phase, view ViewState) Screen {
	if view.Err != nil {
		return ScreenError
	}

	switch phase {
	case PhaseBeforeConfirmation, PhaseWaitingForMatch, PhaseWaitingForBackend:
		return ScreenWaiting
	case PhaseConfirmationWindow:
		if view.Confirmed {
			return ScreenWaiting
		}
		return ScreenConfirm
	case PhaseWalkingToMeeting:
		if view.ReportingNoShow {
			return ScreenNoShowReport
		}
		if view.CheckedIn {
			return ScreenCheckIn
		}
		return ScreenMeetingPoint
	case PhaseNetworking:
		if view.ReportingNoShow {
			return ScreenNoShowReport
		}
		return ScreenNetworking
	case PhaseCompleted:
		if !view.PrefsSubmitted {
			return ScreenContactSharing
		}
		return ScreenCompleted
	case PhaseNoMatch:
		return ScreenNoMatch
	case PhaseUnconfirmed:
		return ScreenUnconfirmed
	case PhaseNoShow:
		// Flagged no-show: terminal, surfaced like an error with the
		// escape hatch back to the dashboard.
		return ScreenError
	}
	return ScreenError
}
