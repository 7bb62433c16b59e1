package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreenFor(t *testing.T) {
	tests := []struct {
		name  string
		phase Phase
		view  ViewState
		want  Screen
	}{
		{"before window", PhaseBeforeConfirmation, ViewState{}, ScreenWaiting},
		{"window, not confirmed", PhaseConfirmationWindow, ViewState{}, ScreenConfirm},
		{"window, confirmed hides the button immediately", PhaseConfirmationWindow, ViewState{Confirmed: true}, ScreenWaiting},
		{"waiting for match", PhaseWaitingForMatch, ViewState{}, ScreenWaiting},
		{"waiting for backend looks like waiting", PhaseWaitingForBackend, ViewState{}, ScreenWaiting},
		{"walking shows meeting point", PhaseWalkingToMeeting, ViewState{}, ScreenMeetingPoint},
		{"walking after own check-in shows exchange screen", PhaseWalkingToMeeting, ViewState{CheckedIn: true}, ScreenCheckIn},
		{"walking with report intent", PhaseWalkingToMeeting, ViewState{ReportingNoShow: true}, ScreenNoShowReport},
		{"networking", PhaseNetworking, ViewState{}, ScreenNetworking},
		{"networking with report intent", PhaseNetworking, ViewState{ReportingNoShow: true}, ScreenNoShowReport},
		{"completed prompts contact sharing first", PhaseCompleted, ViewState{}, ScreenContactSharing},
		{"completed after prefs", PhaseCompleted, ViewState{PrefsSubmitted: true}, ScreenCompleted},
		{"no match", PhaseNoMatch, ViewState{}, ScreenNoMatch},
		{"unconfirmed", PhaseUnconfirmed, ViewState{}, ScreenUnconfirmed},
		{"error wins over phase", PhaseNetworking, ViewState{Err: errors.New("boom")}, ScreenError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScreenFor(tt.phase, tt.view))
		})
	}
}
