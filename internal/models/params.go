package models

// SystemParams holds the tenant-wide window durations and thresholds.
// Read-only from the participant flow's perspective.
type SystemParams struct {
	ConfirmationWindowMin int `json:"confirmation_window_min" yaml:"confirmation_window_min"`
	WalkingTimeMin        int `json:"walking_time_min" yaml:"walking_time_min"`
	SafetyWindowMin       int `json:"safety_window_min" yaml:"safety_window_min"`
	NetworkingMin         int `json:"networking_min" yaml:"networking_min"`
	FireThreshold         int `json:"fire_threshold" yaml:"fire_threshold"`
	// MaxParticipants caps registrations per round. Zero means unlimited.
	MaxParticipants int `json:"max_participants" yaml:"max_participants"`
}

// DefaultSystemParams returns the stock window configuration.
func DefaultSystemParams() SystemParams {
	return SystemParams{
		ConfirmationWindowMin: 5,
		WalkingTimeMin:        3,
		SafetyWindowMin:       2,
		NetworkingMin:         8,
		FireThreshold:         20,
		MaxParticipants:       200,
	}
}

// Resolve applies per-round overrides on top of the system defaults.
func (p SystemParams) Resolve(override *RoundParams) SystemParams {
	if override == nil {
		return p
	}
	out := p
	if override.ConfirmationWindowMin != nil {
		out.ConfirmationWindowMin = *override.ConfirmationWindowMin
	}
	if override.WalkingTimeMin != nil {
		out.WalkingTimeMin = *override.WalkingTimeMin
	}
	if override.SafetyWindowMin != nil {
		out.SafetyWindowMin = *override.SafetyWindowMin
	}
	if override.NetworkingMin != nil {
		out.NetworkingMin = *override.NetworkingMin
	}
	if override.MaxParticipants != nil {
		out.MaxParticipants = *override.MaxParticipants
	}
	return out
}
