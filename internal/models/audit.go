package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies the kind of action recorded against a participant.
type AuditAction string

const (
	AuditActionRegistered      AuditAction = "REGISTERED"
	AuditActionConfirmed       AuditAction = "CONFIRMED"
	AuditActionStatusChanged   AuditAction = "STATUS_CHANGED"
	AuditActionMatched         AuditAction = "MATCHED"
	AuditActionCheckedIn       AuditAction = "CHECKED_IN"
	AuditActionNoShowReported  AuditAction = "NO_SHOW_REPORTED"
	AuditActionContactsShared  AuditAction = "CONTACTS_SHARED"
	AuditActionRematched       AuditAction = "REMATCHED"
)

// AuditEntry is an append-only record of an action taken against a
// participant. Consumed only by admin display, never by flow logic.
type AuditEntry struct {
	ID            uuid.UUID   `json:"id"`
	RoundID       uuid.UUID   `json:"round_id"`
	ParticipantID uuid.UUID   `json:"participant_id"`
	Action        AuditAction `json:"action"`
	Detail        string      `json:"detail,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
