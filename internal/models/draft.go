package models

import (
	"errors"
	"fmt"
	"time"
)

type DraftStatus string

const (
	DraftQueued   DraftStatus = "queued"
	DraftApproved DraftStatus = "approved"
	DraftSent     DraftStatus = "sent"
	DraftSkipped  DraftStatus = "skipped"
	DraftFollowUp DraftStatus = "followup"
)

var ErrInvalidTransition = errors.New("invalid draft transition")

// allowed lists every legal status change. approved -> approved is the relayer retry
// loop (prepared_at cleared). Nothing leaves skipped or followup.
var allowed = map[DraftStatus][]DraftStatus{
	DraftQueued:   {DraftApproved, DraftSkipped},
	DraftApproved: {DraftApproved, DraftSent, DraftSkipped},
	DraftSent:     {DraftFollowUp},
}

type Draft struct {
	ID          string      `json:"id"`
	ContactID   string      `json:"contact_id"`
	EmployeeID  string      `json:"employee_id"`
	MessageText string      `json:"message_text"`
	Status      DraftStatus `json:"status"`
	FollowUpOf  *string     `json:"follow_up_of,omitempty"`
	PreparedAt  *time.Time  `json:"prepared_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CanTransition reports whether from -> to is a legal change.
func CanTransition(from, to DraftStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the draft to status to. Moving (back) to approved clears the claim
// marker so a relayer can pick the draft up again.
func (d *Draft) Transition(to DraftStatus, now time.Time) error {
	if !CanTransition(d.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}
	if to == DraftApproved {
		d.PreparedAt = nil
	}
	d.Status = to
	d.UpdatedAt = now
	return nil
}

// CanEdit reports whether message_text may still be rewritten.
func (d *Draft) CanEdit() bool {
	return d.Status == DraftQueued || d.Status == DraftApproved
}

// Claimed reports whether a relayer currently holds the draft.
func (d *Draft) Claimed() bool {
	return d.Status == DraftApproved && d.PreparedAt != nil
}
