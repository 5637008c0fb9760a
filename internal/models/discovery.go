package models

import "time"

// CandidateProfile is a username found during bio search. It is not persisted until it
// becomes a Contact.
type CandidateProfile struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	ProfileURL  string `json:"profile_url"`
}

type Outcome string

const (
	OutcomeValid         Outcome = "valid"
	OutcomeInvalid       Outcome = "invalid"
	OutcomeIndeterminate Outcome = "indeterminate"
)

// ValidationResult is produced once per username per validation call. ValidationFailed
// means the check itself broke (timeout, navigation error); it says nothing about the
// profile.
type ValidationResult struct {
	Username         string    `json:"username"`
	Valid            bool      `json:"valid"`
	ValidationFailed bool      `json:"validation_failed"`
	CheckedAt        time.Time `json:"checked_at"`
	Details          string    `json:"details,omitempty"`
	Error            string    `json:"error,omitempty"`
}

func (r ValidationResult) Outcome() Outcome {
	switch {
	case r.ValidationFailed:
		return OutcomeIndeterminate
	case r.Valid:
		return OutcomeValid
	default:
		return OutcomeInvalid
	}
}
