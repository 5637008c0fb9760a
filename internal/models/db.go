package models

import (
	"errors"
	"fmt"
	"time"
)

type TargetStatus string

const (
	TargetPending   TargetStatus = "pending"
	TargetApproved  TargetStatus = "approved"
	TargetDismissed TargetStatus = "dismissed"
)

var ErrInvalidTargetTransition = errors.New("invalid target transition")

// CheckTargetTransition allows pending -> approved and pending -> dismissed. Setting the
// current status again is a no-op.
func CheckTargetTransition(from, to TargetStatus) error {
	if from == to || (from == TargetPending && (to == TargetApproved || to == TargetDismissed)) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTargetTransition, from, to)
}

// ContactSource records where a contact came from. It also orders de-duplication:
// apollo data wins over web_search data for the same person.
type ContactSource string

const (
	SourceApollo     ContactSource = "apollo"
	SourceWebSearch  ContactSource = "web_search"
	SourceXDiscovery ContactSource = "x_discovery"
	SourceManual     ContactSource = "manual"
)

// TelegramValidation is the stored outcome of checking a contact's Telegram handle.
type TelegramValidation string

const (
	TelegramValid   TelegramValidation = "valid"
	TelegramInvalid TelegramValidation = "invalid"
	TelegramUnknown TelegramValidation = "unknown"
)

type Target struct {
	ID                string       `json:"id"`
	TeamName          string       `json:"team_name"`
	RaisedUSD         *float64     `json:"raised_usd,omitempty"`
	MonthlyRevenueUSD *float64     `json:"monthly_revenue_usd,omitempty"`
	IsWeb3            bool         `json:"is_web3"`
	XHandle           string       `json:"x_handle"`
	Website           string       `json:"website"`
	Notes             string       `json:"notes"`
	Status            TargetStatus `json:"status"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

type Contact struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Company           string             `json:"company"`
	Title             string             `json:"title"`
	TelegramHandle    *string            `json:"telegram_handle,omitempty"` // nil when no reachable channel
	XUsername         string             `json:"x_username"`
	XBio              string             `json:"x_bio"`
	Source            ContactSource      `json:"source"`
	TelegramValidated TelegramValidation `json:"telegram_validated"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Handle returns the Telegram handle or an empty string.
func (c Contact) Handle() string {
	if c.TelegramHandle == nil {
		return ""
	}
	return *c.TelegramHandle
}
