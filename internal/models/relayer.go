package models

import "time"

type WorkStatus string

const (
	WorkPending   WorkStatus = "pending"
	WorkCompleted WorkStatus = "completed"
	WorkFailed    WorkStatus = "failed"
)

// PendingSend is an approved draft claimed by a relayer, joined with what the desktop
// needs to deliver it.
type PendingSend struct {
	Draft
	ContactName    string `json:"contact_name"`
	Company        string `json:"company"`
	TelegramHandle string `json:"telegram_handle"`
}

type CaptureRequest struct {
	ID             string     `json:"id"`
	EmployeeID     string     `json:"employee_id"`
	ContactID      string     `json:"contact_id"`
	TelegramHandle string     `json:"telegram_handle"`
	Status         WorkStatus `json:"status"`
	Transcript     string     `json:"transcript,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type AuthRequest struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	Platform     string     `json:"platform"`
	Status       WorkStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// CaptureResult is posted to capture-complete. A non-empty Error fails the request.
// A relayer without a vision model sends the screenshot and the server transcribes it.
type CaptureResult struct {
	Transcript string `json:"transcript,omitempty"`
	Screenshot []byte `json:"screenshot,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Cookie mirrors the browser cookie export format stored on disk.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// AuthResult is posted to x-auth-complete.
type AuthResult struct {
	Cookies []Cookie `json:"cookies,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// FailureReport is the body of mark-failed.
type FailureReport struct {
	Reason string `json:"reason"`
}
