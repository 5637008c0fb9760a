package browser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProfileInUse means Chromium refused the profile directory because another
	// process (usually a crashed one) still holds its lock.
	ErrProfileInUse = errors.New("browser profile in use")

	ErrExecutableNotFound = errors.New("no usable browser executable found")

	ErrClosed = errors.New("browser manager closed")
)

// LaunchError is returned once the manager has given up launching a browser.
type LaunchError struct {
	Attempts   int
	Cloud      bool
	PathsTried []string
	Err        error
}

func (e *LaunchError) Error() string {
	mode := "local"
	if e.Cloud {
		mode = "cloud"
	}
	msg := fmt.Sprintf("browser launch failed after %d attempt(s) (%s mode): %v", e.Attempts, mode, e.Err)
	if len(e.PathsTried) > 0 {
		msg += "; paths tried: " + strings.Join(e.PathsTried, ", ")
	}
	return msg
}

func (e *LaunchError) Unwrap() error { return e.Err }
