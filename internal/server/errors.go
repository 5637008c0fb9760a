package server

import (
	"context"
	"errors"
	"net/http"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/drafts"
	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/scraper"
	"go-outreach-automation/internal/workflow"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: msg})
}

// classify maps an error to an HTTP status and a category code. The message is always
// the raw error text.
func classify(err error) (int, string) {
	if kind := scraper.KindOf(err); kind != "" {
		switch kind {
		case scraper.KindRateLimited:
			return http.StatusTooManyRequests, string(kind)
		case scraper.KindAuthExpired:
			return http.StatusServiceUnavailable, string(kind)
		default:
			return http.StatusBadGateway, string(kind)
		}
	}
	var le *browser.LaunchError
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrInvalidTargetTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, drafts.ErrNotEditable):
		return http.StatusConflict, "not_editable"
	case errors.Is(err, workflow.ErrNoHandle), errors.Is(err, drafts.ErrEmptyText):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, workflow.ErrNoApollo):
		return http.StatusServiceUnavailable, "not_configured"
	case errors.As(err, &le), errors.Is(err, browser.ErrExecutableNotFound), errors.Is(err, browser.ErrClosed):
		return http.StatusServiceUnavailable, "browser_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.Log.Errorf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	abort(c, status, code, err.Error())
}

func badRequest(c *gin.Context, err error) {
	abort(c, http.StatusBadRequest, "bad_request", err.Error())
}
