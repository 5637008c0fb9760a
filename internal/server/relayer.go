package server

import (
	"errors"
	"net/http"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/models"

	"github.com/gin-gonic/gin"
)

// approvedPending claims the employee's approved drafts. A claim older than ClaimTTL
// means the relayer died mid-send, so the draft is handed out again.
func (s *Server) approvedPending(c *gin.Context) {
	now := s.now()
	sends, err := s.Store.ClaimPendingSends(c.Request.Context(), employeeID(c), now, now.Add(-s.cfg.ClaimTTL), s.cfg.ClaimLimit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if sends == nil {
		sends = []models.PendingSend{}
	}
	c.JSON(http.StatusOK, sends)
}

func (s *Server) captureRequests(c *gin.Context) {
	now := s.now()
	reqs, err := s.Store.ClaimCaptureRequests(c.Request.Context(), employeeID(c), now, now.Add(-s.cfg.ClaimTTL), s.cfg.ClaimLimit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if reqs == nil {
		reqs = []models.CaptureRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

func (s *Server) authRequests(c *gin.Context) {
	now := s.now()
	reqs, err := s.Store.ClaimAuthRequests(c.Request.Context(), employeeID(c), now, now.Add(-s.cfg.ClaimTTL), s.cfg.ClaimLimit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if reqs == nil {
		reqs = []models.AuthRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

func (s *Server) markPrepared(c *gin.Context) {
	d, err := s.Drafts.MarkPrepared(c.Request.Context(), c.Param("id"), employeeID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) markFailed(c *gin.Context) {
	var body models.FailureReport
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	d, err := s.Drafts.MarkFailed(c.Request.Context(), c.Param("id"), employeeID(c), body.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// captureComplete stores a conversation transcript. A relayer may upload a screenshot
// instead, which is transcribed here.
func (s *Server) captureComplete(c *gin.Context) {
	var res models.CaptureResult
	if err := c.ShouldBindJSON(&res); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if res.Error == "" && res.Transcript == "" && len(res.Screenshot) > 0 {
		if s.Transcriber == nil {
			res.Error = "no vision model configured to read the screenshot"
		} else if text, err := s.Transcriber.ExtractConversation(ctx, res.Screenshot); err != nil {
			res.Error = "transcription failed: " + err.Error()
		} else {
			res.Transcript = text
		}
	}
	res.Screenshot = nil

	if err := s.Store.CompleteCaptureRequest(ctx, c.Param("id"), employeeID(c), res, s.now()); err != nil {
		s.fail(c, err)
		return
	}
	status := models.WorkCompleted
	if res.Error != "" {
		status = models.WorkFailed
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": status, "transcript": res.Transcript, "error": res.Error})
}

// authComplete persists the uploaded X session to the cookie file and the live browser.
func (s *Server) authComplete(c *gin.Context) {
	var res models.AuthResult
	if err := c.ShouldBindJSON(&res); err != nil {
		badRequest(c, err)
		return
	}
	if res.Error == "" && len(res.Cookies) == 0 {
		res.Error = "login finished without cookies"
	}
	if res.Error == "" {
		if err := s.storeCookies(res.Cookies); err != nil {
			res.Error = err.Error()
		}
	}

	if err := s.Store.CompleteAuthRequest(c.Request.Context(), c.Param("id"), employeeID(c), res.Error, s.now()); err != nil {
		s.fail(c, err)
		return
	}
	status := models.WorkCompleted
	if res.Error != "" {
		status = models.WorkFailed
	} else {
		s.Log.Infof("🔐 X session refreshed by %s (%d cookies)", employeeID(c), len(res.Cookies))
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": status, "error": res.Error})
}

func (s *Server) storeCookies(cookies []models.Cookie) error {
	var errs []error
	if s.cfg.CookiesPath != "" {
		errs = append(errs, browser.SaveCookies(s.cfg.CookiesPath, cookies))
	}
	if s.Cookies != nil {
		errs = append(errs, s.Cookies.AddCookies(cookies))
	}
	return errors.Join(errs...)
}
