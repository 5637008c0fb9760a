package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go-outreach-automation/internal/filter"
	"go-outreach-automation/internal/models"

	"github.com/gin-gonic/gin"
)

type createTargetBody struct {
	TeamName          string   `json:"team_name" binding:"required"`
	XHandle           string   `json:"x_handle"`
	Website           string   `json:"website"`
	Notes             string   `json:"notes"`
	IsWeb3            bool     `json:"is_web3"`
	RaisedUSD         *float64 `json:"raised_usd"`
	MonthlyRevenueUSD *float64 `json:"monthly_revenue_usd"`
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

func validTargetStatus(s models.TargetStatus) bool {
	switch s {
	case models.TargetPending, models.TargetApproved, models.TargetDismissed:
		return true
	}
	return false
}

func (s *Server) listTargets(c *gin.Context) {
	status := models.TargetStatus(c.DefaultQuery("status", string(models.TargetApproved)))
	if !validTargetStatus(status) {
		badRequest(c, errors.New("unknown target status "+strconv.Quote(string(status))))
		return
	}
	targets, err := s.Store.ListTargetsByStatus(c.Request.Context(), status)
	if err != nil {
		s.fail(c, err)
		return
	}
	if targets == nil {
		targets = []models.Target{}
	}
	c.JSON(http.StatusOK, targets)
}

func (s *Server) createTarget(c *gin.Context) {
	var body createTargetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	now := s.now()
	t := &models.Target{
		TeamName:          strings.TrimSpace(body.TeamName),
		XHandle:           filter.NormalizeHandle(body.XHandle),
		Website:           strings.TrimSpace(body.Website),
		Notes:             body.Notes,
		IsWeb3:            body.IsWeb3,
		RaisedUSD:         body.RaisedUSD,
		MonthlyRevenueUSD: body.MonthlyRevenueUSD,
		Status:            models.TargetPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Store.CreateTarget(c.Request.Context(), t); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) getTarget(c *gin.Context) {
	t, err := s.Store.GetTarget(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) setTargetStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	status := models.TargetStatus(body.Status)
	if !validTargetStatus(status) {
		badRequest(c, errors.New("unknown target status "+strconv.Quote(body.Status)))
		return
	}
	ctx := c.Request.Context()
	t, err := s.Store.GetTarget(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := models.CheckTargetTransition(t.Status, status); err != nil {
		s.fail(c, err)
		return
	}
	if t.Status != status {
		now := s.now()
		if err := s.Store.UpdateTargetStatus(ctx, t.ID, status, now); err != nil {
			s.fail(c, err)
			return
		}
		t.Status = status
		t.UpdatedAt = now
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) targetContacts(c *gin.Context) {
	ctx := c.Request.Context()
	t, err := s.Store.GetTarget(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	contacts, err := s.Store.ListContactsByCompany(ctx, t.TeamName)
	if err != nil {
		s.fail(c, err)
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, contacts)
}

type captureBody struct {
	EmployeeID string `json:"employee_id" binding:"required"`
}

// requestCapture queues a conversation capture for the employee's relayer.
func (s *Server) requestCapture(c *gin.Context) {
	var body captureBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	contact, err := s.Store.GetContact(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if contact.Handle() == "" {
		abort(c, http.StatusConflict, "no_channel", "contact has no Telegram handle")
		return
	}
	r := &models.CaptureRequest{
		EmployeeID:     body.EmployeeID,
		ContactID:      contact.ID,
		TelegramHandle: contact.Handle(),
		Status:         models.WorkPending,
		CreatedAt:      s.now(),
	}
	if err := s.Store.CreateCaptureRequest(ctx, r); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

type authBody struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Platform   string `json:"platform"`
}

// requestAuth asks the employee's relayer to log in to X and upload the session.
func (s *Server) requestAuth(c *gin.Context) {
	var body authBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if body.Platform == "" {
		body.Platform = "x"
	}
	if body.Platform != "x" {
		badRequest(c, errors.New("only x logins are supported"))
		return
	}
	r := &models.AuthRequest{
		EmployeeID: body.EmployeeID,
		Platform:   body.Platform,
		Status:     models.WorkPending,
		CreatedAt:  s.now(),
	}
	if err := s.Store.CreateAuthRequest(c.Request.Context(), r); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

