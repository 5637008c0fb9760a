package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/models"

	"github.com/gin-gonic/gin"
)

type editBody struct {
	MessageText string `json:"message_text" binding:"required"`
}

func (s *Server) listDrafts(c *gin.Context) {
	f := database.DraftFilter{
		Status:     models.DraftStatus(c.Query("status")),
		EmployeeID: c.Query("employee_id"),
		ContactID:  c.Query("contact_id"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, fmt.Errorf("invalid limit %q", v))
			return
		}
		f.Limit = n
	}
	list, err := s.Drafts.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []models.Draft{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getDraft(c *gin.Context) {
	d, err := s.Drafts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) editDraft(c *gin.Context) {
	var body editBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	d, err := s.Drafts.Edit(c.Request.Context(), c.Param("id"), body.MessageText)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) approveDraft(c *gin.Context) {
	s.draftAction(c, http.StatusOK, s.Drafts.Approve)
}

func (s *Server) skipDraft(c *gin.Context) {
	s.draftAction(c, http.StatusOK, s.Drafts.Skip)
}

func (s *Server) regenerateDraft(c *gin.Context) {
	s.draftAction(c, http.StatusOK, s.Drafts.Regenerate)
}

// followUpDraft answers with the new queued draft.
func (s *Server) followUpDraft(c *gin.Context) {
	s.draftAction(c, http.StatusCreated, s.Drafts.CreateFollowUp)
}

func (s *Server) draftAction(c *gin.Context, status int, fn func(ctx context.Context, id string) (*models.Draft, error)) {
	d, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(status, d)
}
