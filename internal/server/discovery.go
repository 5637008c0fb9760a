package server

import (
	"errors"
	"net/http"

	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/workflow"

	"github.com/gin-gonic/gin"
)

var errNoDiscovery = errors.New("discovery is not configured on this server")

// BatchRequest lists companies explicitly, or asks for every approved target.
type BatchRequest struct {
	Requests []workflow.Request `json:"requests"`
	Approved bool               `json:"approved"`
}

func (s *Server) runDiscovery(c *gin.Context) {
	if s.Discovery == nil {
		abort(c, http.StatusServiceUnavailable, "not_configured", errNoDiscovery.Error())
		return
	}
	var req workflow.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.TargetID == "" && req.Handle == "" {
		badRequest(c, workflow.ErrNoHandle)
		return
	}

	res, err := s.Discovery.Run(c.Request.Context(), req)
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			s.Log.Errorf("❌ discovery for %s%s failed: %v", req.TargetID, req.Handle, err)
		}
		// Whatever was persisted before the failure is still reported.
		c.JSON(status, gin.H{"error": code, "message": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) runBatch(c *gin.Context) {
	if s.Discovery == nil {
		abort(c, http.StatusServiceUnavailable, "not_configured", errNoDiscovery.Error())
		return
	}
	var body BatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	reqs := body.Requests
	if len(reqs) == 0 && body.Approved {
		targets, err := s.Store.ListTargetsByStatus(ctx, models.TargetApproved)
		if err != nil {
			s.fail(c, err)
			return
		}
		for _, t := range targets {
			reqs = append(reqs, workflow.Request{TargetID: t.ID})
		}
	}
	if len(reqs) == 0 {
		badRequest(c, errors.New("no companies to research"))
		return
	}

	items, err := s.Discovery.RunBatch(ctx, reqs)
	if err != nil {
		status, code := classify(err)
		c.JSON(status, gin.H{"error": code, "message": err.Error(), "items": items})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) enrichTarget(c *gin.Context) {
	if s.Discovery == nil {
		abort(c, http.StatusServiceUnavailable, "not_configured", errNoDiscovery.Error())
		return
	}
	res, err := s.Discovery.Enrich(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
