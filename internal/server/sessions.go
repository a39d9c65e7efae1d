package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	membershipdomain "github.com/smallbiznis/estateloyalty/internal/membership/domain"
)

type startSessionRequest struct {
	CustomerID string `json:"customer_id"`
}

// StartSession is called by the app shell right after its own login succeeds.
func (s *Server) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.membershipSvc.StartSession(c.Request.Context(), membershipdomain.StartSessionRequest{
		CustomerID: strings.TrimSpace(req.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("tier", resp.Tier.String())
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) EndSession(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.membershipSvc.EndSession(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetMembership(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.membershipSvc.Snapshot(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("tier", resp.Tier.String())
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RefreshMembership(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.membershipSvc.Refresh(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("tier", resp.Tier.String())
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
