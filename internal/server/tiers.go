package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListTiers(c *gin.Context) {
	resp, err := s.membershipSvc.ListTiers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) QuoteTier(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("total_spent"))
	if raw == "" {
		AbortWithError(c, newValidationError("total_spent", "required", "total_spent is required"))
		return
	}
	totalSpent, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(totalSpent) || math.IsInf(totalSpent, 0) {
		AbortWithError(c, newValidationError("total_spent", "invalid_total_spent", "total_spent must be a finite number"))
		return
	}

	resp, err := s.membershipSvc.Quote(c.Request.Context(), totalSpent)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("tier", resp.Tier.String())
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
