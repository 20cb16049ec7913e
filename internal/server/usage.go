package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	quotadomain "github.com/brushworks/repaintly/internal/quota/domain"
	"github.com/gin-gonic/gin"
)

type IncrementGenerationCountRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

// CheckGenerationLimit is the advisory pre-flight read the UI calls before
// starting a generation. Admission itself happens in
// IncrementGenerationCount.
func (s *Server) CheckGenerationLimit(c *gin.Context) {
	subjectID, err := parseSubjectID(c.Query("subscription_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status, err := s.quotasvc.CheckQuota(c.Request.Context(), subjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !status.CanProceed {
		c.JSON(http.StatusForbidden, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) IncrementGenerationCount(c *gin.Context) {
	var req IncrementGenerationCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	subjectID, err := parseSubjectID(req.SubscriptionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	receipt, err := s.quotasvc.RecordUsage(c.Request.Context(), subjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"newCount":  receipt.NewCount,
		"remaining": receipt.Remaining,
	})
}

func parseSubjectID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, newValidationError("subscription_id", "invalid_subscription_id", "subscription_id is required")
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, quotadomain.ErrInvalidSubject
	}
	return id, nil
}
