package handler

import (
	"fmt"
	"net/http"

	"KanariaGo/internal/model"
	"KanariaGo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ValidationHandler struct {
	service *service.ValidationService
}

func NewValidationHandler(service *service.ValidationService) *ValidationHandler {
	return &ValidationHandler{
		service: service,
	}
}

// Run runs a before/after comparison and returns the report.
// POST /kanaria/api/validate/v1/run
func (h *ValidationHandler) Run(c *gin.Context) {
	var req model.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Errorf("bind request error: %v", err)
		c.JSON(http.StatusOK, model.ValidateResponse{
			StatusCode: 400,
			StatusMsg:  fmt.Sprintf("invalid request: %v", err),
			Data:       nil,
		})
		return
	}

	logrus.Debugf("validate request: driver=%s, before=%s/%s, after=%s/%s, pk=%s",
		req.Driver, req.BeforePath, req.BeforeTable, req.AfterPath, req.AfterTable, req.PrimaryKey)

	response, err := h.service.Validate(&req)
	if err != nil {
		logrus.Errorf("validate error: %v", err)
		c.JSON(http.StatusOK, model.ValidateResponse{
			StatusCode: 500,
			StatusMsg:  fmt.Sprintf("validate error: %v", err),
			Data:       nil,
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// ProblemRows returns the offending rows from one side of the comparison.
// POST /kanaria/api/validate/v1/problem-rows
func (h *ValidationHandler) ProblemRows(c *gin.Context) {
	var req model.ProblemRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Errorf("bind request error: %v", err)
		c.JSON(http.StatusOK, model.ProblemRowsResponse{
			StatusCode: 400,
			StatusMsg:  fmt.Sprintf("invalid request: %v", err),
			Data:       nil,
		})
		return
	}

	logrus.Debugf("problem rows request: side=%d, full_row=%v, limit=%d",
		req.Side, req.FullRow, req.Limit)

	response, err := h.service.ProblemRows(&req)
	if err != nil {
		logrus.Errorf("problem rows error: %v", err)
		c.JSON(http.StatusOK, model.ProblemRowsResponse{
			StatusCode: 500,
			StatusMsg:  fmt.Sprintf("problem rows error: %v", err),
			Data:       nil,
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Stats reports cache statistics.
// GET /kanaria/api/validate/v1/stats
func (h *ValidationHandler) Stats(c *gin.Context) {
	cacheStats := h.service.GetCacheStats()

	c.JSON(http.StatusOK, gin.H{
		"status_code": 0,
		"status_msg":  "success",
		"data": gin.H{
			"cache": cacheStats,
		},
	})
}

// ResetCacheStats zeroes the cache hit/miss counters.
// POST /kanaria/api/validate/v1/cache/reset
func (h *ValidationHandler) ResetCacheStats(c *gin.Context) {
	h.service.ResetCacheStats()
	c.JSON(http.StatusOK, gin.H{
		"status_code": 0,
		"status_msg":  "cache stats reset successfully",
	})
}
