package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/api/statistics")
	{
		stats.GET("", middleware.RequireRole(model.RoleAdmin), h.GetStatistics)
	}
}

// GetStatistics returns the admin dashboard aggregates
// @Summary      Dashboard statistics
// @Description  Loan and item counts, derived overdue count, fee totals and recent activity
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.StatisticsResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.statisticsService.GetStatistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve statistics: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
