package handler

import (
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	activities := router.Group("/api/activities")
	{
		activities.GET("", middleware.RequireRole(model.RoleAdmin), h.ListActivities)
	}
}

// ListActivities returns the activity history (admin only)
// @Summary      List activities
// @Description  Paginated activity history, filterable by entity type and action
// @Tags         activities
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20)"
// @Param        entity_type  query  string  false  "Filter by entity type"
// @Param        action       query  string  false  "Filter by action"
// @Param        user_id      query  int     false  "Filter by acting user"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/activities [get]
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)

	filter := repository.ActivityFilter{
		EntityType: c.Query("entity_type"),
		Action:     c.Query("action"),
		UserID:     uint(userID),
		Page:       page,
		Limit:      limit,
	}

	logs, total, err := h.activityService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve activities: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"activities": logs,
		"total":      total,
		"page":       page,
		"limit":      limit,
	}))
}
