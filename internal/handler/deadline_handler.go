package handler

import (
	"net/http"
	"time"

	"taxengine/internal/apperror"
	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeadlineHandler struct {
	deadlineService service.DeadlineService
}

func NewDeadlineHandler(deadlineService service.DeadlineService) *DeadlineHandler {
	return &DeadlineHandler{deadlineService: deadlineService}
}

func (h *DeadlineHandler) RegisterRoutes(router *gin.RouterGroup) {
	deadlines := router.Group("/api/deadlines")
	deadlines.Use(middleware.RequireRole("admin", "manager", "staff"))
	{
		deadlines.GET("/calculate", h.CalculateDeadline)
	}
}

// CalculateDeadline derives the filing deadline for an obligation and trigger date
// @Summary      Calculate deadline
// @Description  Applies the selected rule, any client extension, weekend/holiday shifting, and the statutory floor
// @Tags         deadlines
// @Security     BearerAuth
// @Produce      json
// @Param        tax_obligation_type  query  string  true   "Obligation type (GST, PAYE, INCOME_TAX, FBT, WITHHOLDING)"
// @Param        trigger_date         query  string  true   "Trigger date (YYYY-MM-DD)"
// @Param        client_id            query  string  false  "Client ID for extension lookup"
// @Success      200  {object}  response.Response{data=service.CalculateDeadlineResult}
// @Failure      422  {object}  response.Response
// @Router       /api/deadlines/calculate [get]
func (h *DeadlineHandler) CalculateDeadline(c *gin.Context) {
	obligationType := c.Query("tax_obligation_type")
	if obligationType == "" {
		respondError(c, apperror.Validation("tax_obligation_type is required"))
		return
	}

	triggerDate, err := time.Parse("2006-01-02", c.Query("trigger_date"))
	if err != nil {
		respondError(c, apperror.Validation("invalid trigger_date format (expected YYYY-MM-DD)"))
		return
	}

	var clientID *uuid.UUID
	if raw := c.Query("client_id"); raw != "" {
		parsed, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			respondError(c, apperror.Validation("invalid client_id: %s", raw))
			return
		}
		clientID = &parsed
	}

	result, err := h.deadlineService.CalculateDeadline(c.Request.Context(), obligationType, triggerDate, clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
