package handler

import (
	"net/http"

	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/pagination"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole("admin", "manager")) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs lists configuration-change history, newest first
// @Summary      Get audit logs
// @Description  Lists the append-only configuration change history, optionally filtered by entity
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_type  query  string  false  "DEADLINE_RULE, PUBLIC_HOLIDAY or CLIENT_EXTENSION"
// @Param        entity_id    query  string  false  "Entity ID"
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(
		c.Request.Context(),
		c.Query("entity_type"),
		c.Query("entity_id"),
		params.Page,
		params.Limit,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve audit logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}
