package handler

import (
	"net/http"
	"strconv"
	"time"

	"taxengine/internal/apperror"
	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/pagination"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExtensionHandler struct {
	extensionService service.ExtensionService
}

func NewExtensionHandler(extensionService service.ExtensionService) *ExtensionHandler {
	return &ExtensionHandler{extensionService: extensionService}
}

func (h *ExtensionHandler) RegisterRoutes(router *gin.RouterGroup) {
	extensions := router.Group("/api/extensions")
	{
		extensions.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListExtensions)
		extensions.GET("/active", middleware.RequireRole("admin", "manager", "staff"), h.GetActiveExtension)
		extensions.POST("", middleware.RequireRole("admin", "manager"), h.GrantExtension)
		extensions.POST("/:id/revoke", middleware.RequireRole("admin", "manager"), h.RevokeExtension)
	}
}

// GrantExtension grants a client extra days for one obligation type
// @Summary      Grant client extension
// @Tags         extensions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        extension  body      service.GrantExtensionRequest  true  "Extension grant"
// @Success      201        {object}  response.Response{data=service.ExtensionResponse}
// @Failure      400        {object}  response.Response
// @Router       /api/extensions [post]
func (h *ExtensionHandler) GrantExtension(c *gin.Context) {
	var req service.GrantExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ext, err := h.extensionService.GrantExtension(c.Request.Context(), req, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, ext))
}

// RevokeExtension revokes a granted extension; revoking twice is a no-op
// @Summary      Revoke client extension
// @Tags         extensions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Extension ID"
// @Success      200 {object} response.Response{data=service.ExtensionResponse}
// @Router       /api/extensions/{id}/revoke [post]
func (h *ExtensionHandler) RevokeExtension(c *gin.Context) {
	ext, err := h.extensionService.RevokeExtension(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, ext))
}

// GetActiveExtension returns the single extension applicable to a client
// @Summary      Get active extension
// @Tags         extensions
// @Security     BearerAuth
// @Produce      json
// @Param        client_id            query  string  true   "Client ID"
// @Param        tax_obligation_type  query  string  true   "Obligation type"
// @Param        tax_year             query  int     false  "Tax year; omit to match year-agnostic grants only"
// @Param        as_of                query  string  false  "Date (YYYY-MM-DD), defaults to today"
// @Success      200 {object} response.Response{data=service.ExtensionResponse}
// @Router       /api/extensions/active [get]
func (h *ExtensionHandler) GetActiveExtension(c *gin.Context) {
	clientID, err := uuid.Parse(c.Query("client_id"))
	if err != nil {
		respondError(c, apperror.Validation("invalid client_id: %s", c.Query("client_id")))
		return
	}

	obligationType := c.Query("tax_obligation_type")
	if obligationType == "" {
		respondError(c, apperror.Validation("tax_obligation_type is required"))
		return
	}

	var taxYear *int
	if raw := c.Query("tax_year"); raw != "" {
		year, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			respondError(c, apperror.Validation("invalid tax_year: %s", raw))
			return
		}
		taxYear = &year
	}

	asOf := time.Now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		parsed, parseErr := time.Parse("2006-01-02", raw)
		if parseErr != nil {
			respondError(c, apperror.Validation("invalid as_of date format (expected YYYY-MM-DD)"))
			return
		}
		asOf = parsed
	}

	ext, err := h.extensionService.GetActiveExtension(c.Request.Context(), clientID, obligationType, taxYear, asOf)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, ext))
}

// ListExtensions returns a client's extensions, paginated
func (h *ExtensionHandler) ListExtensions(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		respondError(c, apperror.Validation("client_id is required"))
		return
	}

	params := pagination.Parse(c)

	exts, total, err := h.extensionService.ListExtensions(c.Request.Context(), clientID, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"extensions": exts,
		"total":      total,
		"page":       params.Page,
		"limit":      params.Limit,
	}))
}
