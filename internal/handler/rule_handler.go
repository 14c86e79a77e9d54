package handler

import (
	"net/http"
	"time"

	"taxengine/internal/apperror"
	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/pagination"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
)

type RuleHandler struct {
	ruleService service.RuleService
}

func NewRuleHandler(ruleService service.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

func (h *RuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/deadline-rules")
	{
		rules.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListRules)
		rules.GET("/active", middleware.RequireRole("admin", "manager", "staff"), h.ListActiveRules)
		rules.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetRule)
		rules.POST("", middleware.RequireRole("admin", "manager"), h.CreateRule)
		rules.PUT("/:id", middleware.RequireRole("admin", "manager"), h.UpdateRule)
		rules.POST("/:id/activate", middleware.RequireRole("admin", "manager"), h.ActivateRule)
		rules.POST("/:id/deactivate", middleware.RequireRole("admin", "manager"), h.DeactivateRule)
		rules.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteRule)
	}
}

// CreateRule creates a new deadline rule
// @Summary      Create deadline rule
// @Description  Creates a deadline rule for a tax obligation type; days_from_trigger must meet the statutory minimum
// @Tags         deadline-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        rule  body      service.CreateRuleRequest  true  "Rule definition"
// @Success      201   {object}  response.Response{data=service.RuleResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/deadline-rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req service.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), req, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateRule replaces a rule's configuration, guarded by its version
// @Summary      Update deadline rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "Rule ID"
// @Param        rule  body      service.UpdateRuleRequest  true  "Rule definition with the version last read"
// @Success      200   {object}  response.Response{data=service.RuleResponse}
// @Failure      409   {object}  response.Response
// @Router       /api/deadline-rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var req service.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// ActivateRule flips a rule to active
// @Summary      Activate deadline rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Rule ID"
// @Success      200 {object} response.Response{data=service.RuleResponse}
// @Router       /api/deadline-rules/{id}/activate [post]
func (h *RuleHandler) ActivateRule(c *gin.Context) {
	rule, err := h.ruleService.ActivateRule(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeactivateRule flips a rule to inactive
// @Summary      Deactivate deadline rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Rule ID"
// @Success      200 {object} response.Response{data=service.RuleResponse}
// @Router       /api/deadline-rules/{id}/deactivate [post]
func (h *RuleHandler) DeactivateRule(c *gin.Context) {
	rule, err := h.ruleService.DeactivateRule(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteRule removes a rule that is not referenced by audit history
// @Summary      Delete deadline rule
// @Description  Fails with CONFLICT_ERROR while any audit entry references the rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Rule ID"
// @Success      200 {object} response.Response
// @Failure      409 {object} response.Response
// @Router       /api/deadline-rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	if err := h.ruleService.DeleteRule(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// GetRule returns a single rule by id
func (h *RuleHandler) GetRule(c *gin.Context) {
	rule, err := h.ruleService.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// ListRules returns all rules, paginated
func (h *RuleHandler) ListRules(c *gin.Context) {
	params := pagination.Parse(c)

	rules, total, err := h.ruleService.ListRules(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"rules": rules,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// ListActiveRules returns active rules for an obligation type as of a date
// @Summary      List active deadline rules
// @Tags         deadline-rules
// @Security     BearerAuth
// @Produce      json
// @Param        tax_obligation_type  query  string  true   "Obligation type (GST, PAYE, INCOME_TAX, FBT, WITHHOLDING)"
// @Param        as_of                query  string  false  "Date (YYYY-MM-DD), defaults to today"
// @Success      200 {object} response.Response{data=[]service.RuleResponse}
// @Router       /api/deadline-rules/active [get]
func (h *RuleHandler) ListActiveRules(c *gin.Context) {
	obligationType := c.Query("tax_obligation_type")
	if obligationType == "" {
		respondError(c, apperror.Validation("tax_obligation_type is required"))
		return
	}

	asOf := time.Now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(c, apperror.Validation("invalid as_of date format (expected YYYY-MM-DD)"))
			return
		}
		asOf = parsed
	}

	rules, err := h.ruleService.ListActiveRules(c.Request.Context(), obligationType, asOf)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}
