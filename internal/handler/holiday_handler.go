package handler

import (
	"net/http"
	"strconv"

	"taxengine/internal/apperror"
	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/pagination"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
)

type HolidayHandler struct {
	holidayService service.HolidayService
}

func NewHolidayHandler(holidayService service.HolidayService) *HolidayHandler {
	return &HolidayHandler{holidayService: holidayService}
}

func (h *HolidayHandler) RegisterRoutes(router *gin.RouterGroup) {
	holidays := router.Group("/api/holidays")
	{
		holidays.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListHolidays)
		holidays.GET("/year/:year", middleware.RequireRole("admin", "manager", "staff"), h.GetHolidays)
		holidays.POST("", middleware.RequireRole("admin", "manager"), h.AddHoliday)
		holidays.DELETE("/:id", middleware.RequireRole("admin", "manager"), h.RemoveHoliday)
	}
}

// AddHoliday registers a one-time or recurring public holiday
// @Summary      Add public holiday
// @Tags         holidays
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        holiday  body      service.AddHolidayRequest  true  "Holiday definition"
// @Success      201      {object}  response.Response{data=service.HolidayResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/holidays [post]
func (h *HolidayHandler) AddHoliday(c *gin.Context) {
	var req service.AddHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	holiday, err := h.holidayService.AddHoliday(c.Request.Context(), req, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, holiday))
}

// RemoveHoliday deletes a holiday from the calendar
// @Summary      Remove public holiday
// @Tags         holidays
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Holiday ID"
// @Success      200 {object} response.Response
// @Router       /api/holidays/{id} [delete]
func (h *HolidayHandler) RemoveHoliday(c *gin.Context) {
	if err := h.holidayService.RemoveHoliday(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// GetHolidays expands the calendar into concrete dates for one year
// @Summary      Get holidays for a year
// @Tags         holidays
// @Security     BearerAuth
// @Produce      json
// @Param        year  path  int  true  "Calendar year"
// @Success      200   {object}  response.Response{data=[]service.HolidayOccurrence}
// @Router       /api/holidays/year/{year} [get]
func (h *HolidayHandler) GetHolidays(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1900 || year > 2200 {
		respondError(c, apperror.Validation("invalid year: %s", c.Param("year")))
		return
	}

	occurrences, err := h.holidayService.GetHolidays(c.Request.Context(), year)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, occurrences))
}

// ListHolidays returns raw holiday definitions, paginated
func (h *HolidayHandler) ListHolidays(c *gin.Context) {
	params := pagination.Parse(c)

	holidays, total, err := h.holidayService.ListHolidays(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"holidays": holidays,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}
