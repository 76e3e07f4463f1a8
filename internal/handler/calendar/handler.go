package calendar

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/calendar"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *calendar.Service
}

func NewHandler(service *calendar.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cal := r.Group("/calendar")
	{
		cal.GET("", h.GetBusinessCalendar)
		cal.PUT("", h.ReplaceBusinessCalendar)
		cal.GET("/window", h.ResolveWindow)
	}

	overrides := r.Group("/resources/:id/overrides")
	{
		overrides.GET("", h.ListOverrides)
		overrides.PUT("/:day", h.UpsertOverride)
		overrides.DELETE("/:day", h.DeleteOverride)
	}
}

type windowQuery struct {
	Date       string `form:"date" binding:"required,isodate"`
	ResourceID string `form:"resource_id" binding:"omitempty,uuid"`
}

func (h *Handler) GetBusinessCalendar(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		httputil.RespondWithError(c, errors.BadRequest("tenant ID is required", nil))
		return
	}

	days, err := h.service.BusinessCalendar(c.Request.Context(), tenantID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, days)
}

func (h *Handler) ReplaceBusinessCalendar(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		httputil.RespondWithError(c, errors.BadRequest("tenant ID is required", nil))
		return
	}

	var req model.ReplaceCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	if err := h.service.ReplaceBusinessCalendar(c.Request.Context(), tenantID, req.Days); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	days, err := h.service.BusinessCalendar(c.Request.Context(), tenantID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, days)
}

// ResolveWindow reports the working window of a date, for the business as a
// whole or for one resource when resource_id is given.
func (h *Handler) ResolveWindow(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		httputil.RespondWithError(c, errors.BadRequest("tenant ID is required", nil))
		return
	}

	var q windowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}
	date, err := scheduling.ParseDate(q.Date)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid date", err))
		return
	}
	var resourceID *uuid.UUID
	if q.ResourceID != "" {
		id := uuid.MustParse(q.ResourceID)
		resourceID = &id
	}

	window, err := h.service.ResolveDayWindow(c.Request.Context(), tenantID, date, resourceID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, window)
}

func (h *Handler) ListOverrides(c *gin.Context) {
	tenantID, resourceID, ok := resourceParams(c)
	if !ok {
		return
	}

	overrides, err := h.service.ListOverrides(c.Request.Context(), tenantID, resourceID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, overrides)
}

func (h *Handler) UpsertOverride(c *gin.Context) {
	tenantID, resourceID, ok := resourceParams(c)
	if !ok {
		return
	}
	day, ok := dayParam(c)
	if !ok {
		return
	}

	var req model.UpsertOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	override, err := h.service.UpsertOverride(c.Request.Context(), tenantID, resourceID, day, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, override)
}

func (h *Handler) DeleteOverride(c *gin.Context) {
	tenantID, resourceID, ok := resourceParams(c)
	if !ok {
		return
	}
	day, ok := dayParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteOverride(c.Request.Context(), tenantID, resourceID, day); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

func resourceParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		httputil.RespondWithError(c, errors.BadRequest("tenant ID is required", nil))
		return uuid.Nil, uuid.Nil, false
	}
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid resource ID", err))
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, resourceID, true
}

func dayParam(c *gin.Context) (int, bool) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 0 || day >= model.DaysPerWeek {
		httputil.RespondWithError(c, errors.BadRequest("day must be 0-6", err))
		return 0, false
	}
	return day, true
}
