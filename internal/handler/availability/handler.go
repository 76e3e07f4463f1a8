package availability

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/availability"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *availability.Service
}

func NewHandler(service *availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	slots := r.Group("/availability")
	{
		slots.GET("/slots", h.GetSlots)
		slots.GET("/dates", h.GetDates)
	}
}

type slotsQuery struct {
	Date       string `form:"date" binding:"required,isodate"`
	Duration   int    `form:"duration" binding:"required_without=ServiceID,omitempty,min=1,max=1440"`
	ServiceID  string `form:"service_id" binding:"omitempty,uuid"`
	ResourceID string `form:"resource_id" binding:"omitempty,uuid"`
	Kind       string `form:"kind" binding:"omitempty,oneof=staff doctor"`
}

type datesQuery struct {
	Horizon int `form:"horizon" binding:"omitempty,min=1,max=366"`
}

// GetSlots lists the bookable (time, resource) pairs for one date.
func (h *Handler) GetSlots(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		httputil.RespondWithError(c, errors.BadRequest("tenant ID is required", nil))
		return
	}

	var q slotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}
	date, err := scheduling.ParseDate(q.Date)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid date", err))
		return
	}

	query := availability.SlotQuery{
		TenantID: tenantID,
		Date:     date,
		Duration: q.Duration,
	}
	if q.ServiceID != "" {
		id := uuid.MustParse(q.ServiceID)
		query.ServiceID = &id
	}
	if q.ResourceID != "" {
		id := uuid.MustParse(q.ResourceID)
		query.ResourceID = &id
	}
	if q.Kind != "" {
		kind := model.ResourceKind(q.Kind)
		query.Kind = &kind
	}

	slots, err := h.service.GetAvailableSlots(c.Request.Context(), query)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) GetDates(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		httputil.RespondWithError(c, errors.BadRequest("tenant ID is required", nil))
		return
	}

	var q datesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	dates, err := h.service.GetAvailableDates(c.Request.Context(), tenantID, q.Horizon)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, dates)
}
