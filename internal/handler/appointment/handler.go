package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/appointment"
	"github.com/jwalitptl/scheduling-api/internal/service/calendar"
	"github.com/jwalitptl/scheduling-api/internal/service/conflict"
	"github.com/jwalitptl/scheduling-api/internal/service/recurrence"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
)

type Handler struct {
	appointments *appointment.Service
	conflicts    *conflict.Service
	calendar     *calendar.Service
	recurrence   *recurrence.Service
}

func NewHandler(appointments *appointment.Service, conflicts *conflict.Service, cal *calendar.Service, rec *recurrence.Service) *Handler {
	return &Handler{
		appointments: appointments,
		conflicts:    conflicts,
		calendar:     cal,
		recurrence:   rec,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.POST("/conflicts", h.CheckConflict)
		appointments.POST("/working-hours", h.CheckWorkingHours)
		appointments.POST("/recurring", h.CreateRecurring)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
	}
}

type listQuery struct {
	Date       string `form:"date" binding:"omitempty,isodate"`
	ResourceID string `form:"resource_id" binding:"omitempty,uuid"`
	GroupID    string `form:"group_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=pending confirmed completed cancelled no_show"`
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	a, err := h.appointments.Create(c.Request.Context(), tenantID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid appointment ID", err))
		return
	}

	a, err := h.appointments.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	filter := model.AppointmentFilter{
		TenantID: tenantID,
		Status:   model.AppointmentStatus(q.Status),
	}
	if q.Date != "" {
		date, err := model.ParseDate(q.Date)
		if err != nil {
			httputil.RespondWithError(c, errors.BadRequest("invalid date", err))
			return
		}
		filter.Date = &date
	}
	if q.ResourceID != "" {
		id := uuid.MustParse(q.ResourceID)
		filter.ResourceID = &id
	}
	if q.GroupID != "" {
		id := uuid.MustParse(q.GroupID)
		filter.GroupID = &id
	}

	appointments, err := h.appointments.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid appointment ID", err))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	a, err := h.appointments.Update(c.Request.Context(), tenantID, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid appointment ID", err))
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	a, err := h.appointments.UpdateStatus(c.Request.Context(), tenantID, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

// CheckConflict answers whether a proposed booking collides with an existing
// one. A conflict is a normal 200 answer here, not an error.
func (h *Handler) CheckConflict(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}

	var req model.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}
	date, err := scheduling.ParseDate(req.Date)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid date", err))
		return
	}

	result, err := h.conflicts.CheckConflict(c.Request.Context(), conflict.Query{
		TenantID:             tenantID,
		Date:                 date,
		StartTime:            req.StartTime,
		Duration:             req.Duration,
		StaffID:              req.StaffID,
		DoctorID:             req.DoctorID,
		ExcludeAppointmentID: req.ExcludeAppointmentID,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) CheckWorkingHours(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}

	var req model.WorkingHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}
	date, err := scheduling.ParseDate(req.Date)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid date", err))
		return
	}

	result, err := h.calendar.CheckDoctorWorkingHours(c.Request.Context(), tenantID, date, req.StartTime, req.Duration, req.DoctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

// CreateRecurring books a series. Dates that cannot be booked are reported
// as skipped rather than failing the request.
func (h *Handler) CreateRecurring(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}

	var req model.RecurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	result, err := h.recurrence.Expand(c.Request.Context(), tenantID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, result)
}

func tenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		httputil.RespondWithError(c, errors.BadRequest("tenant ID is required", nil))
	}
	return tenantID, ok
}
