package attendance

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"attendboard/internal/response"
)

// Handler exposes the attendance service over HTTP.
type Handler struct{ svc *Service }

// RegisterRoutes mounts the attendance endpoints on r.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/attendance/clockin", h.ClockIn)
	r.POST("/attendance/clockout", h.ClockOut)
	r.GET("/attendance", h.History)
}

// POST /attendance/clockin
func (h *Handler) ClockIn(c *gin.Context) {
	var req ClockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	rec, err := h.svc.ClockIn(c.Request.Context(), req.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, "Clock-in recorded", rec)
}

// POST /attendance/clockout
func (h *Handler) ClockOut(c *gin.Context) {
	var req ClockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	rec, err := h.svc.ClockOut(c.Request.Context(), req.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, "Clock-out recorded", rec)
}

// GET /attendance?user_id=&limit=
func (h *Handler) History(c *gin.Context) {
	limit := DefaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	var userID *string
	if v, ok := c.GetQuery("user_id"); ok {
		userID = &v
	}
	rows, err := h.svc.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, "History fetched", rows)
}
