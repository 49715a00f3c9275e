package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"
	"github.com/minaamq/Q2time-tracking-system/internal/repository"
	"github.com/minaamq/Q2time-tracking-system/internal/service"
	"github.com/minaamq/Q2time-tracking-system/pkg/tzutil"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler - HTTP-слой поверх SessionManager.
// Вся семантика в сервисах; здесь только разбор запросов,
// извлечение IP клиента и маппинг ошибок в статусы.
type Handler struct {
	sessions *service.SessionManager
	geo      service.TimezoneResolver
	clock    service.Clock
	logger   *logrus.Logger
}

func New(sessions *service.SessionManager, geo service.TimezoneResolver, clock service.Clock, logger *logrus.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		geo:      geo,
		clock:    clock,
		logger:   logger,
	}
}

// Register вешает маршруты на движок
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api/v1")
	{
		api.POST("/login", h.login)
		api.POST("/logout", h.logout)
		api.POST("/break", h.recordBreak)
		api.GET("/calculate/:emp_id", h.calculate)
		api.POST("/validate-break", h.validateBreak)
		api.GET("/sessions", h.listSessions)
		api.DELETE("/sessions/:emp_id", h.deleteSession)
		api.GET("/timezone-info", h.timezoneInfo)
	}
}

type loginRequest struct {
	EmpID     string     `json:"emp_id" binding:"required"`
	LoginTime *time.Time `json:"login_time"`
}

type logoutRequest struct {
	EmpID      string     `json:"emp_id" binding:"required"`
	LogoutTime *time.Time `json:"logout_time"`
}

type breakRequest struct {
	EmpID           string           `json:"emp_id" binding:"required"`
	BreakType       models.BreakType `json:"break_type" binding:"required"`
	StartTime       *time.Time       `json:"start_time"`
	EndTime         *time.Time       `json:"end_time"`
	DurationMinutes *int             `json:"duration_minutes"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ip := clientIP(c)
	entry, err := h.sessions.RecordLogin(c.Request.Context(), req.EmpID, req.LoginTime, ip)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"emp_id":     entry.EmpID,
		"login_time": tzutil.ToZone(*entry.LoginTime, entry.Timezone),
		"timezone":   entry.Timezone,
		"location":   entry.Location,
		"ip_address": entry.IPAddress,
	})
}

func (h *Handler) logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ip := clientIP(c)
	entry, err := h.sessions.RecordLogout(c.Request.Context(), req.EmpID, req.LogoutTime, ip)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Logout successful",
		"emp_id":      entry.EmpID,
		"logout_time": tzutil.ToZone(*entry.LogoutTime, entry.Timezone),
		"timezone":    entry.Timezone,
	})
}

func (h *Handler) recordBreak(c *gin.Context) {
	var req breakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	brk, err := models.NewBreakEntry(req.BreakType, req.StartTime, req.EndTime, req.DurationMinutes, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ip := clientIP(c)
	entry, warning, err := h.sessions.RecordBreak(c.Request.Context(), req.EmpID, brk, ip)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := gin.H{
		"message":          "Break recorded successfully",
		"break_type":       brk.BreakType,
		"duration_minutes": brk.DurationMinutes,
		"start_time":       zonedOrNil(brk.StartTime, entry.Timezone),
		"end_time":         zonedOrNil(brk.EndTime, entry.Timezone),
		"timezone":         entry.Timezone,
	}
	if warning != nil {
		resp["message"] = "Break recorded with overlap warning"
		resp["overlap_detected"] = true
		resp["warning"] = warning.Details
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) calculate(c *gin.Context) {
	empID := c.Param("emp_id")

	entry, err := h.sessions.CurrentSession(c.Request.Context(), empID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	hours, details, scenario, err := h.sessions.ComputeHours(c.Request.Context(), empID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	breaksInfo := make([]gin.H, 0, len(entry.Breaks))
	for _, b := range entry.Breaks {
		duration := "Null"
		if b.DurationMinutes != nil {
			duration = formatMinutes(*b.DurationMinutes)
		}
		breaksInfo = append(breaksInfo, gin.H{
			"type":       b.BreakType,
			"duration":   duration,
			"start_time": b.StartTime,
			"end_time":   b.EndTime,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"emp_id":              empID,
		"scenario":            scenario,
		"login_time":          entry.LoginTime,
		"logout_time":         entry.LogoutTime,
		"breaks":              breaksInfo,
		"total_work_hours":    service.FormatHours(hours),
		"calculation_details": details,
	})
}

func (h *Handler) validateBreak(c *gin.Context) {
	var req breakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	brk, err := models.NewBreakEntry(req.BreakType, req.StartTime, req.EndTime, req.DurationMinutes, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	overlaps, details, err := h.sessions.PreviewBreakOverlap(c.Request.Context(), req.EmpID, brk)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":            !overlaps,
		"overlap_detected": overlaps,
		"overlap_details":  details,
	})
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.sessions.ListSessions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handler) deleteSession(c *gin.Context) {
	deleted, err := h.sessions.DeleteSession(c.Request.Context(), c.Param("emp_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) timezoneInfo(c *gin.Context) {
	ip := clientIP(c)
	tz, loc := h.geo.Resolve(c.Request.Context(), ip)

	c.JSON(http.StatusOK, gin.H{
		"ip_address":   ip,
		"timezone":     tz,
		"current_time": h.clock.Now(tz),
		"location":     loc,
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.clock.Now(""),
	})
}

// respondError переводит ошибки сервисов в статусы:
// валидация - 400, нет записи - 404, хранилище - 503, прочее - 500
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrUnknownBreakType),
		errors.Is(err, models.ErrEndNotAfterStart),
		errors.Is(err, models.ErrLogoutBeforeLogin):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No session found for employee"})
	case errors.Is(err, repository.ErrUnavailable):
		h.logger.WithError(err).Error("Session store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
	default:
		h.logger.WithError(err).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// CORSMiddleware - разрешающий CORS для всех источников
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// clientIP - адрес клиента с учетом X-Forwarded-For / X-Real-IP,
// приватные адреса нормализуются до зонда
func clientIP(c *gin.Context) string {
	return service.NormalizeClientIP(c.ClientIP())
}

func zonedOrNil(t *time.Time, tz string) *time.Time {
	if t == nil {
		return nil
	}
	z := tzutil.ToZone(*t, tz)
	return &z
}

func formatMinutes(min int) string {
	return fmt.Sprintf("%dmin", min)
}
