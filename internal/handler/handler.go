// Package handler maps the HTTP surface onto the lifecycle, directory and
// admin services, translating domain errors to status codes at the boundary.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"visitordesk/internal/admin"
	"visitordesk/internal/auth"
	"visitordesk/internal/badge"
	"visitordesk/internal/host"
	"visitordesk/internal/metrics"
	"visitordesk/internal/photo"
	"visitordesk/internal/visit"
)

// Handler carries the services behind the HTTP surface.
type Handler struct {
	visits *visit.Service
	hosts  *host.Directory
	admins *admin.Service

	jwtIssuer string
	jwtKey    string
	jwtTTL    time.Duration
}

// New creates a handler.
func New(visits *visit.Service, hosts *host.Directory, admins *admin.Service, jwtIssuer, jwtKey string, jwtTTL time.Duration) *Handler {
	return &Handler{
		visits:    visits,
		hosts:     hosts,
		admins:    admins,
		jwtIssuer: jwtIssuer,
		jwtKey:    jwtKey,
		jwtTTL:    jwtTTL,
	}
}

// Register wires the API routes. Host mutations require an admin token;
// the reception kiosk endpoints are open.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/admin/login", h.AdminLogin)

	api.POST("/visitors/checkin", h.CheckIn)
	api.POST("/visitors/checkout/:badgeNumber", h.CheckOut)
	api.GET("/visitors", h.ListVisitors)
	api.GET("/visitors/badge/:badgeNumber", h.GetVisitorByBadge)
	api.GET("/visitors/stats", h.Stats)

	api.GET("/hosts", h.ListHosts)
	adminOnly := api.Group("", auth.AdminAuth(h.jwtKey, h.jwtIssuer))
	adminOnly.POST("/hosts", h.CreateHost)
	adminOnly.PUT("/hosts/:id", h.UpdateHost)
	adminOnly.DELETE("/hosts/:id", h.DeactivateHost)

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Server is running", "timestamp": time.Now().UTC()})
	})
}

// ---------- Visitors ----------

// CheckIn registers a visit and issues a badge.
func (h *Handler) CheckIn(c *gin.Context) {
	var req visit.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, message, err := h.visits.CheckIn(c.Request.Context(), req)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}

	metrics.CheckIns.Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "visitor": v, "message": message})
}

// CheckOut transitions a visit to checked-out by badge number. The path
// parameter may be a raw badge number or scanned QR text.
func (h *Handler) CheckOut(c *gin.Context) {
	badgeNumber := badge.ScannedBadge(c.Param("badgeNumber"))

	v, duration, err := h.visits.CheckOut(c.Request.Context(), badgeNumber)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}

	metrics.CheckOuts.Inc()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Check-out successful! Duration: %d minutes", duration),
		"visitor": v,
	})
}

// ListVisitors returns visits filtered by status and/or calendar day.
func (h *Handler) ListVisitors(c *gin.Context) {
	f := visit.ListFilter{Status: c.Query("status")}
	if d := c.Query("date"); d != "" {
		day, err := time.ParseInLocation("2006-01-02", d, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		f.Day = &day
	}

	visits, err := h.visits.List(c.Request.Context(), f)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	if visits == nil {
		visits = []visit.WithHost{}
	}
	c.JSON(http.StatusOK, visits)
}

// GetVisitorByBadge returns a single visit with its host expanded.
func (h *Handler) GetVisitorByBadge(c *gin.Context) {
	v, err := h.visits.Get(c.Request.Context(), c.Param("badgeNumber"))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Stats returns today's dashboard aggregates.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.visits.Stats(c.Request.Context())
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ---------- Hosts ----------

// ListHosts returns active hosts sorted by name.
func (h *Handler) ListHosts(c *gin.Context) {
	hosts, err := h.hosts.List(c.Request.Context())
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	if hosts == nil {
		hosts = []host.Host{}
	}
	c.JSON(http.StatusOK, hosts)
}

// CreateHost registers a host with an optional photo.
func (h *Handler) CreateHost(c *gin.Context) {
	var req host.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.hosts.Create(c.Request.Context(), req)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "host": created})
}

// UpdateHost rewrites a host's fields, replacing the photo only when a new
// one is supplied.
func (h *Handler) UpdateHost(c *gin.Context) {
	var req host.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.hosts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "host": updated})
}

// DeactivateHost soft-deletes a host.
func (h *Handler) DeactivateHost(c *gin.Context) {
	if err := h.hosts.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Host deactivated"})
}

// ---------- Admin ----------

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin verifies credentials and issues an expiring admin token.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.admins.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, admin.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token, exp, err := auth.Issue(account.Username, auth.RoleAdmin, h.jwtIssuer, h.jwtKey, h.jwtTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Login successful",
		"token":      token,
		"expires_at": exp.Unix(),
	})
}

// abortWithDomainError maps domain errors onto HTTP statuses: validation
// and bad images are 400, unknown references 404, lifecycle conflicts 409,
// everything else a 500 with the underlying message.
func abortWithDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, visit.ErrMissingField),
		errors.Is(err, host.ErrMissingField),
		errors.Is(err, photo.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, visit.ErrNotFound), errors.Is(err, host.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, visit.ErrAlreadyCheckedOut), errors.Is(err, visit.ErrDuplicateBadge):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
