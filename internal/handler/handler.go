// Package handler exposes the registry, the attendance ledger and the roster
// tools over HTTP.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gymaccess/internal/attendance"
	"gymaccess/internal/member"
	"gymaccess/internal/metrics"
	"gymaccess/internal/queue"
	"gymaccess/internal/station"
)

// HealthCheck reports whether a dependency answers.
type HealthCheck func(ctx context.Context) bool

// Options carries settings that are not services.
type Options struct {
	AdminUser         string
	AdminPasswordHash string
	// Location decides which calendar day "today" is for validity checks.
	Location *time.Location
	Now      func() time.Time
	Checks   map[string]HealthCheck
}

type Handler struct {
	members  *member.Registry
	ledger   *attendance.Service
	stations *station.Service
	queue    queue.Queue
	opts     Options
}

func New(members *member.Registry, ledger *attendance.Service, stations *station.Service, q queue.Queue, opts Options) *Handler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{members: members, ledger: ledger, stations: stations, queue: q, opts: opts}
}

func (h *Handler) now() time.Time {
	return h.opts.Now().In(h.opts.Location)
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.opts.Checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- Helpers ----------

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, member.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, member.ErrAmbiguousMatch), errors.Is(err, member.ErrDuplicateKey):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, member.ErrInvalidInput), errors.Is(err, attendance.ErrInvalidAction), errors.Is(err, station.ErrInvalidStation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, station.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		log.Printf("request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) publish(ctx context.Context, typ string, body any) {
	if h.queue == nil {
		return
	}
	msg, err := queue.NewMessage(typ, body)
	if err != nil {
		log.Printf("queue encode failed: %v", err)
		return
	}
	if err := h.queue.Publish(ctx, msg); err != nil {
		metrics.QueueDropped.WithLabelValues(typ).Inc()
		log.Printf("queue publish %s dropped: %v", typ, err)
	}
}

func queryInt(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return 0, false
	}
	return id, true
}
