package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gymaccess/internal/attendance"
	"gymaccess/internal/auth"
	"gymaccess/internal/metrics"
	"gymaccess/internal/queue"
)

type scanRequest struct {
	Token  string `json:"token" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// Scan processes a QR scan from a station. Refusals are results, not errors,
// so every decided attempt answers 200 with the outcome.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, err := attendance.ParseAction(req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	res, err := h.ledger.Scan(c.Request.Context(), req.Token, action, now)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.ScanOutcomes.WithLabelValues(string(action), string(res.Outcome)).Inc()

	evt := queue.Scan{Action: string(action), Outcome: string(res.Outcome), At: now}
	if res.Member != nil {
		evt.MemberID = res.Member.ID
	}
	if claims, ok := auth.ClaimsFrom(c); ok {
		evt.Station = claims.Subject
	}
	h.publish(c.Request.Context(), queue.TypeScan, evt)

	c.JSON(http.StatusOK, res)
}

// recordView is an attendance row as the admin screens show it.
type recordView struct {
	attendance.Record
	MemberName string                  `json:"member_name"`
	State      attendance.SessionState `json:"state"`
	Label      string                  `json:"label"`
	Duration   string                  `json:"duration"`
}

func (h *Handler) recordViews(ctx context.Context, records []attendance.Record, now time.Time) []recordView {
	names := make(map[int64]string)
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		name, ok := names[rec.MemberID]
		if !ok {
			if m, err := h.members.FindByID(ctx, rec.MemberID); err == nil {
				name = m.FullName()
			}
			names[rec.MemberID] = name
		}
		views = append(views, recordView{
			Record:     rec,
			MemberName: name,
			State:      rec.State(now, h.ledger.Freshness()),
			Label:      rec.StatusLabel(now, h.ledger.Freshness()),
			Duration:   rec.FormatDuration(),
		})
	}
	return views
}

// ListAttendance lists records newest first, optionally for one member.
func (h *Handler) ListAttendance(c *gin.Context) {
	filter := attendance.Filter{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if v := c.Query("member_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member_id"})
			return
		}
		filter.MemberID = id
	}
	records, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": h.recordViews(c.Request.Context(), records, h.now())})
}

// StaleSessions lists open visits past the freshness window.
func (h *Handler) StaleSessions(c *gin.Context) {
	now := h.now()
	records, err := h.ledger.StaleSessions(c.Request.Context(), now)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.StaleSessions.Set(float64(len(records)))
	c.JSON(http.StatusOK, gin.H{"records": h.recordViews(c.Request.Context(), records, now)})
}
