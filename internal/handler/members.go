package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gymaccess/internal/access"
	"gymaccess/internal/member"
	"gymaccess/internal/queue"
	"gymaccess/internal/roster"
)

// memberRequest is the admin form. Dates are YYYY-MM-DD; an empty string clears them.
type memberRequest struct {
	FirstName                string `json:"first_name"`
	LastName                 string `json:"last_name"`
	Email                    string `json:"email"`
	Phone                    string `json:"phone"`
	SubscriptionStart        string `json:"subscription_start"`
	SubscriptionEnd          string `json:"subscription_end"`
	MedicalCertificateStart  string `json:"medical_certificate_start"`
	MedicalCertificateEnd    string `json:"medical_certificate_end"`
	PaymentType              string `json:"payment_type"`
	ReceiptNumber            string `json:"receipt_number"`
	RegistrationFeePaidUntil string `json:"registration_fee_paid_until"`
	Token                    string `json:"token"`
}

func parseDay(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(roster.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", member.ErrInvalidInput, field)
	}
	return &t, nil
}

// paymentType maps the roster labels (carta, contanti, ...) onto the stored
// values. Unknown labels pass through lowercased and fail validation.
func paymentType(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if p := roster.ParsePayment(v); v == "" || p != member.PaymentUnspecified {
		return p
	}
	return v
}

// apply copies the form onto m.
func (req memberRequest) apply(m *member.Member) error {
	m.FirstName = req.FirstName
	m.LastName = req.LastName
	m.Email = req.Email
	m.Phone = req.Phone
	m.PaymentType = paymentType(req.PaymentType)
	m.ReceiptNumber = strings.TrimSpace(req.ReceiptNumber)
	m.Token = req.Token

	dates := []struct {
		field string
		value string
		dst   **time.Time
	}{
		{"subscription_start", req.SubscriptionStart, &m.SubscriptionStart},
		{"subscription_end", req.SubscriptionEnd, &m.SubscriptionEnd},
		{"medical_certificate_start", req.MedicalCertificateStart, &m.MedicalCertificateStart},
		{"medical_certificate_end", req.MedicalCertificateEnd, &m.MedicalCertificateEnd},
		{"registration_fee_paid_until", req.RegistrationFeePaidUntil, &m.RegistrationFeePaidUntil},
	}
	for _, d := range dates {
		t, err := parseDay(d.field, d.value)
		if err != nil {
			return err
		}
		*d.dst = t
	}
	return nil
}

type memberView struct {
	member.Member
	Validity access.Snapshot `json:"validity"`
}

// ListMembers returns members ordered by name with their validity.
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.members.List(c.Request.Context(), member.ListFilter{
		Query:  c.Query("q"),
		Limit:  queryInt(c, "limit", 100),
		Offset: queryInt(c, "offset", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	now := h.now()
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberView{Member: m, Validity: access.Evaluate(m, now)})
	}
	c.JSON(http.StatusOK, gin.H{"members": views})
}

// GetMember returns a member, their validity and recent visits.
func (h *Handler) GetMember(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	m, err := h.members.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.ledger.History(c.Request.Context(), m.ID, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"member":     memberView{Member: *m, Validity: access.Evaluate(*m, now)},
		"attendance": h.recordViews(c.Request.Context(), history, now),
	})
}

// CreateMember registers a member and queues their card for dispatch.
func (h *Handler) CreateMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m := &member.Member{}
	if err := req.apply(m); err != nil {
		respondError(c, err)
		return
	}
	if err := h.members.Create(c.Request.Context(), m); err != nil {
		respondError(c, err)
		return
	}
	h.publish(c.Request.Context(), queue.TypeMemberCreated, queue.MemberCreated{MemberID: m.ID, Token: m.Token})
	c.JSON(http.StatusCreated, memberView{Member: *m, Validity: access.Evaluate(*m, h.now())})
}

// UpdateMember replaces a member's editable fields. The token cannot change.
func (h *Handler) UpdateMember(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m := &member.Member{ID: id}
	if err := req.apply(m); err != nil {
		respondError(c, err)
		return
	}
	if err := h.members.Update(c.Request.Context(), m); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, memberView{Member: *m, Validity: access.Evaluate(*m, h.now())})
}

// DeleteMember removes a member.
func (h *Handler) DeleteMember(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.members.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MemberPass returns the payload the wallet pass generator consumes.
func (h *Handler) MemberPass(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	m, err := h.members.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, access.Evaluate(*m, h.now()))
}
