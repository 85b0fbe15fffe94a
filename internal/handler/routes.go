package handler

import (
	"github.com/gin-gonic/gin"

	"gymaccess/internal/auth"
)

// Routes mounts the API on r. Scans accept station or admin tokens; everything
// else under /v1 except login and refresh is admin only.
func (h *Handler) Routes(r gin.IRouter, signingKey, issuer string) {
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")
	v1.POST("/admin/login", h.AdminLogin)
	v1.POST("/auth/refresh", h.Refresh)

	authed := v1.Group("", auth.Bearer(signingKey, issuer))
	authed.POST("/scan", auth.RequireRole(auth.RoleStation, auth.RoleAdmin), h.Scan)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/stations/register", h.RegisterStation)

		admin.GET("/members", h.ListMembers)
		admin.POST("/members", h.CreateMember)
		admin.GET("/members/:id", h.GetMember)
		admin.PUT("/members/:id", h.UpdateMember)
		admin.DELETE("/members/:id", h.DeleteMember)
		admin.GET("/members/:id/pass", h.MemberPass)

		admin.GET("/attendance", h.ListAttendance)
		admin.GET("/attendance/stale", h.StaleSessions)

		admin.GET("/export.csv", h.ExportCSV)
		admin.POST("/import", h.ImportCSV)
	}
}
