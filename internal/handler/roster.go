package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"gymaccess/internal/metrics"
	"gymaccess/internal/roster"
)

func delimiter(c *gin.Context) (rune, bool) {
	v := c.DefaultQuery("delimiter", ",")
	if v == `\t` || v == "tab" {
		return '\t', true
	}
	r, size := utf8.DecodeRuneInString(v)
	if size == 0 || size != len(v) || r == '"' || r == '\n' || r == '\r' {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delimiter must be a single character"})
		return 0, false
	}
	return r, true
}

// ExportCSV streams the member roster as CSV.
func (h *Handler) ExportCSV(c *gin.Context) {
	delim, ok := delimiter(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=members-%s.csv", h.now().Format("20060102")))
	c.Status(http.StatusOK)
	if _, err := roster.Export(c.Request.Context(), h.members, c.Writer, delim); err != nil {
		// headers are already sent
		log.Printf("export failed: %v", err)
	}
}

// ImportCSV creates or updates members from an uploaded roster file.
func (h *Handler) ImportCSV(c *gin.Context) {
	delim, ok := delimiter(c)
	if !ok {
		return
	}
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	defer file.Close()

	report, err := roster.Import(c.Request.Context(), h.members, file, roster.ImportOptions{
		Options: roster.Options{Delimiter: delim, DryRun: dryRun},
		Today:   h.now(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if !dryRun {
		for _, row := range report.Rows {
			metrics.ImportRows.WithLabelValues(row.Action).Inc()
		}
	}
	log.Printf("import: created=%d updated=%d skipped=%d dry_run=%t", report.Created, report.Updated, report.Skipped, dryRun)
	c.JSON(http.StatusOK, report)
}
