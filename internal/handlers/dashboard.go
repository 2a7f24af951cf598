// internal/handlers/dashboard.go
package handlers

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tradebook/tradebook-backend/internal/i18n"
	"github.com/tradebook/tradebook-backend/internal/services"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
	reportService    *services.ReportService
}

func NewDashboardHandler(dashboardService *services.DashboardService, reportService *services.ReportService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		reportService:    reportService,
	}
}

// GET /dashboard/summary
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	r, ok := dateRange(c)
	if !ok {
		return
	}

	summary, err := h.dashboardService.Summary(c.Request.Context(), r)
	if err != nil {
		respondError(c, err, subject{})
		return
	}

	utils.SuccessResponse(c, summary)
}

// GET /dashboard/export
func (h *DashboardHandler) ExportSummary(c *gin.Context) {
	r, ok := dateRange(c)
	if !ok {
		return
	}

	data, filename, err := h.reportService.ExportSummary(c.Request.Context(), r)
	if err != nil {
		respondError(c, err, subject{})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, services.XLSXContentType, data)
}

// POST /dashboard/export/archive
func (h *DashboardHandler) ArchiveSummary(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	r, ok := dateRange(c)
	if !ok {
		return
	}

	archived, err := h.reportService.ArchiveSummary(c.Request.Context(), r)
	if err != nil {
		respondError(c, err, subject{})
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReportArchived),
		"report":  archived,
	})
}

// GET /dashboard/export/archive/*key
func (h *DashboardHandler) DownloadArchive(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	object, err := h.reportService.OpenArchive(c.Request.Context(), key)
	if err != nil {
		respondError(c, err, reportSubject)
		return
	}

	if object.URL != "" {
		c.Redirect(http.StatusFound, object.URL)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(object.Key)))
	c.Data(http.StatusOK, services.XLSXContentType, object.Data)
}
