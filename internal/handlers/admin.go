// internal/handlers/admin.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bierstube/storefront/internal/i18n"
	"github.com/bierstube/storefront/internal/services"
	"github.com/bierstube/storefront/internal/utils"
)

type AdminHandler struct {
	adminService  *services.AdminService
	reportService *services.ReportService
}

func NewAdminHandler(adminService *services.AdminService, reportService *services.ReportService) *AdminHandler {
	return &AdminHandler{
		adminService:  adminService,
		reportService: reportService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err, "resource")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, users)
}

// DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, gin.H{"id": id, "deleted": true})
}

// GET /admin/reports/sales?start_date=&end_date=
// Dates may be RFC 3339 or plain; a plain end date covers the whole day.
func (h *AdminHandler) GetSalesAnalytics(c *gin.Context) {
	start, ok := parseReportDate(c, "start_date", false)
	if !ok {
		return
	}
	end, ok := parseReportDate(c, "end_date", true)
	if !ok {
		return
	}

	report, err := h.reportService.GetSalesAnalytics(c.Request.Context(), caller(c), start, end)
	if err != nil {
		respondError(c, err, "resource")
		return
	}

	utils.SuccessResponse(c, report)
}

// GET /admin/reports/inventory
func (h *AdminHandler) GetInventoryReport(c *gin.Context) {
	report, err := h.reportService.GetInventoryReport(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err, "resource")
		return
	}

	utils.SuccessResponse(c, report)
}

// POST /admin/sample-data
func (h *AdminHandler) InitializeSampleData(c *gin.Context) {
	result, err := h.adminService.InitializeSampleData(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err, "resource")
		return
	}

	utils.CreatedResponse(c, result)
}

// PUT /admin/products/:id/stock
func (h *AdminHandler) UpdateProductStock(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateStockRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.adminService.UpdateProductStock(c.Request.Context(), caller(c), id, &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, product)
}

// PUT /admin/products/prices
func (h *AdminHandler) BulkUpdatePrices(c *gin.Context) {
	var req services.BulkPriceRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.adminService.BulkUpdatePrices(c.Request.Context(), caller(c), &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /admin/carts/cleanup?older_than_days=
func (h *AdminHandler) CleanupStaleCarts(c *gin.Context) {
	var olderThan time.Duration
	if raw := c.Query("older_than_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "older_than_days"), nil)
			return
		}
		olderThan = time.Duration(days) * 24 * time.Hour
	}

	result, err := h.adminService.CleanupStaleCarts(c.Request.Context(), caller(c), olderThan)
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /admin/backups/:collection
func (h *AdminHandler) BackupCollection(c *gin.Context) {
	result, err := h.adminService.BackupCollection(c.Request.Context(), caller(c), c.Param("collection"))
	if err != nil {
		respondError(c, err, "resource")
		return
	}

	utils.CreatedResponse(c, result)
}

func parseReportDate(c *gin.Context, name string, endOfDay bool) (time.Time, bool) {
	raw := c.Query(name)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}

	utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
	return time.Time{}, false
}
