// internal/handlers/catalog.go
package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bierstube/storefront/internal/i18n"
	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/services"
	"github.com/bierstube/storefront/internal/utils"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	params := services.ProductSearchParams{
		PageParams: utils.GetPageParams(c),
		Category:   models.ProductCategory(c.Query("category")),
		InStock:    queryBool(c, "in_stock"),
		Featured:   queryBool(c, "featured"),
	}
	if tags := c.Query("tags"); tags != "" {
		params.Tags = strings.Split(tags, ",")
	}

	var ok bool
	if params.MinPrice, ok = queryDecimal(c, "min_price"); !ok {
		return
	}
	if params.MaxPrice, ok = queryDecimal(c, "max_price"); !ok {
		return
	}

	page, err := h.catalogService.ListProducts(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.PagedResponse(c, page.Items, page.PageMeta)
}

// GET /products/featured
func (h *CatalogHandler) GetFeaturedProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	products, err := h.catalogService.GetFeaturedProducts(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, products)
}

// GET /products/search?q=
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	products, err := h.catalogService.SearchProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, products)
}

// GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), caller(c), &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.CreatedResponse(c, product)
}

// PUT /products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.ProductUpdate
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), caller(c), id, &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, product)
}

// DELETE /products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, gin.H{"id": id, "deleted": true})
}

// GET /events
func (h *CatalogHandler) ListEvents(c *gin.Context) {
	params := services.EventSearchParams{
		PageParams: utils.GetPageParams(c),
		Category:   models.EventCategory(c.Query("category")),
		Featured:   queryBool(c, "featured"),
		HasTickets: queryBool(c, "has_tickets"),
	}

	var ok bool
	if params.StartFrom, ok = queryTime(c, "start_from"); !ok {
		return
	}
	if params.StartTo, ok = queryTime(c, "start_to"); !ok {
		return
	}

	page, err := h.catalogService.ListEvents(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "event")
		return
	}

	utils.PagedResponse(c, page.Items, page.PageMeta)
}

// GET /events/:id
func (h *CatalogHandler) GetEvent(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	event, err := h.catalogService.GetEvent(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err, "event")
		return
	}

	utils.SuccessResponse(c, event)
}

// POST /events
func (h *CatalogHandler) CreateEvent(c *gin.Context) {
	var req services.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.catalogService.CreateEvent(c.Request.Context(), caller(c), &req)
	if err != nil {
		respondError(c, err, "event")
		return
	}

	utils.CreatedResponse(c, event)
}

// PUT /events/:id
func (h *CatalogHandler) UpdateEvent(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.EventUpdate
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.catalogService.UpdateEvent(c.Request.Context(), caller(c), id, &req)
	if err != nil {
		respondError(c, err, "event")
		return
	}

	utils.SuccessResponse(c, event)
}

// DELETE /events/:id
func (h *CatalogHandler) DeleteEvent(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteEvent(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, err, "event")
		return
	}

	utils.SuccessResponse(c, gin.H{"id": id, "deleted": true})
}

func queryBool(c *gin.Context, name string) *bool {
	v, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return nil
	}
	return &v
}

func queryDecimal(c *gin.Context, name string) (*decimal.Decimal, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return nil, false
	}
	return &d, true
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
	return nil, false
}
