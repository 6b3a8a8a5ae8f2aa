// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/services"
	"github.com/bierstube/storefront/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// POST /orders
// An empty items list checks out the caller's cart.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	who := caller(c)
	order, err := h.orderService.CreateOrder(c.Request.Context(), who, who.UID, &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.CreatedResponse(c, order)
}

// GET /orders
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	who := caller(c)
	orders, err := h.orderService.GetUserOrders(c.Request.Context(), who, who.UID)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, orders)
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /admin/orders?status=
func (h *OrderHandler) ListOrdersByStatus(c *gin.Context) {
	status := models.OrderStatus(c.DefaultQuery("status", string(models.OrderStatusPending)))

	orders, err := h.orderService.GetOrdersByStatus(c.Request.Context(), caller(c), status)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, orders)
}

// PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), caller(c), id, &req)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	utils.SuccessResponse(c, order)
}
