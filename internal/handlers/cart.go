// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/services"
	"github.com/bierstube/storefront/internal/utils"
)

// CartHandler serves the signed-in user's own cart.
type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	who := caller(c)

	cart, err := h.cartService.GetCart(c.Request.Context(), who, who.UID)
	if err != nil {
		respondError(c, err, "cart")
		return
	}
	if cart == nil {
		cart = &models.Cart{UserID: who.UID, Items: models.CartItems{}}
	}

	utils.SuccessResponse(c, cart)
}

// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req services.AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	who := caller(c)
	cart, err := h.cartService.AddToCart(c.Request.Context(), who, who.UID, &req)
	if err != nil {
		respondError(c, err, "product")
		return
	}

	utils.SuccessResponse(c, cart)
}

// DELETE /cart/items/:productId?variant_id=
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := paramUUID(c, "productId")
	if !ok {
		return
	}

	who := caller(c)
	cart, err := h.cartService.RemoveFromCart(c.Request.Context(), who, who.UID, productID, c.Query("variant_id"))
	if err != nil {
		respondError(c, err, "cart")
		return
	}

	utils.SuccessResponse(c, cart)
}

// DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	who := caller(c)
	if err := h.cartService.ClearCart(c.Request.Context(), who, who.UID); err != nil {
		respondError(c, err, "cart")
		return
	}

	utils.SuccessResponse(c, gin.H{"cleared": true})
}
