package gateway

import (
	"errors"
	"net/http"

	"github.com/example/phoneshop/pkg/service"
	"github.com/gin-gonic/gin"
)

// statusFor maps the pipeline's error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrVoucherInactive),
		errors.Is(err, service.ErrVoucherOutOfWindow),
		errors.Is(err, service.ErrBelowMinimum),
		errors.Is(err, service.ErrCartEmpty),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrStockChanged),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCancellationWindowClosed):
		return http.StatusConflict
	case errors.Is(err, service.ErrPaymentTamperSuspected):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (g *Gateway) getCart(c *gin.Context) {
	cart, err := g.carts.Get(c.Request.Context(), callerID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (g *Gateway) addCartItem(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := g.carts.AddItem(c.Request.Context(), callerID(c), req.ProductID, req.Quantity)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (g *Gateway) updateCartItem(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := g.carts.UpdateQuantity(c.Request.Context(), callerID(c), c.Param("id"), req.Quantity)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	cartDeleted, err := g.carts.RemoveItem(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart_deleted": cartDeleted})
}

func (g *Gateway) applyVoucher(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := g.carts.ApplyVoucher(c.Request.Context(), callerID(c), req.Code)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (g *Gateway) removeVoucher(c *gin.Context) {
	cart, err := g.carts.RemoveVoucher(c.Request.Context(), callerID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}
