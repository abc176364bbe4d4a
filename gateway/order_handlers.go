package gateway

import (
	"net/http"
	"time"

	"github.com/example/phoneshop/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (g *Gateway) checkout(c *gin.Context) {
	var req struct {
		PaymentMethod string `json:"payment_method"`
		Shipping      struct {
			FullName string `json:"full_name" binding:"required"`
			Phone    string `json:"phone" binding:"required"`
			Address  string `json:"address" binding:"required"`
		} `json:"shipping" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := callerID(c)
	order, err := g.orders.Checkout(c.Request.Context(), userID, models.ShippingInfo{
		FullName: req.Shipping.FullName,
		Phone:    req.Shipping.Phone,
		Address:  req.Shipping.Address,
	}, req.PaymentMethod)
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := gin.H{"order": order}
	if order.PaymentMethod == models.PaymentMethodGateway {
		payURL, err := g.payments.CreatePaymentRequest(c.Request.Context(), order.ID)
		if err != nil {
			// The order exists and stays pending; the client can retry the
			// redirect, so this is not a checkout failure.
			g.logger.Warn("Failed to create payment request",
				zap.String("order_id", order.ID), zap.Error(err))
		} else {
			resp["pay_url"] = payURL
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (g *Gateway) getOrder(c *gin.Context) {
	order, err := g.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if order.UserID != callerID(c) && !isStaff(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) listOrders(c *gin.Context) {
	orders, err := g.orders.ListByUser(c.Request.Context(), callerID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

func (g *Gateway) purchaseHistory(c *gin.Context) {
	records, err := g.orders.PurchaseHistory(c.Request.Context(), callerID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": records, "total": len(records)})
}

func (g *Gateway) cancelOrder(c *gin.Context) {
	userID := callerID(c)
	order, err := g.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if order.UserID != userID && !isStaff(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	cancelled, err := g.orders.Cancel(c.Request.Context(), order.ID, userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelled)
}

func (g *Gateway) listOrdersByDateRange(c *gin.Context) {
	from, err := parseDateParam(c.Query("from"), time.Time{})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := parseDateParam(c.Query("to"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}

	orders, err := g.orders.ListByDateRange(c.Request.Context(), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := g.orders.TransitionStatus(c.Request.Context(), c.Param("id"), req.Status, callerID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func parseDateParam(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
