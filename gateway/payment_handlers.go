package gateway

import (
	"net/http"

	"github.com/example/phoneshop/pkg/service"
	"github.com/gin-gonic/gin"
)

// paymentCallback receives the gateway's redirect/webhook. Delivery is
// at-least-once, so a repeat for an already-settled order still answers 200.
func (g *Gateway) paymentCallback(c *gin.Context) {
	if c.Request.Method == http.MethodPost {
		if err := c.Request.ParseForm(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse callback form"})
			return
		}
	}

	params := service.ParseCallback(c.Request.URL.Query())
	if c.Request.Method == http.MethodPost && params.OrderID == "" {
		params = service.ParseCallback(c.Request.PostForm)
	}

	if err := g.payments.HandleCallback(c.Request.Context(), params); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
