package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/affiliate"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/imaging"
	"storefront/internal/models"
	"storefront/internal/orderclient"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	cart       *cart.Manager
	checkout   *checkout.Controller
	affiliates *affiliate.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(cartManager *cart.Manager, controller *checkout.Controller, affiliates *affiliate.Store) *Handler {
	return &Handler{
		cart:       cartManager,
		checkout:   controller,
		affiliates: affiliates,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.PUT("/cart/items/:id", h.updateCartItem)
		v1.DELETE("/cart/items/:id", h.removeCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/affiliate", h.captureAffiliate)

		v1.POST("/checkout", h.startCheckout)
		v1.GET("/checkout", h.getCheckout)
		v1.DELETE("/checkout", h.abandonCheckout)
		v1.POST("/checkout/details", h.submitDetails)
		v1.POST("/checkout/proof", h.uploadProof)
		v1.DELETE("/checkout/proof", h.removeProof)
		v1.POST("/checkout/back", h.backToDetails)
		v1.POST("/checkout/submit", h.submitOrder)
		v1.GET("/checkout/payment", h.paymentInstructions)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getCart returns the cart snapshot with derived totals.
func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items":     h.cart.Lines(),
		"total":     h.cart.Total(),
		"itemCount": h.cart.ItemCount(),
	})
}

type addItemRequest struct {
	models.Product
	Quantity int `json:"quantity"`
}

// addCartItem adds a product to the cart.
func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.ProductID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	h.cart.AddItem(req.Product, req.Quantity)
	h.getCart(c)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// updateCartItem sets a line's quantity; zero or below removes the line.
func (h *Handler) updateCartItem(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	h.cart.UpdateQuantity(productID, req.Quantity)
	h.getCart(c)
}

// removeCartItem deletes a line from the cart.
func (h *Handler) removeCartItem(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	h.cart.RemoveItem(productID)
	h.getCart(c)
}

// clearCart empties the cart and its persisted mirror.
func (h *Handler) clearCart(c *gin.Context) {
	h.cart.ClearCart()
	c.Status(http.StatusNoContent)
}

type captureAffiliateRequest struct {
	AffiliateUserID int64  `json:"affiliateUserId" binding:"required"`
	AffiliateCode   string `json:"affiliateCode" binding:"required"`
}

// captureAffiliate records a referral arrival for later order attribution.
func (h *Handler) captureAffiliate(c *gin.Context) {
	var req captureAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.affiliates.Set(req.AffiliateUserID, req.AffiliateCode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to store affiliate code",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// startCheckout opens the checkout flow for the authenticated buyer.
func (h *Handler) startCheckout(c *gin.Context) {
	if err := h.checkout.Start(currentUser(c)); err != nil {
		writeCheckoutError(c, err)
		return
	}
	h.getCheckout(c)
}

// getCheckout returns the current session snapshot.
func (h *Handler) getCheckout(c *gin.Context) {
	sess, ok := h.checkout.Session()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": checkout.ErrNoActiveSession.Error()})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// abandonCheckout closes the flow without touching the cart.
func (h *Handler) abandonCheckout(c *gin.Context) {
	if err := h.checkout.Abandon(); err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// submitDetails validates delivery details and advances to payment.
func (h *Handler) submitDetails(c *gin.Context) {
	var form checkout.DeliveryForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.checkout.SubmitDetails(form); err != nil {
		writeCheckoutError(c, err)
		return
	}
	h.getCheckout(c)
}

// uploadProof accepts a multipart payment proof image.
func (h *Handler) uploadProof(c *gin.Context) {
	file, err := c.FormFile("proof")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proof file is required"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file", "details": err.Error()})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, imaging.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file", "details": err.Error()})
		return
	}

	if err := h.checkout.AttachProof(file.Header.Get("Content-Type"), data); err != nil {
		writeCheckoutError(c, err)
		return
	}
	h.getCheckout(c)
}

// removeProof discards the held proof so it can be replaced.
func (h *Handler) removeProof(c *gin.Context) {
	if err := h.checkout.RemoveProof(); err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// backToDetails returns to the details step, discarding the proof.
func (h *Handler) backToDetails(c *gin.Context) {
	if err := h.checkout.Back(); err != nil {
		writeCheckoutError(c, err)
		return
	}
	h.getCheckout(c)
}

// submitOrder fires the single order-creation call.
func (h *Handler) submitOrder(c *gin.Context) {
	conf, err := h.checkout.Submit(c.Request.Context())
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conf)
}

// paymentInstructions returns the UPI URI for the current cart total.
func (h *Handler) paymentInstructions(c *gin.Context) {
	uri, err := h.checkout.PaymentInstructions()
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upiUri":      uri,
		"totalAmount": h.cart.Total(),
	})
}

// currentUser resolves the authenticated buyer from the identity headers
// set by the upstream auth layer. Returns nil when unauthenticated.
func currentUser(c *gin.Context) *models.User {
	id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	return &models.User{
		ID:       id,
		Username: c.GetHeader("X-User-Name"),
		Phone:    c.GetHeader("X-User-Phone"),
		Email:    c.GetHeader("X-User-Email"),
	}
}

// writeCheckoutError maps checkout errors onto HTTP statuses. Validation
// failures carry field-level messages; submission failures surface the
// orders API's message verbatim.
func writeCheckoutError(c *gin.Context, err error) {
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
		return
	}

	var oos *checkout.OutOfStockError
	if errors.As(err, &oos) {
		c.JSON(http.StatusConflict, gin.H{"error": oos.Error()})
		return
	}

	var serr *orderclient.SubmissionError
	if errors.As(err, &serr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": serr.Message})
		return
	}

	switch {
	case errors.Is(err, checkout.ErrLoginRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrNoActiveSession):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrSubmissionInFlight),
		errors.Is(err, checkout.ErrAlreadySubmitted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, imaging.ErrUnsupportedType),
		errors.Is(err, imaging.ErrTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
