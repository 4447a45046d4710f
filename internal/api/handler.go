package api

import (
	"net/http"
	"strconv"
	"time"

	"chat-commerce/internal/models"
	"chat-commerce/internal/service"
	"chat-commerce/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	chat        *service.ChatService
	fulfillment *service.FulfillmentService
	inventory   *service.InventoryService
	catalog     service.CatalogProvider
}

// NewHandler creates a new HTTP handler
func NewHandler(
	chat *service.ChatService,
	fulfillment *service.FulfillmentService,
	inventory *service.InventoryService,
	catalog service.CatalogProvider,
) *Handler {
	return &Handler{
		chat:        chat,
		fulfillment: fulfillment,
		inventory:   inventory,
		catalog:     catalog,
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
		v1.POST("/chat/message", h.handleChatMessage)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:number", h.getOrder)
		v1.POST("/orders/:number/status", h.changeOrderStatus)
		v1.GET("/catalog", h.getCatalog)
		v1.POST("/stock/adjust", h.adjustStock)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// handleChatMessage routes one inbound customer message through the session
// state machine
func (h *Handler) handleChatMessage(c *gin.Context) {
	var msg service.InboundMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	reply, err := h.chat.HandleMessage(c.Request.Context(), &msg)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reply)
}

type statusChangeRequest struct {
	BusinessID   int64  `json:"business_id" binding:"required"`
	TargetStatus string `json:"target_status" binding:"required"`
}

// changeOrderStatus maps a target status onto the orchestrator operation
func (h *Handler) changeOrderStatus(c *gin.Context) {
	var req statusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	number := c.Param("number")
	ctx := c.Request.Context()

	var order *models.Order
	var err error
	switch req.TargetStatus {
	case models.OrderStatusAccepted, models.OrderStatusPreparing:
		order, err = h.fulfillment.AcceptChain(ctx, req.BusinessID, number)
	case models.OrderStatusCancelled:
		order, err = h.fulfillment.Reject(ctx, req.BusinessID, number)
	case models.OrderStatusOutForDelivery:
		order, err = h.fulfillment.Dispatch(ctx, req.BusinessID, number)
	case models.OrderStatusDelivered:
		order, err = h.fulfillment.Deliver(ctx, req.BusinessID, number)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown target status: " + req.TargetStatus,
		})
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) getOrder(c *gin.Context) {
	businessID, ok := queryBusinessID(c)
	if !ok {
		return
	}

	order, err := h.fulfillment.GetOrder(c.Request.Context(), businessID, c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) listOrders(c *gin.Context) {
	businessID, ok := queryBusinessID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	orders, total, err := h.fulfillment.ListOrders(c.Request.Context(), businessID, c.Query("status"), limit, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
	})
}

// getCatalog serves the catalog prompt/listing contract
func (h *Handler) getCatalog(c *gin.Context) {
	businessID, ok := queryBusinessID(c)
	if !ok {
		return
	}

	catalog, err := h.catalog.Get(c.Request.Context(), businessID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": catalog.Products})
}

type stockAdjustRequest struct {
	BusinessID int64 `json:"business_id" binding:"required"`
	ProductID  int64 `json:"product_id" binding:"required"`
	Stock      *int  `json:"stock" binding:"required"`
}

// adjustStock applies a manual stock correction or a scan result
func (h *Handler) adjustStock(c *gin.Context) {
	var req stockAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.inventory.AdjustStock(c.Request.Context(), req.BusinessID, req.ProductID, *req.Stock)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

func queryBusinessID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("business_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid business_id"})
		return 0, false
	}
	return id, true
}

// respondError maps the domain error taxonomy onto HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case models.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case models.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "details": err.Error()})
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
