package agent

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	"github.com/spidlabs/spidpos/internal/pos/checkout"
	"github.com/spidlabs/spidpos/internal/pos/repository"
	possync "github.com/spidlabs/spidpos/internal/pos/sync"
)

// Server is the terminal agent's loopback HTTP surface. The on-device UI
// rings up sales and inspects sync state through it; it binds to
// localhost only and carries no auth of its own.
type Server struct {
	checkout     *checkout.Checkout
	products     *repository.Products
	receipts     *repository.Receipts
	manager      *possync.Manager
	connectivity checkout.Connectivity
	merchantID   func() string
}

// New creates the agent server over the terminal's services. merchantID
// returns the currently selected tenant, empty when none is picked.
func New(co *checkout.Checkout, products *repository.Products, receipts *repository.Receipts, manager *possync.Manager, connectivity checkout.Connectivity, merchantID func() string) *Server {
	return &Server{
		checkout:     co,
		products:     products,
		receipts:     receipts,
		manager:      manager,
		connectivity: connectivity,
		merchantID:   merchantID,
	}
}

// Router builds the gin engine with all local routes registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	local := router.Group("/local")
	local.GET("/status", s.status)
	local.GET("/products", s.listProducts)
	local.GET("/receipts", s.listReceipts)
	local.GET("/receipts/:id", s.getReceipt)
	local.POST("/sales", s.createSale)
	local.POST("/receipts/:id/retry", s.retryReceipt)

	return router
}

func (s *Server) status(c *gin.Context) {
	merchantID := s.merchantID()

	pending := 0
	if merchantID != "" {
		if n, err := s.receipts.CountPendingSync(c.Request.Context(), merchantID); err == nil {
			pending = n
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"online":      s.connectivity.Online(),
		"merchantId":  merchantID,
		"pendingSync": pending,
	})
}

func (s *Server) listProducts(c *gin.Context) {
	merchantID := s.merchantID()
	if merchantID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No merchant selected"})
		return
	}

	products, err := s.products.List(c.Request.Context(), merchantID, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": products})
}

func (s *Server) listReceipts(c *gin.Context) {
	merchantID := s.merchantID()
	if merchantID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No merchant selected"})
		return
	}

	filter := &repository.Filter{
		Status:  enum.ReceiptStatus(c.Query("status")),
		Payment: enum.PaymentMethod(c.Query("payment")),
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be an RFC 3339 timestamp"})
			return
		}
		filter.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be an RFC 3339 timestamp"})
			return
		}
		filter.To = to
	}

	receipts, err := s.receipts.ListByMerchant(c.Request.Context(), merchantID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": receipts})
}

func (s *Server) getReceipt(c *gin.Context) {
	receipt, err := s.receipts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if receipt == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receipt not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": receipt})
}

// SaleLine is one line of a sale submitted by the UI
type SaleLine struct {
	ProductID string `json:"productId" binding:"required"`
	Qty       int    `json:"qty" binding:"required,min=1"`
}

// CreateSaleRequest is the body of POST /local/sales
type CreateSaleRequest struct {
	Items         []SaleLine `json:"items" binding:"required,min=1,dive"`
	PaymentMethod string     `json:"paymentMethod" binding:"required"`
}

func (s *Server) createSale(c *gin.Context) {
	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	payment := enum.PaymentMethod(req.PaymentMethod)
	if !payment.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentMethod must be one of CASH, CARD, WALLET, SPLIT"})
		return
	}

	cart := checkout.NewCart()
	for _, line := range req.Items {
		product, err := s.products.Get(c.Request.Context(), line.ProductID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if product == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown product " + line.ProductID})
			return
		}
		for i := 0; i < line.Qty; i++ {
			cart.Add(product)
		}
	}

	receipt, err := s.checkout.IssueReceipt(c.Request.Context(), cart, payment)
	if err == checkout.ErrNoMerchantSelected {
		c.JSON(http.StatusConflict, gin.H{"error": "No merchant selected"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": receipt})
}

func (s *Server) retryReceipt(c *gin.Context) {
	receiptID := c.Param("id")

	item, err := s.receipts.GetByID(c.Request.Context(), receiptID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receipt not found"})
		return
	}

	if err := s.manager.RetryReceipt(c.Request.Context(), receiptID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"item": gin.H{"receiptId": receiptID}})
}
