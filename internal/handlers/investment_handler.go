package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"invest-engine/internal/auth"
	"invest-engine/internal/services"
)

// InvestmentHandler handles plan and investment endpoints
type InvestmentHandler struct {
	investments *services.InvestmentService
	wallets     *services.WalletService
}

// NewInvestmentHandler creates a new InvestmentHandler
func NewInvestmentHandler(investments *services.InvestmentService, wallets *services.WalletService) *InvestmentHandler {
	return &InvestmentHandler{
		investments: investments,
		wallets:     wallets,
	}
}

// GetPlans lists the investable plan catalogue
// GET /api/plans
func (h *InvestmentHandler) GetPlans(c *gin.Context) {
	plans, err := h.investments.GetActivePlans()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// CreateInvestment places a new investment for the authenticated user
// POST /api/investments
func (h *InvestmentHandler) CreateInvestment(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		PlanID uint   `json:"plan_id" binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	investment, summary, err := h.investments.Create(c.Request.Context(), userID, req.PlanID, amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"investment": investment,
		"commission": summary,
	})
}

// GetInvestments lists the authenticated user's investments
// GET /api/investments
func (h *InvestmentHandler) GetInvestments(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	investments, err := h.investments.GetUserInvestments(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load investments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": investments})
}

// GetWallet returns the authenticated user's wallet balances
// GET /api/wallet
func (h *InvestmentHandler) GetWallet(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	wallet, err := h.wallets.GetOrCreate(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}
