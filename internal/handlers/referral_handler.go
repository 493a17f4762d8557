package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"invest-engine/internal/auth"
	"invest-engine/internal/services"
)

// ReferralHandler handles referral reporting endpoints
type ReferralHandler struct {
	referrals *services.ReferralService
	boosters  *services.BoosterService
}

// NewReferralHandler creates a new ReferralHandler
func NewReferralHandler(referrals *services.ReferralService, boosters *services.BoosterService) *ReferralHandler {
	return &ReferralHandler{
		referrals: referrals,
		boosters:  boosters,
	}
}

// GetReferralCode returns (or creates) the user's referral code
// GET /api/referral/code
func (h *ReferralHandler) GetReferralCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	code, err := h.referrals.GetUserReferralCode(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referral code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"referral_code": code})
}

// GetReferrals lists the user's direct referrals
// GET /api/referral/referrals
func (h *ReferralHandler) GetReferrals(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	referrals, err := h.referrals.GetUserReferrals(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referrals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"referrals": referrals})
}

// GetCommissionHistory lists the user's commission and reward ledger entries
// GET /api/referral/commissions
func (h *ReferralHandler) GetCommissionHistory(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.referrals.GetCommissionHistory(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load commission history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"commissions": entries})
}

// GetBoosters returns the user's booster records and current active level
// GET /api/referral/boosters
func (h *ReferralHandler) GetBoosters(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	records, err := h.boosters.GetUserBoosters(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load boosters"})
		return
	}
	level, err := h.boosters.HighestActiveLevel(userID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute booster level"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"boosters":     records,
		"active_level": level,
	})
}
