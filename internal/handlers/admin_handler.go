package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"invest-engine/internal/auth"
	"invest-engine/internal/models"
	"invest-engine/internal/services"
)

// AdminHandler handles operational endpoints: sweep triggers, withdrawal
// moderation, settings and booster grants.
type AdminHandler struct {
	db          *gorm.DB
	roi         *services.ROIService
	withdrawals *services.WithdrawalService
	settings    *services.SettingsService
	boosters    *services.BoosterService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(db *gorm.DB, roi *services.ROIService, withdrawals *services.WithdrawalService, settings *services.SettingsService, boosters *services.BoosterService) *AdminHandler {
	return &AdminHandler{
		db:          db,
		roi:         roi,
		withdrawals: withdrawals,
		settings:    settings,
		boosters:    boosters,
	}
}

// AdminMiddleware allows only admin users through
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		var user models.User
		if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil || !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// TriggerSweep runs the daily ROI sweep on demand
// POST /api/admin/roi/sweep
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	report, err := h.roi.SweepDaily(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// TriggerUserAccrual runs the accrual for a single user's investments
// POST /api/admin/roi/users/:id
func (h *AdminHandler) TriggerUserAccrual(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	report, err := h.roi.AccrueForUser(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ListWithdrawals lists withdrawal requests by status
// GET /api/admin/withdrawals?status=PENDING
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	status := models.WithdrawalStatus(c.DefaultQuery("status", string(models.WithdrawalStatusPending)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	withdrawals, err := h.withdrawals.ListByStatus(status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load withdrawals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}

// ApproveWithdrawal moves a pending withdrawal into processing
// POST /api/admin/withdrawals/:id/approve
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}

	withdrawal, err := h.withdrawals.Approve(uint(id))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}

// CompleteWithdrawal finalizes a withdrawal and fires the upline reward
// POST /api/admin/withdrawals/:id/complete
func (h *AdminHandler) CompleteWithdrawal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}

	withdrawal, err := h.withdrawals.Complete(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}

// RejectWithdrawal refuses a withdrawal and returns the locked funds
// POST /api/admin/withdrawals/:id/reject
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	withdrawal, err := h.withdrawals.Reject(c.Request.Context(), uint(id), req.Reason)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}

// UpdateSetting upserts one settings key with a raw JSON value
// PUT /api/admin/settings/:key
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "setting key required"})
		return
	}

	var value map[string]interface{}
	if err := c.ShouldBindJSON(&value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "setting value must be a JSON object"})
		return
	}

	if err := h.settings.SetValue(key, value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// GrantBooster activates a manual booster level for a user
// POST /api/admin/boosters
func (h *AdminHandler) GrantBooster(c *gin.Context) {
	var req struct {
		UserID uint `json:"user_id" binding:"required"`
		Level  int  `json:"level" binding:"required"`
		Days   int  `json:"days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.boosters.Grant(req.UserID, req.Level, req.Days)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booster": record})
}
