package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys under which the middleware stores the caller's identity
const (
	ctxUserIDKey        = "auth_user_id"
	ctxWalletAddressKey = "auth_wallet_address"
)

// AuthMiddleware rejects requests without a valid bearer token and stores
// the token's user id and wallet address in the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be: Bearer <token>"})
			c.Abort()
			return
		}

		claims, err := ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxWalletAddressKey, claims.WalletAddress)
		c.Next()
	}
}

// GetUserID returns the authenticated user's id from the request context
func GetUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(ctxUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// GetWalletAddress returns the authenticated wallet address from the
// request context.
func GetWalletAddress(c *gin.Context) (string, bool) {
	value, exists := c.Get(ctxWalletAddressKey)
	if !exists {
		return "", false
	}
	address, ok := value.(string)
	return address, ok
}
