package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-xpost/xpost/internal/services"
)

// AuthHandler exposes the OAuth connect/callback/status/disconnect surface.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(as *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// Connect starts the authorization flow and redirects the browser to X.
func (h *AuthHandler) Connect(c *gin.Context) {
	authURL, err := h.authService.BeginAuthorization(c.Request.Context(), services.DefaultUserID)
	if err != nil {
		if errors.Is(err, services.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "X API credentials not configured",
			})
			return
		}
		log.Printf("[Handler] Failed to begin authorization: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to start authorization",
		})
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the flow: it consumes the state session, exchanges
// the code, and stores the credential, then sends the browser back to
// the auth page.
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	providerError := c.Query("error")
	providerErrorDesc := c.Query("error_description")

	_, err := h.authService.CompleteAuthorization(
		c.Request.Context(), code, state, providerError, providerErrorDesc,
	)
	if err != nil {
		var providerErr *services.ProviderCallbackError
		switch {
		case errors.As(err, &providerErr):
			c.String(http.StatusBadRequest, "Authentication failed: "+providerErr.Message())
		case errors.Is(err, services.ErrInvalidCallback):
			c.String(http.StatusBadRequest, "Invalid callback parameters")
		case errors.Is(err, services.ErrInvalidSession):
			c.String(http.StatusBadRequest, "Invalid state parameter. Please try again.")
		default:
			log.Printf("[Handler] OAuth callback failed: %v", err)
			c.String(http.StatusInternalServerError, "Authentication failed")
		}
		return
	}

	c.Redirect(http.StatusFound, "/auth")
}

// Status reports whether an X account is connected.
func (h *AuthHandler) Status(c *gin.Context) {
	status, err := h.authService.Status(services.DefaultUserID)
	if err != nil {
		log.Printf("[Handler] Failed to load auth status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load status"})
		return
	}

	if !status.Authenticated {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user": gin.H{
			"userId":   status.UserID,
			"username": status.Username,
		},
	})
}

// Disconnect removes the stored credential.
func (h *AuthHandler) Disconnect(c *gin.Context) {
	if err := h.authService.Disconnect(services.DefaultUserID); err != nil {
		log.Printf("[Handler] Failed to disconnect: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to disconnect",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
