package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireCustomer : seul un client authentifié peut faire ses achats
func RequireCustomer(c *gin.Context) {
	actor := ActorFrom(c)
	if !actor.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Connectez-vous pour commander"})
		return
	}
	if !actor.CanShop() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux clients"})
		return
	}
	c.Next()
}

// RequireAuth refuse les visiteurs anonymes
func RequireAuth(c *gin.Context) {
	if !ActorFrom(c).IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}
	c.Next()
}
