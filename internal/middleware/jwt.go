package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"resto_storefront/internal/models"
)

const actorKey = "actor"

// Authenticate lit le JWT émis par le fournisseur d'authentification, s'il est
// présent. Sans en-tête l'acteur reste anonyme; un jeton invalide est refusé.
func Authenticate(secret []byte, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(actorKey, models.Actor{})
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Format Authorization invalide"})
			return
		}

		actor, err := parseActor(parts[1], secret)
		if err != nil {
			logger.Debug("jwt rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token invalide"})
			return
		}

		c.Set(actorKey, actor)
		c.Set("user_id", actor.UserID)
		c.Set("role", actor.Role)
		c.Next()
	}
}

func parseActor(tokenString string, secret []byte) (models.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return models.Actor{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Actor{}, fmt.Errorf("claims invalides")
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return models.Actor{}, fmt.Errorf("user_id manquant")
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return models.Actor{UserID: userID, Email: email, Role: role, Token: tokenString}, nil
}

// ActorFrom retourne l'acteur de la requête (anonyme si absent)
func ActorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}
