package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"resto_storefront/internal/middleware"
	"resto_storefront/internal/models"
	"resto_storefront/internal/storage"
)

// ActiveOrdersSource interroge le backend pour les commandes en cours
type ActiveOrdersSource interface {
	ActiveOrders(ctx context.Context, token string) ([]models.PlacedOrder, error)
}

type OrdersHandler struct {
	source ActiveOrdersSource
	cache  storage.Storage
	ttl    time.Duration
	logger *zap.Logger
}

func NewOrdersHandler(source ActiveOrdersSource, cache storage.Storage, ttl time.Duration, logger *zap.Logger) *OrdersHandler {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &OrdersHandler{source: source, cache: cache, ttl: ttl, logger: logger}
}

func activeOrdersKey(userID string) string {
	return "active_orders:" + userID
}

// GET /api/orders/active : indicateur "commande en cours" du header
func (h *OrdersHandler) ActiveOrders(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.ActorFrom(c)
	key := activeOrdersKey(actor.UserID)

	if raw, err := h.cache.Get(ctx, key); err == nil {
		var orders []models.PlacedOrder
		if json.Unmarshal(raw, &orders) == nil {
			c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders), "cached": true})
			return
		}
	}

	orders, err := h.source.ActiveOrders(ctx, actor.Token)
	if err != nil {
		h.logger.Warn("⚠️ Lecture commandes actives impossible", zap.String("user_id", actor.UserID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Commandes indisponibles"})
		return
	}
	if orders == nil {
		orders = []models.PlacedOrder{}
	}

	if raw, err := json.Marshal(orders); err == nil {
		if err := h.cache.Set(ctx, key, raw, h.ttl); err != nil {
			h.logger.Debug("active orders cache write failed", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders), "cached": false})
}

// Invalidate oublie l'indicateur d'un client après une commande créée ou payée
func (h *OrdersHandler) Invalidate(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if err := h.cache.Delete(ctx, activeOrdersKey(userID)); err != nil {
		h.logger.Debug("active orders cache delete failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// GET /api/orders/:number/qr : QR à présenter au comptoir pour le retrait
func (h *OrdersHandler) PickupQR(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" || len(number) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Numéro de commande invalide"})
		return
	}

	png, err := qrcode.Encode(number, qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("❌ Génération QR échouée", zap.String("order_number", number), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération QR"})
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
