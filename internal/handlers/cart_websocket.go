package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"resto_storefront/internal/cart"
	"resto_storefront/internal/middleware"
)

// Subscriber fournit l'abonnement pub/sub aux changements d'un panier
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) *redis.PubSub
}

type CartSocketHandler struct {
	carts      *CartHandler
	subscriber Subscriber
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	pingEvery  time.Duration
}

func NewCartSocketHandler(carts *CartHandler, subscriber Subscriber, allowedOrigins []string, logger *zap.Logger) *CartSocketHandler {
	return &CartSocketHandler{
		carts:      carts,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		logger:    logger,
		pingEvery: 30 * time.Second,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

type cartEvent struct {
	Type string `json:"type"`
	cartResponse
}

// GET /api/cart/ws : synchronise les onglets d'un même appareil
func (h *CartSocketHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("❌ Erreur upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	key := cart.Key(middleware.DeviceID(c))

	pubsub := h.subscriber.Subscribe(ctx, key)
	defer pubsub.Close()
	ch := pubsub.Channel()

	// état initial
	if err := conn.WriteJSON(cartEvent{Type: "cart_updated", cartResponse: newCartResponse(h.carts.Open(c).Cart(), "")}); err != nil {
		return
	}

	// lecture en tâche de fond pour détecter la fermeture côté client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Payload != cart.EventUpdated && msg.Payload != cart.EventCleared {
				continue
			}
			event := cartEvent{Type: "cart_updated", cartResponse: newCartResponse(h.carts.Open(c).Cart(), "")}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
