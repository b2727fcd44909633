package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resto_storefront/internal/cart"
	"resto_storefront/internal/middleware"
	"resto_storefront/internal/models"
	"resto_storefront/internal/storage"
)

type CartHandler struct {
	storage  storage.Storage
	locker   storage.Locker
	notifier cart.Notifier
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCartHandler : notifier peut être nil (pas de synchronisation temps réel)
func NewCartHandler(st storage.Storage, locker storage.Locker, notifier cart.Notifier, ttl time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{storage: st, locker: locker, notifier: notifier, ttl: ttl, logger: logger}
}

// Open charge le panier de l'appareil courant, en lecture seule
func (h *CartHandler) Open(c *gin.Context) *cart.Store {
	return cart.Open(c.Request.Context(), h.storage, cart.Key(middleware.DeviceID(c)), h.options()...)
}

// Update applique fn au panier de l'appareil sous le verrou de sa clé
func (h *CartHandler) Update(c *gin.Context, fn func(*cart.Store) error) (*cart.Store, error) {
	return cart.Update(c.Request.Context(), h.locker, h.storage, cart.Key(middleware.DeviceID(c)), fn, h.options()...)
}

func (h *CartHandler) options() []cart.Option {
	opts := []cart.Option{cart.WithLogger(h.logger)}
	if h.ttl > 0 {
		opts = append(opts, cart.WithTTL(h.ttl))
	}
	if h.notifier != nil {
		opts = append(opts, cart.WithNotifier(h.notifier))
	}
	return opts
}

type cartResponse struct {
	Items    []models.CartLineItem `json:"items"`
	Subtotal int64                 `json:"subtotal"`
	Count    int                   `json:"count"`
	Message  string                `json:"message,omitempty"`
}

func newCartResponse(c models.Cart, message string) cartResponse {
	items := c.Items
	if items == nil {
		items = []models.CartLineItem{}
	}
	return cartResponse{Items: items, Subtotal: c.Subtotal(), Count: c.Count(), Message: message}
}

// GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, newCartResponse(h.Open(c).Cart(), ""))
}

// POST /api/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	store, err := h.Update(c, func(s *cart.Store) error {
		return s.AddItem(c.Request.Context(), middleware.ActorFrom(c), item)
	})
	if err != nil {
		writeCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartResponse(store.Cart(), "Produit ajouté au panier"))
}

// DELETE /api/cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	store, err := h.Update(c, func(s *cart.Store) error {
		return s.RemoveItem(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	})
	if err != nil {
		writeCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartResponse(store.Cart(), "Produit supprimé du panier"))
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if !middleware.ActorFrom(c).CanShop() {
		writeCartError(c, cart.ErrForbidden)
		return
	}

	store, err := h.Update(c, func(s *cart.Store) error {
		s.Clear(c.Request.Context())
		return nil
	})
	if err != nil {
		writeCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartResponse(store.Cart(), "Panier vidé avec succès"))
}

func writeCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Connectez-vous avec un compte client pour commander", "warning": true})
	case errors.Is(err, cart.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plat invalide"})
	case errors.Is(err, storage.ErrLockTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Panier occupé, veuillez réessayer"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur panier"})
	}
}
