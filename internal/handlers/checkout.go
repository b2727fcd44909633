package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resto_storefront/internal/cart"
	"resto_storefront/internal/checkout"
	"resto_storefront/internal/middleware"
	"resto_storefront/internal/models"
)

type CheckoutHandler struct {
	carts        *CartHandler
	orchestrator *checkout.Orchestrator
	orders       *OrdersHandler
}

// NewCheckoutHandler : orders (optionnel) voit son cache invalidé quand une commande aboutit
func NewCheckoutHandler(carts *CartHandler, orchestrator *checkout.Orchestrator, orders *OrdersHandler) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, orchestrator: orchestrator, orders: orders}
}

// run exécute une étape du checkout sous le verrou du panier : deux soumissions
// simultanées du même appareil ne créent pas deux commandes.
func (h *CheckoutHandler) run(c *gin.Context, step func(*cart.Store) checkout.Result) {
	var res checkout.Result
	_, err := h.carts.Update(c, func(s *cart.Store) error {
		res = step(s)
		return nil
	})
	if err != nil {
		writeCartError(c, err)
		return
	}

	if res.OK() && h.orders != nil {
		h.orders.Invalidate(c.Request.Context(), middleware.ActorFrom(c).UserID)
	}
	writeResult(c, res)
}

// POST /api/checkout
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var draft models.DraftOrder
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	h.run(c, func(s *cart.Store) checkout.Result {
		return h.orchestrator.PlaceOrder(c.Request.Context(), middleware.ActorFrom(c), s, draft)
	})
}

// POST /api/checkout/payment/retry
func (h *CheckoutHandler) RetryPayment(c *gin.Context) {
	h.run(c, func(s *cart.Store) checkout.Result {
		return h.orchestrator.RetryPaymentInit(c.Request.Context(), middleware.ActorFrom(c), s)
	})
}

type confirmRequest struct {
	PaymentMethodID string `json:"paymentMethodId" binding:"required"`
}

// POST /api/checkout/payment/confirm
func (h *CheckoutHandler) ConfirmPayment(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Moyen de paiement manquant"})
		return
	}

	h.run(c, func(s *cart.Store) checkout.Result {
		return h.orchestrator.ConfirmPayment(c.Request.Context(), s, req.PaymentMethodID)
	})
}

// GET /api/checkout/pending : commande créée mais pas encore payée
func (h *CheckoutHandler) Pending(c *gin.Context) {
	order, err := h.orchestrator.Pending(c.Request.Context(), h.carts.Open(c))
	if errors.Is(err, checkout.ErrNoPendingPayment) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Aucune commande en attente de paiement"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture paiement"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func statusFor(kind checkout.Kind) int {
	switch kind {
	case checkout.KindConfirmed:
		return http.StatusCreated
	case checkout.KindAwaitingPayment:
		return http.StatusOK
	case checkout.KindValidationError:
		return http.StatusUnprocessableEntity
	case checkout.KindEmptyCart:
		return http.StatusConflict
	case checkout.KindNoPendingPayment:
		return http.StatusNotFound
	case checkout.KindPaymentDeclined:
		return http.StatusPaymentRequired
	case checkout.KindOrderFailed, checkout.KindPaymentInitFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(c *gin.Context, res checkout.Result) {
	c.JSON(statusFor(res.Kind), res)
}
