package checkout

import (
	"encoding/json"
	"errors"

	"resto_storefront/internal/models"
)

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrValidation          = errors.New("order details are invalid")
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrPaymentInitFailed   = errors.New("payment initialisation failed")
	ErrPaymentDeclined     = errors.New("payment declined")
	ErrNoPendingPayment    = errors.New("no order awaiting payment")
)

// Kind est l'issue d'une étape du checkout
type Kind string

const (
	KindEmptyCart         Kind = "empty_cart"
	KindValidationError   Kind = "validation_error"
	KindOrderFailed       Kind = "order_failed"
	KindPaymentInitFailed Kind = "payment_init_failed"
	KindAwaitingPayment   Kind = "awaiting_payment"
	KindPaymentDeclined   Kind = "payment_declined"
	KindNoPendingPayment  Kind = "no_pending_payment"
	KindConfirmed         Kind = "confirmed"
)

// Result est retourné par chaque étape; la présentation (toast, redirection)
// est décidée par l'appelant à partir de Kind.
type Result struct {
	Kind        Kind                `json:"status"`
	Order       *models.PlacedOrder `json:"order,omitempty"`
	FieldErrors map[string]string   `json:"fieldErrors,omitempty"`
	Message     string              `json:"message,omitempty"`
	Err         error               `json:"-"`
}

func (r Result) OK() bool {
	return r.Kind == KindConfirmed || r.Kind == KindAwaitingPayment
}

// CanRetryPayment : la commande existe déjà, seul le paiement est à refaire
func (r Result) CanRetryPayment() bool {
	return r.Kind == KindPaymentInitFailed || r.Kind == KindPaymentDeclined
}

// MarshalJSON ajoute canRetryPayment pour que l'interface propose « réessayer le paiement »
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		CanRetryPayment bool `json:"canRetryPayment"`
	}{plain(r), r.CanRetryPayment()})
}
