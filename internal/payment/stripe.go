package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"go.uber.org/zap"

	"resto_storefront/internal/checkout"
)

type confirmFunc func(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)

// StripeConfirmer confirme un PaymentIntent Stripe à partir de son client secret
type StripeConfirmer struct {
	returnURL string
	confirm   confirmFunc
	logger    *zap.Logger
}

// NewStripeConfirmer suppose stripe.Key déjà initialisée
func NewStripeConfirmer(returnURL string, logger *zap.Logger) *StripeConfirmer {
	return &StripeConfirmer{
		returnURL: returnURL,
		confirm:   paymentintent.Confirm,
		logger:    logger,
	}
}

// IntentID extrait l'id "pi_..." d'un client secret "pi_..._secret_..."
func IntentID(clientSecret string) (string, error) {
	id, _, found := strings.Cut(clientSecret, "_secret_")
	if !found || !strings.HasPrefix(id, "pi_") {
		return "", fmt.Errorf("malformed payment client secret")
	}
	return id, nil
}

func (s *StripeConfirmer) Confirm(ctx context.Context, clientSecret, paymentMethodID string) (checkout.PaymentOutcome, error) {
	id, err := IntentID(clientSecret)
	if err != nil {
		return checkout.PaymentOutcome{}, err
	}
	if paymentMethodID == "" {
		return checkout.PaymentOutcome{Status: checkout.ConfirmDeclined, Message: "Moyen de paiement manquant"}, nil
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx
	if s.returnURL != "" {
		params.ReturnURL = stripe.String(s.returnURL)
	}

	intent, err := s.confirm(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return checkout.PaymentOutcome{Status: checkout.ConfirmDeclined, Message: stripeErr.Msg}, nil
		}
		s.logger.Warn("❌ Erreur Stripe", zap.String("payment_intent", id), zap.Error(err))
		return checkout.PaymentOutcome{Status: checkout.ConfirmIndeterminate}, nil
	}

	return outcomeFor(intent), nil
}

func outcomeFor(intent *stripe.PaymentIntent) checkout.PaymentOutcome {
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return checkout.PaymentOutcome{Status: checkout.ConfirmSucceeded}
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		msg := ""
		if intent.LastPaymentError != nil {
			msg = intent.LastPaymentError.Msg
		}
		return checkout.PaymentOutcome{Status: checkout.ConfirmDeclined, Message: msg}
	default:
		// processing, requires_action, requires_capture... : pas de succès supposé
		return checkout.PaymentOutcome{Status: checkout.ConfirmIndeterminate, Message: string(intent.Status)}
	}
}
