// Package checkout enchaîne la commande et le paiement : validation, création
// de la commande, initialisation puis confirmation du paiement, vidage du panier.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resto_storefront/internal/backend"
	"resto_storefront/internal/cart"
	"resto_storefront/internal/models"
)

// OrderAPI est l'API REST externe du restaurant
type OrderAPI interface {
	CreateOrder(ctx context.Context, token, idempotencyKey string, req backend.OrderRequest) (*models.PlacedOrder, error)
	CreatePaymentIntent(ctx context.Context, token string, amount int64, orderID string) (string, error)
}

type ConfirmStatus string

const (
	ConfirmSucceeded     ConfirmStatus = "succeeded"
	ConfirmDeclined      ConfirmStatus = "declined"
	ConfirmIndeterminate ConfirmStatus = "indeterminate"
)

type PaymentOutcome struct {
	Status  ConfirmStatus
	Message string
}

// PaymentConfirmer est le widget de paiement hébergé
type PaymentConfirmer interface {
	Confirm(ctx context.Context, clientSecret, paymentMethodID string) (PaymentOutcome, error)
}

const (
	msgOrderFailed       = "Impossible de créer la commande, veuillez réessayer"
	msgPaymentInitFailed = "Impossible d'initialiser le paiement, veuillez réessayer"
	msgPaymentFailed     = "Le paiement n'a pas pu être confirmé, veuillez réessayer"
	msgPaymentNotReady   = "Le paiement n'est pas initialisé"
	msgNoPendingPayment  = "Aucune commande en attente de paiement"
)

type Orchestrator struct {
	api       OrderAPI
	confirmer PaymentConfirmer
	attempts  *AttemptStore
	validator *Validator
	log       *zap.Logger
	newKey    func() string
}

func NewOrchestrator(api OrderAPI, confirmer PaymentConfirmer, attempts *AttemptStore, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		api:       api,
		confirmer: confirmer,
		attempts:  attempts,
		validator: NewValidator(),
		log:       log,
		newKey:    uuid.NewString,
	}
}

// PlaceOrder valide le brouillon, crée la commande puis, pour la carte,
// demande le client secret du paiement.
func (o *Orchestrator) PlaceOrder(ctx context.Context, actor models.Actor, store *cart.Store, draft models.DraftOrder) Result {
	snapshot := store.Cart()
	if snapshot.IsEmpty() {
		return Result{Kind: KindEmptyCart, Err: ErrEmptyCart, Message: "Votre panier est vide"}
	}

	draft = draft.Normalize()
	if fields := o.validator.Validate(draft); fields != nil {
		return Result{
			Kind:        KindValidationError,
			FieldErrors: fields,
			Message:     "Veuillez corriger les champs indiqués",
			Err:         ErrValidation,
		}
	}

	fingerprint := Fingerprint(draft, snapshot)
	attempt := o.attemptFor(ctx, store.Key(), fingerprint)

	// resoumission du même panier : la commande existe déjà, on reprend le paiement
	if attempt.Order != nil {
		o.log.Info("🔁 Commande déjà créée, reprise du paiement",
			zap.String("order_id", attempt.Order.ID), zap.String("user_id", actor.UserID))
		if attempt.Order.PaymentClientSecret != "" {
			return Result{Kind: KindAwaitingPayment, Order: attempt.Order}
		}
		return o.initPayment(ctx, actor, store.Key(), attempt)
	}
	o.record(ctx, store.Key(), attempt)

	req := buildOrderRequest(draft, snapshot)
	order, err := o.api.CreateOrder(ctx, actor.Token, attempt.IdempotencyKey, req)
	if err == nil && (order == nil || order.ID == "") {
		err = errors.New("order response has no id")
	}
	if err != nil {
		o.log.Warn("❌ Création de commande échouée",
			zap.String("user_id", actor.UserID),
			zap.String("payment_method", string(draft.PaymentMethod)),
			zap.Error(err))
		return Result{
			Kind:    KindOrderFailed,
			Message: apiMessage(err, msgOrderFailed),
			Err:     fmt.Errorf("%w: %v", ErrOrderCreationFailed, err),
		}
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = draft.PaymentMethod
	}

	o.log.Info("🧾 Commande créée",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total", order.Total),
		zap.String("payment_method", string(draft.PaymentMethod)))

	if draft.PaymentMethod == models.PaymentAtPickup {
		store.Clear(ctx)
		o.forget(ctx, store.Key(), order.ID)
		return Result{Kind: KindConfirmed, Order: order, Message: "Commande confirmée"}
	}

	attempt.Order = order
	return o.initPayment(ctx, actor, store.Key(), attempt)
}

// attemptFor reprend la tentative enregistrée si elle porte sur la même
// soumission, sinon en démarre une nouvelle avec une clé d'idempotence neuve.
func (o *Orchestrator) attemptFor(ctx context.Context, cartKey, fingerprint string) Attempt {
	prior, err := o.attempts.Load(ctx, cartKey)
	if err != nil && !errors.Is(err, ErrNoPendingPayment) {
		o.log.Warn("⚠️ Lecture de la tentative de paiement échouée", zap.String("key", cartKey), zap.Error(err))
	}
	if err == nil && prior.Matches(fingerprint) {
		return *prior
	}
	return Attempt{IdempotencyKey: o.newKey(), Fingerprint: fingerprint}
}

// RetryPaymentInit redemande le client secret pour la commande en attente,
// sans jamais recréer la commande.
func (o *Orchestrator) RetryPaymentInit(ctx context.Context, actor models.Actor, store *cart.Store) Result {
	attempt, res, ok := o.pending(ctx, store.Key())
	if !ok {
		return res
	}
	return o.initPayment(ctx, actor, store.Key(), *attempt)
}

// ConfirmPayment confirme le paiement via le widget hébergé. Seul un succès
// explicite vide le panier.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, store *cart.Store, paymentMethodID string) Result {
	attempt, res, ok := o.pending(ctx, store.Key())
	if !ok {
		return res
	}
	order := attempt.Order
	if order.PaymentClientSecret == "" {
		return Result{Kind: KindPaymentInitFailed, Order: order, Message: msgPaymentNotReady, Err: ErrPaymentInitFailed}
	}

	outcome, err := o.confirmer.Confirm(ctx, order.PaymentClientSecret, paymentMethodID)
	if err != nil {
		o.log.Warn("⚠️ Confirmation de paiement en erreur", zap.String("order_id", order.ID), zap.Error(err))
		return Result{Kind: KindPaymentDeclined, Order: order, Message: msgPaymentFailed,
			Err: fmt.Errorf("%w: %v", ErrPaymentDeclined, err)}
	}

	switch outcome.Status {
	case ConfirmSucceeded:
		store.Clear(ctx)
		o.forget(ctx, store.Key(), order.ID)
		o.log.Info("💳 Paiement confirmé", zap.String("order_id", order.ID), zap.String("order_number", order.OrderNumber))
		return Result{Kind: KindConfirmed, Order: order, Message: "Paiement confirmé"}

	case ConfirmDeclined:
		msg := outcome.Message
		if msg == "" {
			msg = msgPaymentFailed
		}
		o.log.Info("💳 Paiement refusé", zap.String("order_id", order.ID), zap.String("reason", outcome.Message))
		return Result{Kind: KindPaymentDeclined, Order: order, Message: msg, Err: ErrPaymentDeclined}

	default:
		o.log.Warn("⚠️ Résultat de paiement indéterminé",
			zap.String("order_id", order.ID), zap.String("status", string(outcome.Status)))
		return Result{Kind: KindPaymentDeclined, Order: order, Message: msgPaymentFailed, Err: ErrPaymentDeclined}
	}
}

// Pending retourne la commande en attente de paiement, s'il y en a une
func (o *Orchestrator) Pending(ctx context.Context, store *cart.Store) (*models.PlacedOrder, error) {
	attempt, err := o.attempts.Load(ctx, store.Key())
	if err != nil {
		return nil, err
	}
	if attempt.Order == nil {
		return nil, ErrNoPendingPayment
	}
	return attempt.Order, nil
}

// pending : seule une tentative dont la commande existe peut être payée
func (o *Orchestrator) pending(ctx context.Context, cartKey string) (*Attempt, Result, bool) {
	attempt, err := o.attempts.Load(ctx, cartKey)
	if err == nil && attempt.Order == nil {
		err = ErrNoPendingPayment
	}
	if errors.Is(err, ErrNoPendingPayment) {
		return nil, Result{Kind: KindNoPendingPayment, Message: msgNoPendingPayment, Err: ErrNoPendingPayment}, false
	}
	if err != nil {
		o.log.Warn("⚠️ Lecture de la tentative de paiement échouée", zap.String("key", cartKey), zap.Error(err))
		return nil, Result{Kind: KindNoPendingPayment, Message: msgNoPendingPayment,
			Err: fmt.Errorf("%w: %v", ErrNoPendingPayment, err)}, false
	}
	return attempt, Result{}, true
}

// initPayment : le montant est le total calculé par le serveur, jamais le sous-total du panier
func (o *Orchestrator) initPayment(ctx context.Context, actor models.Actor, cartKey string, attempt Attempt) Result {
	order := attempt.Order
	order.PaymentClientSecret = ""

	secret, err := o.api.CreatePaymentIntent(ctx, actor.Token, order.Total, order.ID)
	if err != nil {
		o.record(ctx, cartKey, attempt)
		o.log.Warn("❌ Initialisation du paiement échouée", zap.String("order_id", order.ID), zap.Error(err))
		return Result{
			Kind:    KindPaymentInitFailed,
			Order:   order,
			Message: apiMessage(err, msgPaymentInitFailed),
			Err:     fmt.Errorf("%w: %v", ErrPaymentInitFailed, err),
		}
	}

	order.PaymentClientSecret = secret
	o.record(ctx, cartKey, attempt)
	return Result{Kind: KindAwaitingPayment, Order: order}
}

func (o *Orchestrator) record(ctx context.Context, cartKey string, attempt Attempt) {
	if err := o.attempts.Save(ctx, cartKey, attempt); err != nil {
		o.log.Warn("⚠️ Sauvegarde de la tentative de paiement échouée", zap.String("key", cartKey), zap.Error(err))
	}
}

func (o *Orchestrator) forget(ctx context.Context, cartKey, orderID string) {
	if err := o.attempts.Forget(ctx, cartKey); err != nil {
		o.log.Warn("⚠️ Suppression de la tentative échouée", zap.String("order_id", orderID), zap.Error(err))
	}
}

func buildOrderRequest(draft models.DraftOrder, c models.Cart) backend.OrderRequest {
	lines := make([]backend.OrderLine, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, backend.OrderLine{ID: item.ID, Quantity: item.Quantity})
	}
	return backend.OrderRequest{
		Customer: backend.Customer{
			Name:    draft.Name,
			Phone:   draft.Phone,
			Email:   draft.Email,
			Address: draft.Address,
		},
		Type:          draft.Type,
		PaymentMethod: draft.PaymentMethod,
		Notes:         draft.Notes,
		Items:         lines,
	}
}

// apiMessage expose le message de l'API pour les refus métier (4xx), sinon un message générique
func apiMessage(err error, fallback string) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
