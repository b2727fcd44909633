package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resto_storefront/internal/models"
	"resto_storefront/internal/storage"
)

const DefaultAttemptTTL = 24 * time.Hour

// Attempt est la dernière soumission d'un appareil. La clé d'idempotence est
// rejouée tant que le brouillon et le panier ne changent pas; Order est posé
// dès que l'API a créé la commande.
type Attempt struct {
	IdempotencyKey string              `json:"idempotencyKey"`
	Fingerprint    string              `json:"fingerprint"`
	Order          *models.PlacedOrder `json:"order,omitempty"`
}

// Matches : même brouillon, même panier
func (a *Attempt) Matches(fingerprint string) bool {
	return a != nil && a.Fingerprint == fingerprint
}

// Fingerprint identifie une soumission (brouillon normalisé + lignes du panier)
func Fingerprint(draft models.DraftOrder, c models.Cart) string {
	data, _ := json.Marshal(struct {
		Draft models.DraftOrder     `json:"draft"`
		Items []models.CartLineItem `json:"items"`
	}{draft, c.Items})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AttemptStore garde la tentative de commande d'un appareil, pour reprendre le
// paiement sans recréer la commande.
type AttemptStore struct {
	storage storage.Storage
	ttl     time.Duration
}

func NewAttemptStore(st storage.Storage, ttl time.Duration) *AttemptStore {
	if ttl <= 0 {
		ttl = DefaultAttemptTTL
	}
	return &AttemptStore{storage: st, ttl: ttl}
}

func attemptKey(cartKey string) string {
	return "checkout:" + cartKey
}

func (a *AttemptStore) Save(ctx context.Context, cartKey string, attempt Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt failed: %w", err)
	}
	return a.storage.Set(ctx, attemptKey(cartKey), data, a.ttl)
}

// Load retourne ErrNoPendingPayment s'il n'y a pas de tentative
func (a *AttemptStore) Load(ctx context.Context, cartKey string) (*Attempt, error) {
	data, err := a.storage.Get(ctx, attemptKey(cartKey))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoPendingPayment
	}
	if err != nil {
		return nil, err
	}

	var attempt Attempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return nil, fmt.Errorf("unmarshal attempt failed: %w", err)
	}
	return &attempt, nil
}

func (a *AttemptStore) Forget(ctx context.Context, cartKey string) error {
	return a.storage.Delete(ctx, attemptKey(cartKey))
}
