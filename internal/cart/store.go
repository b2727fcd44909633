// Package cart contient le panier d'un appareil : ajout, suppression, vidage,
// sous-total, avec un snapshot persisté après chaque mutation. Store.mu protège
// une instance; entre requêtes, Update sérialise par clé via storage.Locker.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"resto_storefront/internal/models"
	"resto_storefront/internal/storage"
)

var (
	ErrForbidden   = errors.New("only an authenticated customer can modify the cart")
	ErrInvalidItem = errors.New("menu item must have an id and a non-negative price")
)

const (
	EventUpdated = "updated"
	EventCleared = "cleared"

	DefaultTTL = 30 * 24 * time.Hour
)

// Notifier est prévenu après chaque mutation (synchronisation multi-onglets)
type Notifier interface {
	Publish(ctx context.Context, channel, event string) error
}

// Key retourne la clé du snapshot d'un appareil
func Key(deviceID string) string {
	return "cart:" + deviceID
}

type Store struct {
	mu       sync.Mutex
	key      string
	items    []models.CartLineItem
	storage  storage.Storage
	notifier Notifier
	ttl      time.Duration
	log      *zap.Logger
}

type Option func(*Store)

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open charge le panier depuis le snapshot persisté. Un snapshot absent ou
// illisible donne un panier vide.
func Open(ctx context.Context, st storage.Storage, key string, opts ...Option) *Store {
	s := &Store{
		key:     key,
		storage: st,
		ttl:     DefaultTTL,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hydrate(ctx)
	return s
}

// Update ouvre le panier sous le verrou de sa clé puis applique fn. Le verrou
// couvre la lecture du snapshot et l'écriture qui suit : deux requêtes du même
// appareil ne peuvent pas s'écraser.
func Update(ctx context.Context, locker storage.Locker, st storage.Storage, key string, fn func(*Store) error, opts ...Option) (*Store, error) {
	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s := Open(ctx, st, key, opts...)
	return s, fn(s)
}

func (s *Store) hydrate(ctx context.Context) {
	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.Warn("⚠️ Lecture du panier impossible", zap.String("key", s.key), zap.Error(err))
		return
	}

	var items []models.CartLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("⚠️ Snapshot panier illisible, panier vide", zap.String("key", s.key), zap.Error(err))
		return
	}
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 || item.UnitPrice < 0 {
			continue
		}
		s.items = append(s.items, item)
	}
}

// AddItem ajoute une unité du plat : incrémente la ligne existante ou en crée une
func (s *Store) AddItem(ctx context.Context, actor models.Actor, item models.MenuItem) error {
	if !actor.CanShop() {
		s.log.Warn("🚫 Ajout au panier refusé",
			zap.String("user_id", actor.UserID), zap.String("role", actor.Role))
		return ErrForbidden
	}
	if item.ID == "" || item.Price < 0 {
		return ErrInvalidItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		s.items = append(s.items, models.CartLineItem{
			ID:        item.ID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.Price,
			Quantity:  1,
		})
	}

	s.persist(ctx)
	return nil
}

// RemoveItem supprime toute la ligne (pas de décrément). Sans effet si absente.
func (s *Store) RemoveItem(ctx context.Context, actor models.Actor, id string) error {
	if !actor.CanShop() {
		s.log.Warn("🚫 Suppression du panier refusée",
			zap.String("user_id", actor.UserID), zap.String("role", actor.Role))
		return ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	removed := false
	for _, item := range s.items {
		if item.ID == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	if !removed {
		return nil
	}

	s.persist(ctx)
	return nil
}

// Clear vide le panier et supprime le snapshot
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.log.Warn("⚠️ Suppression du snapshot panier échouée", zap.String("key", s.key), zap.Error(err))
	}
	s.notify(ctx, EventCleared)
}

// Cart retourne une copie du panier courant
func (s *Store) Cart() models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.CartLineItem, len(s.items))
	copy(items, s.items)
	return models.Cart{Items: items}
}

func (s *Store) Items() []models.CartLineItem {
	return s.Cart().Items
}

func (s *Store) Subtotal() int64 {
	return s.Cart().Subtotal()
}

func (s *Store) Count() int {
	return s.Cart().Count()
}

func (s *Store) IsEmpty() bool {
	return s.Cart().IsEmpty()
}

func (s *Store) Key() string {
	return s.key
}

// persist écrit le snapshot. Les erreurs sont journalisées et ignorées :
// le panier n'est qu'un cache, la commande de référence vit côté API.
func (s *Store) persist(ctx context.Context) {
	if len(s.items) == 0 {
		if err := s.storage.Delete(ctx, s.key); err != nil {
			s.log.Warn("⚠️ Suppression du snapshot panier échouée", zap.String("key", s.key), zap.Error(err))
		}
		s.notify(ctx, EventCleared)
		return
	}

	data, err := json.Marshal(s.items)
	if err != nil {
		s.log.Warn("⚠️ Sérialisation du panier échouée", zap.String("key", s.key), zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, s.key, data, s.ttl); err != nil {
		s.log.Warn("⚠️ Sauvegarde du panier échouée", zap.String("key", s.key), zap.Error(err))
	}
	s.notify(ctx, EventUpdated)
}

func (s *Store) notify(ctx context.Context, event string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, s.key, event); err != nil {
		s.log.Debug("notification panier échouée", zap.String("key", s.key), zap.Error(err))
	}
}
