package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resto_storefront/internal/models"
	"resto_storefront/internal/storage"
)

var (
	customer  = models.Actor{UserID: "u-1", Role: models.RoleCustomer}
	anonymous = models.Actor{}
	admin     = models.Actor{UserID: "u-2", Role: models.RoleAdmin}

	pizza = models.MenuItem{ID: "A", Name: "Margherita", ImageURL: "https://img/a.jpg", Price: 500}
	salad = models.MenuItem{ID: "B", Name: "Caesar", Price: 750}
)

// failingStorage simule un stockage indisponible
type failingStorage struct{}

func (failingStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("storage down")
}
func (failingStorage) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("storage down")
}
func (failingStorage) Delete(context.Context, string) error { return errors.New("storage down") }

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Publish(_ context.Context, channel, event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, channel+"="+event)
	return nil
}

func TestAddItem_TwiceIncrementsQuantity(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, storage.NewMemoryStorage(), Key("device-1"))

	require.NoError(t, s.AddItem(ctx, customer, pizza))
	require.NoError(t, s.AddItem(ctx, customer, pizza))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(500), items[0].UnitPrice)
	assert.Equal(t, int64(1000), s.Subtotal())

	require.NoError(t, s.RemoveItem(ctx, customer, "A"))
	assert.True(t, s.IsEmpty())
	assert.Equal(t, int64(0), s.Subtotal())
}

func TestAddItem_CopiesDisplayMetadata(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, storage.NewMemoryStorage(), Key("device-1"))

	require.NoError(t, s.AddItem(ctx, customer, pizza))
	changed := pizza
	changed.Price = 9999
	changed.Name = "Renamed"
	require.NoError(t, s.AddItem(ctx, customer, changed))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Margherita", items[0].Name)
	assert.Equal(t, "https://img/a.jpg", items[0].ImageURL)
	assert.Equal(t, int64(500), items[0].UnitPrice)
}

func TestAddItem_RejectsNonCustomers(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	s := Open(ctx, st, Key("device-1"))

	assert.ErrorIs(t, s.AddItem(ctx, anonymous, pizza), ErrForbidden)
	assert.ErrorIs(t, s.AddItem(ctx, admin, pizza), ErrForbidden)
	assert.ErrorIs(t, s.AddItem(ctx, models.Actor{Role: models.RoleCustomer}, pizza), ErrForbidden)
	assert.True(t, s.IsEmpty())

	_, err := st.Get(ctx, Key("device-1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemoveItem_RejectsNonCustomers(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, storage.NewMemoryStorage(), Key("device-1"))
	require.NoError(t, s.AddItem(ctx, customer, pizza))

	assert.ErrorIs(t, s.RemoveItem(ctx, anonymous, "A"), ErrForbidden)
	assert.Equal(t, 1, s.Count())
}

func TestAddItem_InvalidItem(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, storage.NewMemoryStorage(), Key("device-1"))

	assert.ErrorIs(t, s.AddItem(ctx, customer, models.MenuItem{Price: 100}), ErrInvalidItem)
	assert.ErrorIs(t, s.AddItem(ctx, customer, models.MenuItem{ID: "x", Price: -1}), ErrInvalidItem)
	assert.True(t, s.IsEmpty())
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	s := Open(ctx, storage.NewMemoryStorage(), Key("device-1"), WithNotifier(n))
	require.NoError(t, s.AddItem(ctx, customer, pizza))

	require.NoError(t, s.RemoveItem(ctx, customer, "missing"))
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, []string{"cart:device-1=updated"}, n.events)
}

func TestClear_RemovesSnapshot(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	s := Open(ctx, st, Key("device-1"))
	require.NoError(t, s.AddItem(ctx, customer, pizza))
	require.NoError(t, s.AddItem(ctx, customer, salad))

	s.Clear(ctx)

	assert.Equal(t, int64(0), s.Subtotal())
	assert.True(t, s.IsEmpty())
	_, err := st.Get(ctx, Key("device-1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemoveLastItem_RemovesSnapshot(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	s := Open(ctx, st, Key("device-1"))
	require.NoError(t, s.AddItem(ctx, customer, pizza))

	require.NoError(t, s.RemoveItem(ctx, customer, "A"))
	_, err := st.Get(ctx, Key("device-1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubtotal_IsPure(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	s := Open(ctx, storage.NewMemoryStorage(), Key("device-1"), WithNotifier(n))
	require.NoError(t, s.AddItem(ctx, customer, pizza))
	require.NoError(t, s.AddItem(ctx, customer, salad))
	before := len(n.events)

	first := s.Subtotal()
	second := s.Subtotal()

	assert.Equal(t, int64(1250), first)
	assert.Equal(t, first, second)
	assert.Len(t, n.events, before)
	assert.Len(t, s.Items(), 2)
}

func TestReload_ReproducesCart(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	s := Open(ctx, st, Key("device-1"))
	require.NoError(t, s.AddItem(ctx, customer, pizza))
	require.NoError(t, s.AddItem(ctx, customer, salad))
	require.NoError(t, s.AddItem(ctx, customer, pizza))

	reloaded := Open(ctx, st, Key("device-1"))

	assert.Equal(t, s.Items(), reloaded.Items())
	assert.Equal(t, s.Subtotal(), reloaded.Subtotal())
}

func TestReload_FromRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	st := storage.NewRedisStorage(client)

	s := Open(ctx, st, Key("device-9"), WithTTL(time.Hour))
	require.NoError(t, s.AddItem(ctx, customer, salad))

	assert.True(t, mr.Exists("cart:device-9"))
	assert.Equal(t, time.Hour, mr.TTL("cart:device-9"))

	reloaded := Open(ctx, st, Key("device-9"))
	assert.Equal(t, s.Items(), reloaded.Items())
}

func TestOpen_CorruptSnapshotIsEmpty(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	require.NoError(t, st.Set(ctx, Key("device-1"), []byte(`[{"id":"A","quan`), 0))

	s := Open(ctx, st, Key("device-1"))
	assert.True(t, s.IsEmpty())
}

func TestOpen_DropsInvalidLines(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	raw := `[{"id":"A","unitPrice":500,"quantity":2},{"id":"","unitPrice":1,"quantity":1},{"id":"C","unitPrice":1,"quantity":0}]`
	require.NoError(t, st.Set(ctx, Key("device-1"), []byte(raw), 0))

	s := Open(ctx, st, Key("device-1"))
	require.Len(t, s.Items(), 1)
	assert.Equal(t, int64(1000), s.Subtotal())
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, failingStorage{}, Key("device-1"))

	require.NoError(t, s.AddItem(ctx, customer, pizza))
	require.NoError(t, s.AddItem(ctx, customer, pizza))
	assert.Equal(t, int64(1000), s.Subtotal())

	require.NoError(t, s.RemoveItem(ctx, customer, "A"))
	s.Clear(ctx)
	assert.True(t, s.IsEmpty())
}

func TestNotifier_Events(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	s := Open(ctx, storage.NewMemoryStorage(), Key("d"), WithNotifier(n))

	require.NoError(t, s.AddItem(ctx, customer, pizza))
	require.NoError(t, s.RemoveItem(ctx, customer, "A"))
	require.NoError(t, s.AddItem(ctx, customer, salad))
	s.Clear(ctx)

	assert.Equal(t, []string{"cart:d=updated", "cart:d=cleared", "cart:d=updated", "cart:d=cleared"}, n.events)
}

// Pour toute séquence d'ajouts/suppressions : une ligne par id, quantité =
// nombre d'ajouts depuis la dernière suppression, sous-total cohérent.
func TestRandomSequences_Invariants(t *testing.T) {
	ctx := context.Background()
	menu := []models.MenuItem{
		{ID: "A", Price: 500},
		{ID: "B", Price: 750},
		{ID: "C", Price: 1200},
		{ID: "D", Price: 0},
	}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		st := storage.NewMemoryStorage()
		s := Open(ctx, st, Key("device"))
		expected := map[string]int{}

		for step := 0; step < 30; step++ {
			item := menu[rng.Intn(len(menu))]
			if rng.Intn(3) == 0 {
				require.NoError(t, s.RemoveItem(ctx, customer, item.ID))
				delete(expected, item.ID)
			} else {
				require.NoError(t, s.AddItem(ctx, customer, item))
				expected[item.ID]++
			}
		}

		items := s.Items()
		seen := map[string]bool{}
		var subtotal int64
		for _, line := range items {
			assert.False(t, seen[line.ID], "duplicate line %s", line.ID)
			seen[line.ID] = true
			assert.Equal(t, expected[line.ID], line.Quantity)
			subtotal += line.UnitPrice * int64(line.Quantity)
		}
		assert.Len(t, items, len(expected))
		assert.Equal(t, subtotal, s.Subtotal())

		reloaded := Open(ctx, st, Key("device"))
		if len(items) == 0 {
			assert.True(t, reloaded.IsEmpty())
		} else {
			assert.Equal(t, items, reloaded.Items())
		}
	}
}

func TestConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, storage.NewMemoryStorage(), Key("device"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AddItem(ctx, customer, pizza)
		}()
	}
	wg.Wait()

	require.Len(t, s.Items(), 1)
	assert.Equal(t, 50, s.Items()[0].Quantity)
}

// slowStorage ajoute une latence de lecture pour élargir la fenêtre de course
type slowStorage struct {
	storage.Storage
	delay time.Duration
}

func (s slowStorage) Get(ctx context.Context, key string) ([]byte, error) {
	time.Sleep(s.delay)
	return s.Storage.Get(ctx, key)
}

func TestUpdate_ConcurrentRequestsDoNotLoseAdds(t *testing.T) {
	ctx := context.Background()
	st := slowStorage{Storage: storage.NewMemoryStorage(), delay: 2 * time.Millisecond}
	locker := storage.NewKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// une instance de Store par requête, comme côté HTTP
			_, err := Update(ctx, locker, st, Key("dev"), func(s *Store) error {
				return s.AddItem(ctx, customer, pizza)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items := Open(ctx, st, Key("dev")).Items()
	require.Len(t, items, 1)
	assert.Equal(t, 20, items[0].Quantity)
}

func TestUpdate_RedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	st := slowStorage{Storage: storage.NewRedisStorage(client), delay: time.Millisecond}
	locker := storage.NewRedisLocker(client, time.Second, 5*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Update(ctx, locker, st, Key("dev"), func(s *Store) error {
				return s.AddItem(ctx, customer, salad)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items := Open(ctx, st, Key("dev")).Items()
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)
	assert.False(t, mr.Exists("lock:"+Key("dev")))
}

func TestUpdate_PropagatesError(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()

	s, err := Update(ctx, storage.NewKeyedMutex(), st, Key("dev"), func(s *Store) error {
		return s.AddItem(ctx, anonymous, pizza)
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.True(t, s.IsEmpty())
}
