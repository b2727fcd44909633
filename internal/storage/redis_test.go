package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a client pointing to it
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisStorage_SetGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisStorage(client)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "cart:device-1", []byte(`[{"id":"a"}]`), time.Hour))

	got, err := s.Get(ctx, "cart:device-1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))
	assert.Equal(t, time.Hour, mr.TTL("cart:device-1"))
}

func TestRedisStorage_Miss(t *testing.T) {
	client, _ := setupTestRedis(t)
	s := NewRedisStorage(client)

	_, err := s.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage_Expiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisStorage(client)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisStorage(client)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))

	// supprimer une clé absente n'est pas une erreur
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestRedisStorage_ClientError(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisStorage(client)
	mr.Close()

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "redis get failed")
}

func TestRedisPublisher_PublishSubscribe(t *testing.T) {
	client, _ := setupTestRedis(t)
	p := NewRedisPublisher(client)
	ctx := context.Background()

	sub := p.Subscribe(ctx, "cart:device-1")
	defer sub.Close()
	_, err := sub.Receive(ctx) // confirmation d'abonnement
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, "cart:device-1", "updated"))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "updated", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
