package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"resto_storefront/internal/config"
)

// ConnectRedis ouvre le client Redis et vérifie la connexion
func ConnectRedis(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisHost,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("impossible de se connecter à Redis: %w", err)
	}

	log.Info("✅ Connecté à Redis", zap.String("addr", cfg.RedisHost))
	return client, nil
}

// ConnectScylla crée la session ScyllaDB du keyspace storefront
func ConnectScylla(cfg config.StorageConfig, log *zap.Logger) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = cfg.ScyllaKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.ReconnectInterval = 1 * time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", cfg.ScyllaKeyspace, err)
	}

	log.Info("✅ Session ScyllaDB ouverte", zap.String("keyspace", cfg.ScyllaKeyspace))
	return session, nil
}
