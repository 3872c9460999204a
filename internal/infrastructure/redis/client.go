// Package redis envuelve go-redis para el caché de enriquecimiento y el lock del barrido.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Client cliente Redis con helpers JSON.
type Client struct {
	rdb    *redis.Client
	locker *redislock.Client
}

// Options parámetros de conexión.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient conecta y verifica con PING.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("conectar a redis %s: %w", opts.Addr, err)
	}
	return &Client{rdb: rdb, locker: redislock.New(rdb)}, nil
}

// GetJSON lee key y la decodifica en dest. Devuelve false si la clave no existe.
func (c *Client) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("decodificar %s: %w", key, err)
	}
	return true, nil
}

// SetJSON guarda value codificado en JSON con expiración ttl.
func (c *Client) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// Locker cliente de locks distribuidos sobre la misma conexión.
func (c *Client) Locker() *redislock.Client {
	return c.locker
}

// Ping verifica la conexión.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close cierra la conexión.
func (c *Client) Close() error {
	return c.rdb.Close()
}
