package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cart:"

// Store persists carts as JSON documents in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Redis cart store. Carts expire after ttl of inactivity.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

// Key returns the Redis key holding the cart document.
func Key(id string) string {
	return keyPrefix + id
}

// LockKey returns the key used to serialise mutations of a cart.
func LockKey(id string) string {
	return keyPrefix + id + ":lock"
}

// Get loads a cart. A missing key yields ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.client == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	if strings.TrimSpace(id) == "" {
		return Cart{}, ErrNotFound
	}
	data, err := s.client.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Save serialises the cart and refreshes its TTL.
func (s *Store) Save(ctx context.Context, c Cart) error {
	if s == nil || s.client == nil {
		return errors.New("cart store not configured")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, Key(c.ID), data, s.ttl).Err()
}

// Delete removes the cart.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return errors.New("cart store not configured")
	}
	return s.client.Del(ctx, Key(id)).Err()
}

// IDs scans the keyspace for stored cart ids.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("cart store not configured")
	}
	var ids []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), keyPrefix)
		if id == "" || strings.HasSuffix(id, ":lock") {
			continue
		}
		ids = append(ids, id)
	}
	return ids, iter.Err()
}
