package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/web3market/marketd/core"
)

const (
	challengePrefix = "marketd:challenge:"
	sessionPrefix   = "marketd:session:"
)

// Redis holds challenges and sessions in Redis. Consumption maps to GETDEL,
// which is the store's atomic lookup-and-remove; expiry rides on key TTLs
// with the stored expiry double-checked on read.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis creates a Redis-backed challenge/session store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (r *Redis) PutChallenge(ctx context.Context, payload string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return core.ErrStoreOperationFailed
	}
	set, err := r.client.SetNX(ctx, challengePrefix+payload, expiresAt.UnixMilli(), ttl).Result()
	if err != nil {
		return fmt.Errorf("put challenge: %w", err)
	}
	if !set {
		return core.ErrStoreOperationFailed
	}
	return nil
}

func (r *Redis) ConsumeChallenge(ctx context.Context, payload string) (bool, error) {
	val, err := r.client.GetDel(ctx, challengePrefix+payload).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume challenge: %w", err)
	}

	var expiresMs int64
	if _, err := fmt.Sscan(val, &expiresMs); err != nil {
		return false, nil
	}
	return r.now().UnixMilli() < expiresMs, nil
}

type sessionRecord struct {
	Wallet    string `json:"wallet"`
	ExpiresAt int64  `json:"expiresAt"` // unix milliseconds
}

func (r *Redis) PutSession(ctx context.Context, session core.Session) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return core.ErrStoreOperationFailed
	}
	payload, err := json.Marshal(sessionRecord{
		Wallet:    session.Wallet,
		ExpiresAt: session.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionPrefix+session.TokenHash, payload, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *Redis) GetSession(ctx context.Context, tokenHash string) (*core.Session, error) {
	val, err := r.client.Get(ctx, sessionPrefix+tokenHash).Result()
	if err == redis.Nil {
		return nil, core.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, core.ErrUnauthenticated
	}
	return &core.Session{
		TokenHash: tokenHash,
		Wallet:    record.Wallet,
		ExpiresAt: time.UnixMilli(record.ExpiresAt),
	}, nil
}
