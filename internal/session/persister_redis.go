package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "kycportal/pkg/domain"
	"kycportal/pkg/platform/sentinel"
)

const redisKeyPrefix = "kyc:session:"

// RedisPersister stores each record as one JSON value with a TTL.
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl}
}

func redisKey(ws id.WorkspaceID) string {
	return redisKeyPrefix + ws.String()
}

func (p *RedisPersister) Load(ctx context.Context, ws id.WorkspaceID) (*Record, error) {
	b, err := p.client.Get(ctx, redisKey(ws)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session for workspace %s: %w", ws, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return decodeRecord(b)
}

func (p *RedisPersister) Save(ctx context.Context, ws id.WorkspaceID, rec Record) error {
	b, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, redisKey(ws), b, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (p *RedisPersister) Delete(ctx context.Context, ws id.WorkspaceID) error {
	if err := p.client.Del(ctx, redisKey(ws)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
