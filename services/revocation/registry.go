// Package revocation records logged-out and rotated tokens in Redis until
// they would have expired on their own.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Blukstak/OxideExpo-sub000/config"
	"github.com/Blukstak/OxideExpo-sub000/services/token"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// sentinel is the value stored under every revocation key
const sentinel = "1"

// ErrRegistryUnavailable wraps any failure talking to Redis
var ErrRegistryUnavailable = errors.New("revocation registry unavailable")

// Registry is the Redis-backed revocation list.
// All operations are single-key, so no client-side locking is needed.
type Registry struct {
	client redis.UniversalClient
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistry wraps an existing Redis client
func NewRegistry(client redis.UniversalClient, logger *zap.Logger) *Registry {
	return &Registry{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// NewClient builds a Redis client from configuration. REDIS_URL wins over the
// individual address fields.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}), nil
}

// Revoke blacklists jti for ttl. The TTL is rounded up to whole seconds so
// the entry never disappears before the token does. A token with no
// remaining lifetime is already unusable and is not written.
func (r *Registry) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return fmt.Errorf("token id is required")
	}
	if ttl <= 0 {
		r.logger.Debug("skipping revocation of expired token", zap.String("jti", jti))
		return nil
	}
	ttl = roundUpToSecond(ttl)

	if err := r.client.Set(ctx, token.Fingerprint(jti), sentinel, ttl).Err(); err != nil {
		return fmt.Errorf("%w: revoke %s: %v", ErrRegistryUnavailable, jti, err)
	}

	r.logger.Debug("token revoked",
		zap.String("jti", jti),
		zap.Duration("ttl", ttl))
	return nil
}

// RevokeClaims blacklists a verified token for the rest of its lifetime
func (r *Registry) RevokeClaims(ctx context.Context, claims *token.Claims) error {
	if claims == nil {
		return fmt.Errorf("claims are required")
	}
	return r.Revoke(ctx, claims.ID, claims.RemainingTTL(r.now()))
}

// Claim atomically revokes a verified token and reports whether this call
// did it. A false result means the jti was already blacklisted, so a
// single-use token such as a refresh token has been spent. Expired tokens
// cannot be claimed.
func (r *Registry) Claim(ctx context.Context, claims *token.Claims) (bool, error) {
	if claims == nil || claims.ID == "" {
		return false, fmt.Errorf("token id is required")
	}
	ttl := claims.RemainingTTL(r.now())
	if ttl <= 0 {
		return false, nil
	}

	ok, err := r.client.SetNX(ctx, token.Fingerprint(claims.ID), sentinel, roundUpToSecond(ttl)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: claim %s: %v", ErrRegistryUnavailable, claims.ID, err)
	}
	if ok {
		r.logger.Debug("token claimed", zap.String("jti", claims.ID))
	}
	return ok, nil
}

// IsRevoked reports whether jti is blacklisted. Errors are returned as-is;
// callers decide whether to fail open or closed.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, token.Fingerprint(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: lookup %s: %v", ErrRegistryUnavailable, jti, err)
	}
	return n > 0, nil
}

func roundUpToSecond(ttl time.Duration) time.Duration {
	if rem := ttl % time.Second; rem != 0 {
		ttl += time.Second - rem
	}
	return ttl
}

// Ping checks connectivity for readiness checks
func (r *Registry) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

// Close releases the underlying client
func (r *Registry) Close() error {
	return r.client.Close()
}
