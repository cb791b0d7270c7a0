// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package auth

import (
	"context"
	"errors"
	"strconv"

	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/sec"
)

// RedisResetTokenRepository implements ResetTokenRepository using Redis.
// Reset tokens are the only state the SSO service keeps in Redis: they are
// worthless after one use or one hour, so a volatile store with native TTL
// fits better than a table needing its own sweeper.
//
// Keys are the SHA-256 digest of the token, never the token itself, so a
// dumped or snooped keyspace cannot be replayed against /reset.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// tokenKey derives the storage key from a raw reset token.
func tokenKey(token string) string {
	return constants.RedisPrefixResetToken + sec.HashToken(token)
}

// NewResetTokenRepository creates a new Redis-backed ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

/*
Set stores a reset token with its associated userID and TTL.

Parameters:
  - context: context.Context
  - token: string
  - userID: int64
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisResetTokenRepository) Set(context context.Context, token string, userID int64, ttl time.Duration) error {

	// Store by digest, not by token
	key := tokenKey(token)

	// Set the token with TTL
	if err := repository.client.Set(context, key, strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return apperr.Internal(err)
	}

	// Return nil on success
	return nil
}

/*
Get retrieves the userID for a given token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - int64: Owning user ID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisResetTokenRepository) Get(context context.Context, token string) (int64, error) {

	// Look up by digest
	key := tokenKey(token)

	// Get the token from Redis
	value, err := repository.client.Get(context, key).Result()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, apperr.NotFound("Reset token")
		}
		return 0, apperr.Internal(err)
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// A corrupted value is as good as no value.
		return 0, apperr.NotFound("Reset token")
	}

	// Return the userID
	return userID, nil
}

/*
Delete removes the token from Redis.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisResetTokenRepository) Delete(context context.Context, token string) error {

	// Delete by digest
	key := tokenKey(token)

	// Delete the token from Redis
	if err := repository.client.Del(context, key).Err(); err != nil {
		return apperr.Internal(err)
	}

	// Return nil on success
	return nil
}
