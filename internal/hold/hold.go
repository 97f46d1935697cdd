// Package hold implements short-lived reservations on a car's date range.
// A pending booking does not block availability in the database; instead it
// takes a hold keyed per rental day, expiring with the checkout session, so
// two customers cannot simultaneously walk the same dates into checkout.
package hold

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrDatesHeld = errors.New("date range is held by another pending booking")

// Holder hands out an ownership token on Acquire; Release must present the
// same token. After a hold lapses its keys may belong to a rival booking, so
// an unproven delete is never issued.
type Holder interface {
	Acquire(ctx context.Context, carID uint, start, end time.Time, ttl time.Duration) (string, error)
	Release(ctx context.Context, carID uint, start, end time.Time, token string) error
}

type redisHolder struct {
	rdb *redis.Client
}

func NewRedisHolder(rdb *redis.Client) Holder {
	return &redisHolder{rdb: rdb}
}

func dayKey(carID uint, day time.Time) string {
	return fmt.Sprintf("hold:car:%d:%s", carID, day.Format("2006-01-02"))
}

func rangeKeys(carID uint, start, end time.Time) []string {
	var keys []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		keys = append(keys, dayKey(carID, d))
	}
	return keys
}

// releaseScript deletes only keys whose value still matches the caller's
// token. Compare and delete must be a single atomic step per key: between a
// GET and a DEL the key can expire and be re-acquired by a rival.
const releaseScript = `local n = 0
for i, key in ipairs(KEYS) do
	if redis.call("get", key) == ARGV[1] then
		redis.call("del", key)
		n = n + 1
	end
end
return n`

// Acquire takes one SETNX key per day in [start, end] and returns the token
// owning them. If any day is already held, the keys taken so far are rolled
// back and ErrDatesHeld is returned.
func (h *redisHolder) Acquire(ctx context.Context, carID uint, start, end time.Time, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	var taken []string
	for _, key := range rangeKeys(carID, start, end) {
		ok, err := h.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			h.rollback(ctx, taken, token)
			return "", fmt.Errorf("acquire hold: %w", err)
		}
		if !ok {
			h.rollback(ctx, taken, token)
			return "", ErrDatesHeld
		}
		taken = append(taken, key)
	}
	return token, nil
}

func (h *redisHolder) rollback(ctx context.Context, keys []string, token string) {
	if len(keys) > 0 {
		h.rdb.Eval(ctx, releaseScript, keys, token)
	}
}

// Release drops the hold for the whole range, but only where the token still
// owns the key. Days whose hold already lapsed and now belong to another
// booking are left untouched. An empty token owns nothing.
func (h *redisHolder) Release(ctx context.Context, carID uint, start, end time.Time, token string) error {
	if token == "" {
		return nil
	}
	return h.rdb.Eval(ctx, releaseScript, rangeKeys(carID, start, end), token).Err()
}
