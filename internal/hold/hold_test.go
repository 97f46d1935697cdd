package hold

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, 7, d, 0, 0, 0, 0, time.UTC)
}

func TestAcquire_TakesOneKeyPerDay(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	h := NewRedisHolder(rdb)

	ttl := 30 * time.Minute
	mock.Regexp().ExpectSetNX("hold:car:7:2025-07-01", `.+`, ttl).SetVal(true)
	mock.Regexp().ExpectSetNX("hold:car:7:2025-07-02", `.+`, ttl).SetVal(true)
	mock.Regexp().ExpectSetNX("hold:car:7:2025-07-03", `.+`, ttl).SetVal(true)

	token, err := h.Acquire(context.Background(), 7, day(1), day(3), ttl)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_ConflictRollsBackTakenKeys(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	h := NewRedisHolder(rdb)

	ttl := 30 * time.Minute
	mock.Regexp().ExpectSetNX("hold:car:7:2025-07-01", `.+`, ttl).SetVal(true)
	mock.Regexp().ExpectSetNX("hold:car:7:2025-07-02", `.+`, ttl).SetVal(false)
	mock.Regexp().ExpectEval(`(?s).+`, []string{"hold:car:7:2025-07-01"}, `.+`).SetVal(int64(1))

	token, err := h.Acquire(context.Background(), 7, day(1), day(3), ttl)

	assert.ErrorIs(t, err, ErrDatesHeld)
	assert.Empty(t, token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_DeletesOnlyTokenOwnedKeys(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	h := NewRedisHolder(rdb)

	keys := []string{
		"hold:car:7:2025-07-01",
		"hold:car:7:2025-07-02",
		"hold:car:7:2025-07-03",
	}
	mock.ExpectEval(releaseScript, keys, "tok-a").SetVal(int64(3))

	err := h.Release(context.Background(), 7, day(1), day(3), "tok-a")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A lapsed hold's keys may have been re-acquired by a rival booking. Release
// with the stale token must leave those keys alive.
func TestRelease_LeavesRivalKeysUntouched(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	h := NewRedisHolder(rdb)

	keys := []string{
		"hold:car:7:2025-07-01",
		"hold:car:7:2025-07-02",
	}
	mock.ExpectEval(releaseScript, keys, "stale-token").SetVal(int64(0))

	err := h.Release(context.Background(), 7, day(1), day(2), "stale-token")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_EmptyTokenIsNoop(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	h := NewRedisHolder(rdb)

	err := h.Release(context.Background(), 7, day(1), day(2), "")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
