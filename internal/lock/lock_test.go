package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Exclusive(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	release, err := l.Acquire(ctx, "check", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "check", time.Minute)
	assert.True(t, errors.Is(err, ErrLocked))

	_, err = l.Acquire(ctx, "sweep", time.Minute)
	assert.NoError(t, err, "different keys do not contend")

	release()
	release()

	_, err = l.Acquire(ctx, "check", time.Minute)
	assert.NoError(t, err)
}

func TestLocal_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.now = func() time.Time { return now }

	staleRelease, err := l.Acquire(ctx, "check", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	freshRelease, err := l.Acquire(ctx, "check", time.Minute)
	require.NoError(t, err, "expired lock can be taken over")

	staleRelease()
	_, err = l.Acquire(ctx, "check", time.Minute)
	assert.True(t, errors.Is(err, ErrLocked), "stale release must not free the new holder")

	freshRelease()
	_, err = l.Acquire(ctx, "check", time.Minute)
	assert.NoError(t, err)
}
