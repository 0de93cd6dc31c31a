package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/web3market/marketd/core"
)

func TestConsumeChallengeOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.PutChallenge(ctx, "abc123", time.Now().Add(time.Minute)))

	ok, err := m.ConsumeChallenge(ctx, "abc123")
	require.NoError(t, err)
	require.True(t, ok)

	// A second consume always fails, the core anti-replay guarantee.
	ok, err = m.ConsumeChallenge(ctx, "abc123")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConsumeChallengeUnknown(t *testing.T) {
	m := NewMemory()

	ok, err := m.ConsumeChallenge(context.Background(), "never-issued")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConsumeChallengeExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Now()
	m.now = func() time.Time { return now }
	require.NoError(t, m.PutChallenge(ctx, "abc123", now.Add(5*time.Minute)))

	// Six minutes later the record may still be present, but it is no
	// longer verifiable.
	m.now = func() time.Time { return now.Add(6 * time.Minute) }
	ok, err := m.ConsumeChallenge(ctx, "abc123")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutChallengeRefusesLiveDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.PutChallenge(ctx, "abc123", time.Now().Add(time.Minute)))
	err := m.PutChallenge(ctx, "abc123", time.Now().Add(time.Minute))
	require.ErrorIs(t, err, core.ErrStoreOperationFailed)
}

func TestPutChallengeReplacesExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Now()
	m.now = func() time.Time { return now }
	require.NoError(t, m.PutChallenge(ctx, "abc123", now.Add(time.Minute)))

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	require.NoError(t, m.PutChallenge(ctx, "abc123", now.Add(3*time.Minute)))
}

func TestConsumeChallengeConcurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.PutChallenge(ctx, "abc123", time.Now().Add(time.Minute)))

	const callers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := m.ConsumeChallenge(ctx, "abc123")
			require.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	// Exactly one racing caller observes success.
	require.Equal(t, int32(1), wins.Load())
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	session := core.Session{
		TokenHash: "deadbeef",
		Wallet:    "0:abc",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, m.PutSession(ctx, session))

	got, err := m.GetSession(ctx, "deadbeef")
	require.NoError(t, err)
	require.Equal(t, "0:abc", got.Wallet)

	_, err = m.GetSession(ctx, "unknown")
	require.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestSellerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.FindSeller(ctx, "0:abc")
	require.ErrorIs(t, err, core.ErrNotFound)

	seller := &core.Seller{Wallet: "0:abc", TelegramUsername: "alice"}
	require.NoError(t, m.SaveSeller(ctx, seller))

	got, err := m.FindSeller(ctx, "0:abc")
	require.NoError(t, err)
	require.Equal(t, "alice", got.TelegramUsername)

	// The returned record is a copy, not an alias into the store.
	got.TelegramUsername = "mallory"
	again, err := m.FindSeller(ctx, "0:abc")
	require.NoError(t, err)
	require.Equal(t, "alice", again.TelegramUsername)
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.GetProfile(ctx, "0:abc")
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, m.SaveProfile(ctx, &core.Profile{Wallet: "0:abc", DeliveryAddress: "Street 1"}))

	got, err := m.GetProfile(ctx, "0:abc")
	require.NoError(t, err)
	require.Equal(t, "Street 1", got.DeliveryAddress)
}
