package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/web3market/marketd/adapters/store"
	"github.com/web3market/marketd/core"
	"github.com/web3market/marketd/ports"
)

const (
	testDomain = "web3market.shop"
	testSecret = "test-secret"
)

type testWallet struct {
	pub     ed25519.PublicKey
	priv    ed25519.PrivateKey
	address string
	hash    []byte
}

func newTestWallet(t *testing.T) *testWallet {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	hash := make([]byte, 32)
	_, err = rand.Read(hash)
	require.NoError(t, err)

	return &testWallet{
		pub:     pub,
		priv:    priv,
		address: "0:" + hex.EncodeToString(hash),
		hash:    hash,
	}
}

// sign builds the canonical proof message independently of the verifier and
// signs it, playing the external wallet's part.
func (w *testWallet) sign(t *testing.T, domain, payload string, at time.Time) core.Proof {
	t.Helper()

	var buf bytes.Buffer
	write := func(v uint32) {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, v))
	}
	write(0x05138d91)
	write(uint32(at.Unix()))
	write(uint32(len(domain)))
	buf.WriteString(domain)
	write(uint32(len(payload)))
	buf.WriteString(payload)
	buf.WriteByte(0x00)
	buf.Write(w.hash)

	sig := ed25519.Sign(w.priv, buf.Bytes())
	return core.Proof{
		Timestamp: at.Unix(),
		Domain:    &core.ProofDomain{Value: domain, LengthBytes: uint32(len(domain))},
		Payload:   payload,
		Signature: base64.StdEncoding.EncodeToString(sig),
	}
}

func (w *testWallet) claim() core.WalletClaim {
	return core.WalletClaim{
		Address:   w.address,
		PublicKey: hex.EncodeToString(w.pub),
	}
}

func newTestAuthService(mem *store.Memory, cfg AuthConfig) *AuthService {
	if cfg.Domain == "" {
		cfg.Domain = testDomain
	}
	if cfg.TokenSecret == "" {
		cfg.TokenSecret = testSecret
	}
	return NewAuthService(cfg, mem, mem, mem, nil, zerolog.Nop())
}

func TestVerifyProofIssuesSessionAndBurnsNonce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := newTestAuthService(mem, AuthConfig{})
	wallet := newTestWallet(t)

	challenge, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)
	require.Equal(t, testDomain, challenge.Domain)
	require.Len(t, challenge.Payload, 32) // 16 bytes of entropy, hex-encoded

	proof := wallet.sign(t, testDomain, challenge.Payload, time.Now())

	result, err := svc.VerifyProof(ctx, proof, wallet.claim())
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, wallet.address, result.Seller.Wallet)

	// The token resolves back to the wallet that answered the challenge.
	seller, err := svc.Resolve(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, wallet.address, seller.Wallet)

	// Replaying the identical verify request fails: the nonce is consumed.
	_, err = svc.VerifyProof(ctx, proof, wallet.claim())
	require.ErrorIs(t, err, core.ErrChallengeNotFound)

	// The first token stays valid after the failed replay.
	_, err = svc.Resolve(ctx, result.Token)
	require.NoError(t, err)
}

func TestVerifyProofFailureStillConsumesNonce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := newTestAuthService(mem, AuthConfig{})
	wallet := newTestWallet(t)

	challenge, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)

	// Signature over the wrong domain: verification fails...
	proof := wallet.sign(t, "evil.example", challenge.Payload, time.Now())
	proof.Domain = &core.ProofDomain{Value: testDomain, LengthBytes: uint32(len(testDomain))}
	_, err = svc.VerifyProof(ctx, proof, wallet.claim())
	require.ErrorIs(t, err, core.ErrProofInvalid)

	// ...and the nonce is burned anyway, so a now-valid proof cannot reuse it.
	good := wallet.sign(t, testDomain, challenge.Payload, time.Now())
	_, err = svc.VerifyProof(ctx, good, wallet.claim())
	require.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestVerifyProofExpiredChallenge(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := newTestAuthService(mem, AuthConfig{ChallengeTTL: time.Nanosecond})
	wallet := newTestWallet(t)

	challenge, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	// Otherwise-valid signature, but the challenge has expired.
	proof := wallet.sign(t, testDomain, challenge.Payload, time.Now())
	_, err = svc.VerifyProof(ctx, proof, wallet.claim())
	require.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestVerifyProofUnknownNonce(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(store.NewMemory(), AuthConfig{})
	wallet := newTestWallet(t)

	proof := wallet.sign(t, testDomain, "never-issued", time.Now())
	_, err := svc.VerifyProof(ctx, proof, wallet.claim())
	require.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestResolveExpiredToken(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := newTestAuthService(mem, AuthConfig{TokenTTL: time.Nanosecond})
	wallet := newTestWallet(t)

	challenge, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)
	proof := wallet.sign(t, testDomain, challenge.Payload, time.Now())
	result, err := svc.VerifyProof(ctx, proof, wallet.claim())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = svc.Resolve(ctx, result.Token)
	require.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestResolveGarbageToken(t *testing.T) {
	svc := newTestAuthService(store.NewMemory(), AuthConfig{})

	_, err := svc.Resolve(context.Background(), "not-a-token")
	require.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = svc.Resolve(context.Background(), "")
	require.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestUpsertSellerIdempotentMerge(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := newTestAuthService(mem, AuthConfig{})
	wallet := newTestWallet(t)

	login := func(claim core.WalletClaim) *core.Seller {
		challenge, err := svc.IssueChallenge(ctx)
		require.NoError(t, err)
		proof := wallet.sign(t, testDomain, challenge.Payload, time.Now())
		result, err := svc.VerifyProof(ctx, proof, claim)
		require.NoError(t, err)
		return result.Seller
	}

	withTelegram := wallet.claim()
	withTelegram.Telegram = &core.TelegramInfo{ID: 42, Username: "alice", Name: "Alice"}

	first := login(withTelegram)
	require.Equal(t, int64(42), first.TelegramID)
	require.Equal(t, "alice", first.TelegramUsername)

	// A later login without metadata must not null out stored values.
	second := login(wallet.claim())
	require.Equal(t, int64(42), second.TelegramID)
	require.Equal(t, "alice", second.TelegramUsername)
	require.Equal(t, "Alice", second.TelegramName)

	require.Equal(t, first.CreatedAt, second.CreatedAt)
	require.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

// recordingSessionStore captures what the service persists.
type recordingSessionStore struct {
	sessions map[string]core.Session
}

func (r *recordingSessionStore) PutSession(_ context.Context, s core.Session) error {
	r.sessions[s.TokenHash] = s
	return nil
}

func (r *recordingSessionStore) GetSession(_ context.Context, tokenHash string) (*core.Session, error) {
	s, ok := r.sessions[tokenHash]
	if !ok {
		return nil, core.ErrUnauthenticated
	}
	return &s, nil
}

var _ ports.SessionStore = (*recordingSessionStore)(nil)

func TestTokenStoredOnlyAsSaltedHash(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	recorder := &recordingSessionStore{sessions: make(map[string]core.Session)}
	svc := NewAuthService(AuthConfig{
		Domain:      testDomain,
		TokenSecret: testSecret,
	}, mem, recorder, mem, nil, zerolog.Nop())
	wallet := newTestWallet(t)

	challenge, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)
	proof := wallet.sign(t, testDomain, challenge.Payload, time.Now())
	result, err := svc.VerifyProof(ctx, proof, wallet.claim())
	require.NoError(t, err)

	require.Len(t, recorder.sessions, 1)
	for hash := range recorder.sessions {
		require.NotEqual(t, result.Token, hash)
		sum := sha256.Sum256([]byte(result.Token + ":" + testSecret))
		require.Equal(t, hex.EncodeToString(sum[:]), hash)
	}
}
