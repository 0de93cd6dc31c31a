package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/web3market/marketd/core"
	"github.com/web3market/marketd/ports"
	"github.com/web3market/marketd/tonproof"
)

const (
	// DefaultChallengeTTL is how long an issued nonce stays verifiable.
	DefaultChallengeTTL = 5 * time.Minute

	// DefaultTokenTTL is the bearer session lifetime.
	DefaultTokenTTL = 30 * 24 * time.Hour

	nonceBytes = 16
	tokenBytes = 48
)

// AuthConfig carries the knobs of the authentication flow. TokenSecret is
// process-wide, read-only after startup, and must never be logged.
type AuthConfig struct {
	Domain        string
	TokenSecret   string
	ChallengeTTL  time.Duration
	TokenTTL      time.Duration
	MaxProofDrift time.Duration
}

// AuthService implements the wallet-proof authentication flow: challenge
// issuance, proof verification, identity upsert and bearer sessions.
type AuthService struct {
	challenges ports.ChallengeStore
	sessions   ports.SessionStore
	sellers    ports.SellerStore
	events     ports.EventPublisher
	verifier   *tonproof.Verifier
	log        zerolog.Logger

	domain       string
	secret       string
	challengeTTL time.Duration
	tokenTTL     time.Duration
	now          func() time.Time
}

// VerifyResult is returned once per successful verification. Token is the
// raw bearer token; it is not retrievable again.
type VerifyResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Seller    *core.Seller `json:"seller"`
}

// NewAuthService wires the authentication flow together.
func NewAuthService(
	cfg AuthConfig,
	challenges ports.ChallengeStore,
	sessions ports.SessionStore,
	sellers ports.SellerStore,
	events ports.EventPublisher,
	log zerolog.Logger,
) *AuthService {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	return &AuthService{
		challenges:   challenges,
		sessions:     sessions,
		sellers:      sellers,
		events:       events,
		verifier:     tonproof.NewVerifier(cfg.Domain, cfg.MaxProofDrift, log),
		log:          log,
		domain:       cfg.Domain,
		secret:       cfg.TokenSecret,
		challengeTTL: cfg.ChallengeTTL,
		tokenTTL:     cfg.TokenTTL,
		now:          time.Now,
	}
}

// IssueChallenge mints a fresh single-use nonce bound to the server domain.
func (s *AuthService) IssueChallenge(ctx context.Context) (*core.Challenge, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	now := s.now()
	challenge := &core.Challenge{
		Domain:    s.domain,
		Payload:   hex.EncodeToString(buf),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}
	if err := s.challenges.PutChallenge(ctx, challenge.Payload, challenge.ExpiresAt); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}
	return challenge, nil
}

// VerifyProof consumes the challenge named by the proof payload, checks the
// proof, upserts the seller identity and mints a bearer session.
//
// The nonce is consumed before the signature is checked, so a failed
// verification still burns it: every retry starts from IssueChallenge.
func (s *AuthService) VerifyProof(ctx context.Context, proof core.Proof, wallet core.WalletClaim) (*VerifyResult, error) {
	consumed, err := s.challenges.ConsumeChallenge(ctx, proof.Payload)
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	if !consumed {
		return nil, core.ErrChallengeNotFound
	}

	if !s.verifier.Verify(proof, wallet.PublicKey, wallet.Address) {
		return nil, core.ErrProofInvalid
	}

	seller, err := s.upsertSeller(ctx, wallet)
	if err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	session := core.Session{
		TokenHash: s.hashToken(token),
		Wallet:    seller.Wallet,
		ExpiresAt: s.now().Add(s.tokenTTL),
	}
	if err := s.sessions.PutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishLogin(ctx, seller.Wallet); err != nil {
			s.log.Warn().Err(err).Msg("publish login event")
		}
	}

	return &VerifyResult{Token: token, ExpiresAt: session.ExpiresAt, Seller: seller}, nil
}

// Resolve maps a presented bearer token back to its seller, or returns
// core.ErrUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, token string) (*core.Seller, error) {
	if token == "" {
		return nil, core.ErrUnauthenticated
	}

	session, err := s.sessions.GetSession(ctx, s.hashToken(token))
	if err != nil {
		return nil, core.ErrUnauthenticated
	}
	if session.Expired(s.now()) {
		return nil, core.ErrUnauthenticated
	}

	seller, err := s.sellers.FindSeller(ctx, session.Wallet)
	if err != nil {
		return nil, core.ErrUnauthenticated
	}
	return seller, nil
}

// upsertSeller creates or refreshes the identity record for a verified
// wallet. Metadata merges are additive: absent or empty fields never
// overwrite stored values.
func (s *AuthService) upsertSeller(ctx context.Context, wallet core.WalletClaim) (*core.Seller, error) {
	now := s.now()

	seller, err := s.sellers.FindSeller(ctx, wallet.Address)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNotFound):
		seller = &core.Seller{Wallet: wallet.Address, CreatedAt: now}
	default:
		return nil, fmt.Errorf("find seller: %w", err)
	}

	if wallet.PublicKey != "" {
		seller.PublicKey = wallet.PublicKey
	}
	if tg := wallet.Telegram; tg != nil {
		if tg.ID != 0 {
			seller.TelegramID = tg.ID
		}
		if tg.Username != "" {
			seller.TelegramUsername = tg.Username
		}
		if tg.Name != "" {
			seller.TelegramName = tg.Name
		}
	}
	seller.UpdatedAt = now

	if err := s.sellers.SaveSeller(ctx, seller); err != nil {
		return nil, fmt.Errorf("save seller: %w", err)
	}
	return seller, nil
}

// hashToken computes the at-rest form of a bearer token. The server secret
// is folded in so a leaked session table alone yields nothing usable.
func (s *AuthService) hashToken(token string) string {
	sum := sha256.Sum256([]byte(token + ":" + s.secret))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
