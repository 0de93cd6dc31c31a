package core

import "time"

// Challenge is a single-use authentication nonce handed to a wallet.
type Challenge struct {
	Domain    string    // proof domain the server is bound to
	Payload   string    // hex-encoded random nonce
	IssuedAt  time.Time // when the challenge was created
	ExpiresAt time.Time // when the challenge stops being verifiable
}

// ProofDomain is the domain part of a ton-proof payload. LengthBytes must
// equal the byte length of Value.
type ProofDomain struct {
	LengthBytes uint32 `json:"lengthBytes"`
	Value       string `json:"value"`
}

// Proof is the signed ton-proof body a wallet returns for a challenge.
type Proof struct {
	Timestamp int64        `json:"timestamp"`
	Domain    *ProofDomain `json:"domain,omitempty"`
	Payload   string       `json:"payload"`
	Signature string       `json:"signature"`
}

// TelegramInfo is optional linked-platform metadata attached at login time.
type TelegramInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// WalletClaim identifies the wallet a proof was produced by.
type WalletClaim struct {
	Address   string        `json:"address"`
	PublicKey string        `json:"publicKey"`
	Telegram  *TelegramInfo `json:"telegram,omitempty"`
}

// Seller is the stable account record for a verified wallet address.
type Seller struct {
	Wallet           string    `json:"wallet" gorm:"primaryKey"`
	PublicKey        string    `json:"-"`
	TelegramID       int64     `json:"telegramId,omitempty"`
	TelegramUsername string    `json:"telegramUsername,omitempty"`
	TelegramName     string    `json:"telegramName,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Session is a bearer session at rest. Only the salted hash of the token is
// ever stored; the raw token exists once, in the verify response.
type Session struct {
	TokenHash string `gorm:"primaryKey"`
	Wallet    string `gorm:"index"`
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
