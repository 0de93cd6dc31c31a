// Package tonproof verifies ton-proof signatures produced by TON wallets.
//
// The wallet signs a fixed-layout binary message binding a server-issued
// nonce to a timestamp, the server's domain and the wallet address. The
// verifier reconstructs that message bit-exact from the claimed fields and
// checks the detached Ed25519 signature against the claimed public key. It
// fails closed: malformed input of any kind yields false, never a panic.
package tonproof

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xssnick/tonutils-go/address"

	"github.com/web3market/marketd/core"
)

const (
	// messagePrefix is the ton-proof message tag.
	messagePrefix uint32 = 0x05138d91

	// DefaultMaxDrift bounds how far a proof timestamp may sit from server
	// time in either direction.
	DefaultMaxDrift = 5 * time.Minute
)

// Verifier checks ton-proof claims against a fixed server domain.
type Verifier struct {
	domain   string
	maxDrift time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewVerifier creates a verifier bound to the given proof domain.
func NewVerifier(domain string, maxDrift time.Duration, log zerolog.Logger) *Verifier {
	if maxDrift <= 0 {
		maxDrift = DefaultMaxDrift
	}
	return &Verifier{
		domain:   domain,
		maxDrift: maxDrift,
		log:      log,
		now:      time.Now,
	}
}

// Verify checks a proof against the claimed public key and wallet address.
// It returns a bare bool: the reason for a rejection is logged internally
// and never exposed to the caller.
func (v *Verifier) Verify(proof core.Proof, publicKeyHex, addr string) (ok bool) {
	// Attacker-controlled input must not be able to crash the verifier.
	defer func() {
		if r := recover(); r != nil {
			v.log.Warn().Interface("panic", r).Msg("ton proof verification panicked")
			ok = false
		}
	}()

	if publicKeyHex == "" || addr == "" {
		v.reject("missing public key or address")
		return false
	}

	wallet, err := parseAddress(addr)
	if err != nil {
		v.reject("unparseable address")
		return false
	}
	if wallet.Workchain() != 0 {
		// The signed layout carries a single zero workchain byte, so only
		// basechain addresses are verifiable.
		v.reject("non-basechain address")
		return false
	}
	hash := wallet.Data()
	if len(hash) != 32 {
		v.reject("address hash is not 32 bytes")
		return false
	}

	now := v.now()
	driftMs := now.UnixMilli() - proof.Timestamp*1000
	if driftMs < 0 {
		driftMs = -driftMs
	}
	if driftMs > v.maxDrift.Milliseconds() {
		v.reject("timestamp outside drift window")
		return false
	}

	domain := v.domain
	if proof.Domain != nil {
		if uint32(len(proof.Domain.Value)) != proof.Domain.LengthBytes {
			v.reject("domain length mismatch")
			return false
		}
		if proof.Domain.Value != v.domain {
			v.reject("domain mismatch")
			return false
		}
		domain = proof.Domain.Value
	}

	signature, err := base64.StdEncoding.DecodeString(proof.Signature)
	if err != nil || len(signature) != ed25519.SignatureSize {
		v.reject("malformed signature")
		return false
	}
	publicKey, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		v.reject("malformed public key")
		return false
	}

	message := proofMessage(proof.Timestamp, domain, proof.Payload, hash)
	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signature) {
		v.reject("signature does not verify")
		return false
	}
	return true
}

// proofMessage builds the exact byte buffer the wallet signed. Layout, in
// order:
//
//	field           width  encoding
//	prefix          4      big-endian, 0x05138d91
//	timestamp       4      big-endian seconds
//	domain length   4      big-endian
//	domain          n      raw UTF-8
//	payload length  4      big-endian
//	payload         n      raw UTF-8
//	workchain       1      0x00
//	address hash    32     raw
//
// Any deviation in field order, width or endianness produces a buffer no
// wallet signature will ever validate against.
func proofMessage(timestamp int64, domain, payload string, addrHash []byte) []byte {
	domainBytes := []byte(domain)
	payloadBytes := []byte(payload)

	buf := make([]byte, 0, 17+len(domainBytes)+len(payloadBytes)+len(addrHash))
	buf = binary.BigEndian.AppendUint32(buf, messagePrefix)
	buf = binary.BigEndian.AppendUint32(buf, uint32(timestamp))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(domainBytes)))
	buf = append(buf, domainBytes...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payloadBytes)))
	buf = append(buf, payloadBytes...)
	buf = append(buf, 0x00)
	buf = append(buf, addrHash...)
	return buf
}

// parseAddress accepts both the raw "0:<hex>" form TonConnect reports and
// the user-friendly base64 form.
func parseAddress(addr string) (*address.Address, error) {
	if strings.Contains(addr, ":") {
		return address.ParseRawAddr(addr)
	}
	return address.ParseAddr(addr)
}

func (v *Verifier) reject(reason string) {
	v.log.Debug().Str("reason", reason).Msg("ton proof rejected")
}
