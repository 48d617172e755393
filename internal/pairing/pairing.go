// Package pairing implements mobile-pairing token issuance: the QR-code /
// short-code handshake a web session uses to authorize a companion mobile
// app. A data-contract supplement (SPEC_FULL.md §4.15); spec.md's own
// Non-goals name the pairing flow itself as an external collaborator, so
// this package only issues the token envelope, it does not own the pairing
// UI or the mobile app's redemption flow. Grounded in
// original_source/backend/mobile_pairing.py for the token shape (64-char
// hex token, 5-minute expiry, 6-character no-confusables short code,
// 5-tokens-per-user-per-hour rate limit); the original issues a bare
// opaque token, but this rendition additionally signs a claims envelope
// with github.com/golang-jwt/jwt/v4 so the pass-through auth middleware
// can verify a pairing request without a store round-trip.
package pairing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/supergeri/workoutcanonicalmapper/internal/wmecerr"
)

// TokenExpiry is how long a pairing token remains redeemable.
const TokenExpiry = 5 * time.Minute

// MaxTokensPerHour bounds how many pairing tokens one user may request.
const MaxTokensPerHour = 5

// shortCodeAlphabet excludes visually confusable characters (0, O, 1, I,
// l), matching mobile_pairing.py's SHORT_CODE_ALPHABET.
const shortCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const shortCodeLength = 6

// RateLimitStore tracks how many pairing tokens a user has requested
// recently.
type RateLimitStore interface {
	CountSince(userID string, since time.Time) (int, error)
	Record(userID string, at time.Time) error
}

// Claims is the signed envelope carried in the pairing JWT.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Issued is the result of a successful IssueToken call.
type Issued struct {
	Token     string // 64-char hex, given to the mobile app to redeem
	ShortCode string // 6-char human-typeable alternative
	ExpiresAt time.Time
	SignedJWT string
}

// IssueToken generates a pairing token and short code for userID, signs a
// claims envelope with signingKey, and records the issuance against the
// rate limiter. Returns a rate-limit error (wmecerr.InvalidInput) if the
// user has already requested MaxTokensPerHour tokens in the past hour.
func IssueToken(userID string, rl RateLimitStore, signingKey []byte, now time.Time) (Issued, error) {
	if userID == "" {
		return Issued{}, wmecerr.New(wmecerr.InvalidInput, "pairing: userID must not be empty")
	}

	count, err := rl.CountSince(userID, now.Add(-time.Hour))
	if err != nil {
		return Issued{}, wmecerr.Wrap(wmecerr.Internal, "pairing: check rate limit", err)
	}
	if count >= MaxTokensPerHour {
		return Issued{}, wmecerr.New(wmecerr.InvalidInput,
			fmt.Sprintf("pairing: rate limit exceeded (%d tokens in the last hour)", count))
	}

	token, err := generateHexToken(32)
	if err != nil {
		return Issued{}, wmecerr.Wrap(wmecerr.Internal, "pairing: generate token", err)
	}
	shortCode, err := generateShortCode()
	if err != nil {
		return Issued{}, wmecerr.Wrap(wmecerr.Internal, "pairing: generate short code", err)
	}

	expiresAt := now.Add(TokenExpiry)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
		UserID: userID,
		Token:  token,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return Issued{}, wmecerr.Wrap(wmecerr.Internal, "pairing: sign claims", err)
	}

	if err := rl.Record(userID, now); err != nil {
		return Issued{}, wmecerr.Wrap(wmecerr.Internal, "pairing: record issuance", err)
	}

	return Issued{
		Token:     token,
		ShortCode: shortCode,
		ExpiresAt: expiresAt,
		SignedJWT: signed,
	}, nil
}

// VerifyToken parses and validates a signed pairing JWT, returning its
// claims if the signature checks out and it has not expired.
func VerifyToken(signedJWT string, signingKey []byte) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(signedJWT, &claims, func(t *jwt.Token) (interface{}, error) {
		return signingKey, nil
	})
	if err != nil {
		return Claims{}, wmecerr.Wrap(wmecerr.InvalidInput, "pairing: verify token", err)
	}
	if !token.Valid {
		return Claims{}, wmecerr.New(wmecerr.InvalidInput, "pairing: token is not valid")
	}
	return claims, nil
}

func generateHexToken(numBytes int) (string, error) {
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func generateShortCode() (string, error) {
	buf := make([]byte, shortCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, shortCodeLength)
	for i, b := range buf {
		code[i] = shortCodeAlphabet[int(b)%len(shortCodeAlphabet)]
	}
	return string(code), nil
}
