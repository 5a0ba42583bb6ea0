package auth

import (
	stderrors "errors"
	"time"

	"courier/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenLifetime applies when no lifetime is configured.
const DefaultTokenLifetime = 24 * time.Hour

// Both failure modes are Unauthorized; callers that care which one occurred
// compare against these.
var (
	ErrExpiredToken   = &errors.Error{Kind: errors.KindUnauthorized, Msg: "session token expired"}
	ErrMalformedToken = &errors.Error{Kind: errors.KindUnauthorized, Msg: "malformed session token"}
)

// Claims is the identity a session token carries.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Account parses the account id embedded in the claims.
func (c *Claims) Account() (uuid.UUID, error) {
	id, err := uuid.Parse(c.AccountID)
	if err != nil {
		return uuid.Nil, ErrMalformedToken
	}
	return id, nil
}

// TokenManager issues and verifies signed session tokens. It holds no state
// beyond the signing secret; expiry comes from the embedded claims.
type TokenManager struct {
	secret   []byte
	lifetime time.Duration
}

func NewTokenManager(secret string, lifetime time.Duration) *TokenManager {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenManager{secret: []byte(secret), lifetime: lifetime}
}

// Issue creates a signed, time-limited token for an account.
func (m *TokenManager) Issue(accountID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: accountID.String(),
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "courier",
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(errors.KindInternal, err, "signing session token")
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the decoded identity.
// Expired tokens yield ErrExpiredToken; anything else wrong with the token
// yields ErrMalformedToken.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrMalformedToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}
	return claims, nil
}
