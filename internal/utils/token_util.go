package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenClaims struct {
	// Meta data
	Claim interface{} `json:"claim"`

	// Inherit from registered claims
	jwt.RegisteredClaims
}

// GenerateJWTToken signs claim with an ES256 private key. A positive
// expireOffsetHour sets the expiry when the claims carry none.
func GenerateJWTToken(privateKeydata []byte, claim TokenClaims, expireOffsetHour int64) (string, error) {
	privateKey, err := jwt.ParseECPrivateKeyFromPEM(privateKeydata)
	if err != nil {
		return "", fmt.Errorf("unable to parse private key: %w", err)
	}

	now := time.Now()
	if claim.IssuedAt == nil {
		claim.IssuedAt = jwt.NewNumericDate(now)
	}
	if claim.ExpiresAt == nil && expireOffsetHour > 0 {
		claim.ExpiresAt = jwt.NewNumericDate(now.Add(time.Duration(expireOffsetHour) * time.Hour))
	}

	return jwt.NewWithClaims(jwt.SigningMethodES256, claim).SignedString(privateKey)
}

// ValidateToken verifies an ES256 token and returns its claims
func ValidateToken(keydata []byte, token string) (jwt.MapClaims, error) {
	publicKey, err := jwt.ParseECPublicKeyFromPEM(keydata)
	if err != nil {
		return nil, fmt.Errorf("unable to parse public key: %w", err)
	}

	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("token claim is not valid")
	}
	return claims, nil
}
