package authjwt

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"

	"github.com/qolzam/feed/internal/pkg/log"
	"github.com/qolzam/feed/internal/types"
)

// ErrInvalidToken is returned for every token that does not resolve to a user
var ErrInvalidToken = errors.New("invalid token")

// Config defines the config for the JWT middleware.
type Config struct {
	// The EC public key for validating ES256 tokens.
	PublicKey string
	// The claim key where the user data is stored. Defaults to types.ClaimKey.
	ClaimKey string
	// The context key to store the UserContext. Defaults to types.UserCtxName.
	UserCtxName string
}

// Authenticator resolves access tokens into user identities
type Authenticator struct {
	publicKey *ecdsa.PublicKey
	claimKey  string
}

// NewAuthenticator parses the EC public key once
func NewAuthenticator(publicKeyPEM, claimKey string) (*Authenticator, error) {
	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC public key: %w", err)
	}
	if claimKey == "" {
		claimKey = types.ClaimKey
	}
	return &Authenticator{publicKey: publicKey, claimKey: claimKey}, nil
}

// Authenticate verifies an ES256 token and maps its claim to a UserContext.
// It never writes a response, so it can be used outside a request.
func (a *Authenticator) Authenticate(tokenString string) (types.UserContext, error) {
	var userCtx types.UserContext

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	if err != nil {
		return userCtx, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return userCtx, ErrInvalidToken
	}

	claimData, ok := claims[a.claimKey].(map[string]interface{})
	if !ok {
		return userCtx, fmt.Errorf("%w: invalid token claim format", ErrInvalidToken)
	}

	userCtx, err = mapToUserContext(claimData)
	if err != nil {
		return userCtx, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return userCtx, nil
}

// New creates a new middleware handler. It panics on a malformed key, which
// is a startup misconfiguration.
func New(cfg Config) fiber.Handler {
	authenticator, err := NewAuthenticator(cfg.PublicKey, cfg.ClaimKey)
	if err != nil {
		panic(err.Error())
	}
	userCtxName := cfg.UserCtxName
	if userCtxName == "" {
		userCtxName = types.UserCtxName
	}

	return func(c *fiber.Ctx) error {
		tokenString := TokenFromRequest(c)
		if tokenString == "" {
			return unauthenticated(c, "Missing or invalid JWT")
		}

		userCtx, err := authenticator.Authenticate(tokenString)
		if err != nil {
			log.Debug("rejected token on %s %s: %v", c.Method(), c.Path(), err)
			return unauthenticated(c, err.Error())
		}

		c.Locals(userCtxName, userCtx)
		return c.Next()
	}
}

// TokenFromRequest reads the bearer token, falling back to the access_token cookie
func TokenFromRequest(c *fiber.Ctx) string {
	authHeader := c.Get(types.HeaderAuthorization)
	if strings.HasPrefix(authHeader, types.BearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, types.BearerPrefix)); token != "" {
			return token
		}
	}
	return c.Cookies(types.AccessTokenCookie)
}

func unauthenticated(c *fiber.Ctx, details string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"code":    "UNAUTHENTICATED",
		"message": "Authentication required",
		"details": details,
	})
}

// mapToUserContext converts claim data to UserContext
func mapToUserContext(claimData map[string]interface{}) (types.UserContext, error) {
	var userCtx types.UserContext

	userIDStr, ok := claimData[types.HeaderUID].(string)
	if !ok {
		return userCtx, errors.New("missing or invalid uid in claim")
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return userCtx, fmt.Errorf("invalid user ID: %v", err)
	}
	if userID == uuid.Nil {
		return userCtx, errors.New("nil user ID in claim")
	}
	userCtx.UserID = userID

	if username, ok := claimData["username"].(string); ok {
		userCtx.Username = username
	}
	if firstName, ok := claimData["firstName"].(string); ok {
		userCtx.FirstName = firstName
	}
	if lastName, ok := claimData["lastName"].(string); ok {
		userCtx.LastName = lastName
	}
	if avatar, ok := claimData["avatar"].(string); ok {
		userCtx.Avatar = avatar
	}

	return userCtx, nil
}
