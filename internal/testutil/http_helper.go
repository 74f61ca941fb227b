package testutil

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/feed/internal/types"
	"github.com/qolzam/feed/internal/utils"
)

// HTTPHelper provides a robust way to make HTTP requests in tests.
// It enforces error checking and provides a fluent API for building requests.
type HTTPHelper struct {
	t   *testing.T
	app *fiber.App
}

// NewHTTPHelper creates a new test helper for a given Fiber app.
func NewHTTPHelper(t *testing.T, app *fiber.App) *HTTPHelper {
	require.NotNil(t, app, "Fiber app provided to HTTPHelper cannot be nil")
	return &HTTPHelper{
		t:   t,
		app: app,
	}
}

// Request represents a test request under construction.
type Request struct {
	helper     *HTTPHelper
	method     string
	path       string
	bodyReader io.Reader
	headers    http.Header
}

// NewRequest begins building a new test request. It centralizes body marshaling.
func (h *HTTPHelper) NewRequest(method, path string, body interface{}) *Request {
	var bodyBytes []byte
	if body != nil {
		switch b := body.(type) {
		case []byte:
			bodyBytes = b
		case string:
			bodyBytes = []byte(b)
		default:
			jsonBytes, err := json.Marshal(body)
			require.NoError(h.t, err, "Failed to marshal request body to JSON")
			bodyBytes = jsonBytes
		}
	}

	req := &Request{
		helper:     h,
		method:     method,
		path:       path,
		bodyReader: bytes.NewReader(bodyBytes),
		headers:    make(http.Header),
	}

	if body != nil {
		req.WithHeader(types.HeaderContentType, "application/json")
	}

	return req
}

// WithHeader adds a header to the request.
func (r *Request) WithHeader(key, value string) *Request {
	r.headers.Add(key, value)
	return r
}

// WithJWTAuth adds the token as Authorization: Bearer header.
func (r *Request) WithJWTAuth(token string) *Request {
	return r.WithHeader(types.HeaderAuthorization, types.BearerPrefix+token)
}

// WithCookieAuth sends the token the way browsers do, in the access_token cookie.
func (r *Request) WithCookieAuth(token string) *Request {
	return r.WithHeader("Cookie", fmt.Sprintf("%s=%s", types.AccessTokenCookie, token))
}

// Send executes the request and returns the response.
func (r *Request) Send() *http.Response {
	req := httptest.NewRequest(r.method, r.path, r.bodyReader)
	req.Header = r.headers

	resp, err := r.helper.app.Test(req, int(10*time.Second.Milliseconds()))
	require.NoError(r.helper.t, err, "app.Test should not return an error")
	require.NotNil(r.helper.t, resp, "app.Test response should not be nil")

	return resp
}

// DecodeJSON reads the response body into dst and closes it.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, dst), "response body: %s", string(body))
}

// CreateTestUserContext creates a user with a fresh id and display data.
func CreateTestUserContext(username string) types.UserContext {
	return types.UserContext{
		UserID:    uuid.Must(uuid.NewV4()),
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Avatar:    "https://cdn.example.com/" + username + ".png",
	}
}

// GenerateTestJWT creates a signed ES256 token for userCtx, valid for one hour.
func GenerateTestJWT(privateKeyPEM string, userCtx types.UserContext) (string, error) {
	claims := utils.TokenClaims{
		Claim: map[string]interface{}{
			types.HeaderUID: userCtx.UserID.String(),
			"username":      userCtx.Username,
			"firstName":     userCtx.FirstName,
			"lastName":      userCtx.LastName,
			"avatar":        userCtx.Avatar,
		},
	}

	token, err := utils.GenerateJWTToken([]byte(privateKeyPEM), claims, 1)
	if err != nil {
		return "", fmt.Errorf("failed to generate test JWT: %w", err)
	}

	return token, nil
}

// GenerateECDSAKeyPairPEM generates valid ECDSA key pairs for testing.
// Returns (publicKeyPEM, privateKeyPEM) as strings.
func GenerateECDSAKeyPairPEM(t *testing.T) (string, string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "Failed to generate ECDSA private key")

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err, "Failed to marshal ECDSA private key")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err, "Failed to marshal ECDSA public key")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return string(pubPEM), string(privPEM)
}
