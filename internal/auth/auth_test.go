package auth

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"required-backend/internal/engine"
)

const secret = "test-secret"

func newAuthApp(t *testing.T) (*fiber.App, *TokenStore) {
	t.Helper()
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	tokens := NewTokenStore(time.Hour)
	h := NewAuthHandler(secret, tokens,
		Account{Username: "admin", PasswordHash: hash, Roles: []string{"admin"}},
		Account{Username: "viewer", PasswordHash: hash, Roles: []string{"viewer"}},
		Account{Username: "nohash"},
	)

	app := fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler})
	RegisterAuthRoutes(app, h)
	app.Get("/private", AuthMiddleware(secret), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user": GetUser(c).Username})
	})
	return app, tokens
}

func do(t *testing.T, app *fiber.App, method, path, body, bearer string) (int, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App, user string) map[string]any {
	t.Helper()
	status, out := do(t, app, "POST", "/api/auth/login", `{"username":"`+user+`","password":"s3cret!"}`, "")
	require.Equal(t, 200, status, out)
	return out["data"].(map[string]any)
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("alice", []string{"admin"}, secret)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, []string{"admin"}, claims.Roles)

	_, err = ParseAccessToken(token, "other-secret")
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.True(t, CheckPassword("pw", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestLoginAndAdminAccess(t *testing.T) {
	app, _ := newAuthApp(t)

	pair := login(t, app, "admin")
	assert.NotEmpty(t, pair["refresh_token"])
	assert.EqualValues(t, 900, pair["expires_in"])

	status, out := do(t, app, "GET", "/private", "", pair["access_token"].(string))
	assert.Equal(t, 200, status)
	assert.Equal(t, "admin", out["user"])
}

func TestLoginRejected(t *testing.T) {
	app, _ := newAuthApp(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"wrong password", `{"username":"admin","password":"nope"}`, 401},
		{"unknown user", `{"username":"ghost","password":"s3cret!"}`, 401},
		{"account without hash", `{"username":"nohash","password":""}`, 401},
		{"missing fields", `{}`, 401},
		{"bad body", `{`, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := do(t, app, "POST", "/api/auth/login", tt.body, "")
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestMiddleware(t *testing.T) {
	app, _ := newAuthApp(t)

	status, out := do(t, app, "GET", "/private", "", "")
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", out["error"].(map[string]any)["code"])

	status, _ = do(t, app, "GET", "/private", "", "garbage")
	assert.Equal(t, 401, status)

	viewer := login(t, app, "viewer")
	status, out = do(t, app, "GET", "/private", "", viewer["access_token"].(string))
	assert.Equal(t, 403, status)
	assert.Equal(t, "FORBIDDEN", out["error"].(map[string]any)["code"])
}

func TestRefreshRotatesToken(t *testing.T) {
	app, tokens := newAuthApp(t)
	pair := login(t, app, "admin")
	refresh := pair["refresh_token"].(string)

	status, out := do(t, app, "POST", "/api/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	require.Equal(t, 200, status)
	assert.NotEqual(t, refresh, out["data"].(map[string]any)["refresh_token"])

	status, _ = do(t, app, "POST", "/api/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	assert.Equal(t, 401, status)
	assert.Equal(t, 1, tokens.Len())
}

func TestLogoutRevokes(t *testing.T) {
	app, tokens := newAuthApp(t)
	refresh := login(t, app, "admin")["refresh_token"].(string)

	status, _ := do(t, app, "POST", "/api/auth/logout", `{"refresh_token":"`+refresh+`"}`, "")
	assert.Equal(t, 200, status)
	assert.Equal(t, 0, tokens.Len())

	status, _ = do(t, app, "POST", "/api/auth/logout", `{}`, "")
	assert.Equal(t, 401, status)
}

func TestTokenStoreExpiry(t *testing.T) {
	s := NewTokenStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	token := s.Issue("admin", []string{"admin"})
	now = now.Add(2 * time.Minute)

	_, _, ok := s.Consume(token)
	assert.False(t, ok)

	s.Issue("a", nil)
	now = now.Add(2 * time.Minute)
	s.Issue("b", nil)
	assert.Equal(t, 1, s.Len())
}
