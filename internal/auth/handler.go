package auth

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"required-backend/internal/engine"
	"required-backend/internal/logging"
)

// Account is a user allowed to log in. Accounts come from configuration.
type Account struct {
	Username     string
	PasswordHash string
	Roles        []string
}

// AuthHandler serves login, refresh and logout.
type AuthHandler struct {
	accounts  map[string]Account
	tokens    *TokenStore
	jwtSecret string
}

func NewAuthHandler(jwtSecret string, tokens *TokenStore, accounts ...Account) *AuthHandler {
	h := &AuthHandler{
		accounts:  make(map[string]Account, len(accounts)),
		tokens:    tokens,
		jwtSecret: jwtSecret,
	}
	for _, a := range accounts {
		if a.Username == "" || a.PasswordHash == "" {
			continue
		}
		h.accounts[a.Username] = a
	}
	return h
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}
	if body.Username == "" || body.Password == "" {
		return engine.UnauthorizedError("Username and password are required")
	}

	account, ok := h.accounts[body.Username]
	if !ok || !CheckPassword(body.Password, account.PasswordHash) {
		logging.FromContext(c.UserContext()).Warn("login failed", "username", body.Username, "ip", c.IP())
		return engine.UnauthorizedError("Invalid username or password")
	}

	pair, err := h.generateTokenPair(account.Username, account.Roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Refresh handles POST /api/auth/refresh. The presented token is rotated.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token, err := refreshToken(c)
	if err != nil {
		return err
	}

	username, roles, ok := h.tokens.Consume(token)
	if !ok {
		return engine.UnauthorizedError("Invalid or expired refresh token")
	}
	if _, active := h.accounts[username]; !active {
		return engine.UnauthorizedError("Account is disabled")
	}

	pair, err := h.generateTokenPair(username, roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, err := refreshToken(c)
	if err != nil {
		return err
	}
	h.tokens.Revoke(token)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	auth := app.Group("/api/auth")
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/logout", h.Logout)
}

func refreshToken(c *fiber.Ctx) (string, error) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return "", engine.InvalidPayloadError("Invalid request body")
	}
	if body.RefreshToken == "" {
		return "", engine.UnauthorizedError("Refresh token is required")
	}
	return body.RefreshToken, nil
}

func (h *AuthHandler) generateTokenPair(username string, roles []string) (*TokenPair, error) {
	access, err := GenerateAccessToken(username, roles, h.jwtSecret)
	if err != nil {
		return nil, engine.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: h.tokens.Issue(username, roles),
		ExpiresIn:    int(AccessTokenTTL.Seconds()),
	}, nil
}
