package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"

	"stockdash/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTP     string `json:"totp,omitempty"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Login authenticates and persists the returned token pair. When the client
// was configured with a TOTP secret the current code is sent as well.
func (c *Client) Login(ctx context.Context, email, password string) error {
	req := loginRequest{Email: email, Password: password}
	if c.totpSecret != "" {
		code, err := totp.GenerateCode(c.totpSecret, time.Now())
		if err != nil {
			return fmt.Errorf("login: generate totp: %w", err)
		}
		req.TOTP = code
	}

	var resp loginResponse
	if err := c.post(ctx, "/auth/login", req, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("login: response carried no access_token")
	}
	if err := c.tokens.Save(ctx, model.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.logger.Info("logged in", "email", email)
	return nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var u model.User
	if err := c.post(ctx, "/auth/register", body, &u); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &u, nil
}

// Logout notifies the backend and always clears the local session, even if
// the backend call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.post(ctx, "/auth/logout", nil, nil)
	if cerr := c.session.Logout(ctx); cerr != nil {
		return cerr
	}
	if err != nil {
		c.logger.Warn("backend logout failed", "error", err)
	}
	return nil
}

// LoggedIn reports whether an access token is stored.
func (c *Client) LoggedIn(ctx context.Context) bool {
	tok, err := c.tokens.Access(ctx)
	return err == nil && tok != ""
}

// refreshTokens is the session.RefreshFunc. It goes straight to the wire
// without the stored access token and without 401 handling.
func (c *Client) refreshTokens(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	r := &request{timeout: c.timeout}
	body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})

	raw, err := c.send(ctx, http.MethodPost, "/auth/refresh", r, body, "")
	if err != nil {
		return model.TokenPair{}, err
	}
	var pair model.TokenPair
	if err := json.Unmarshal(unwrap(raw), &pair); err != nil {
		return model.TokenPair{}, fmt.Errorf("decode refresh response: %w", err)
	}
	return pair, nil
}
