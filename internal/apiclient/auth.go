package apiclient

import (
	"context"
	"net/http"

	"rehab-service/pkg/types"
)

// DevLogin signs in by display name against a server running in debug mode.
func (c *Client) DevLogin(ctx context.Context, name string) (*types.LoginResult, error) {
	var res types.LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/dev", authNone, map[string]string{"name": name}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (*types.User, error) {
	var u types.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", authRequired, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
