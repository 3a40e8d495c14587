package api

import (
	"context"
	"net/http"
)

// Login authenticates against /auth/login. The user id may be empty when the
// backend omits it; callers fall back to the token's subject.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	const op = "api.Login"

	var res loginResponse
	err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   "/auth/login",
		body:   creds,
	}, &res)
	if err != nil {
		return nil, err
	}

	if res.token() == "" {
		return nil, NewError(op, KindServerError, ErrUnexpectedResponse)
	}

	return &AuthResult{
		AccessToken:  res.token(),
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
		UserID:       res.userID(),
	}, nil
}

func (c *Client) Register(ctx context.Context, creds Credentials) error {
	return c.do(ctx, call{
		op:     "api.Register",
		method: http.MethodPost,
		path:   "/auth/register",
		body:   creds,
	}, nil)
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	const op = "api.Refresh"

	var res loginResponse
	err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refresh_token": refreshToken},
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.token() == "" {
		return nil, NewError(op, KindServerError, ErrUnexpectedResponse)
	}

	return &AuthResult{
		AccessToken:  res.token(),
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
		UserID:       res.userID(),
	}, nil
}
