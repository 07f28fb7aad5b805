package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type userEnvelope struct {
	User User `json:"user"`
}

// Login authenticates with email and password. The backend delivers the
// session token in the Authorization response header; on success the client
// installs it for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	data, headers, err := c.invoke(ctx, http.MethodPost, "/login", nil, body, permissionKind)
	if err != nil {
		return Credentials{}, err
	}
	return c.adoptSession(data, headers)
}

// SignupRequest is the account-creation payload. Role defaults to customer.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// Signup registers a new account and installs the returned session token.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (Credentials, error) {
	if req.Role == "" {
		req.Role = "customer"
	}
	data, headers, err := c.invoke(ctx, http.MethodPost, "/signup", nil, map[string]SignupRequest{"user": req}, permissionKind)
	if err != nil {
		return Credentials{}, err
	}
	return c.adoptSession(data, headers)
}

// Logout revokes the session server-side and drops the local token. The local
// token is cleared even when the revocation call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, _, err := c.invoke(ctx, http.MethodDelete, "/logout", nil, nil, permissionKind)
	c.SetToken("")
	return err
}

// RegisterPushToken sends a device push token to the backend.
func (c *Client) RegisterPushToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("api: push token required")
	}
	_, _, err := c.invoke(ctx, http.MethodPost, "/users/push_token", nil, map[string]string{"push_token": token}, permissionKind)
	return err
}

func (c *Client) adoptSession(data []byte, headers http.Header) (Credentials, error) {
	token := strings.TrimPrefix(headers.Get("Authorization"), "Bearer ")
	if token == "" {
		return Credentials{}, errors.New("api: no session token in response")
	}
	var envelope userEnvelope
	if err := decodeInto("/login", data, &envelope); err != nil {
		return Credentials{}, err
	}
	c.SetToken(token)
	return Credentials{Token: token, User: envelope.User}, nil
}
