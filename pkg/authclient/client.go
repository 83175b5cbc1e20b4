// Package authclient is the Go client for the CityHub auth API. It mirrors
// the dashboard's session handling: a typed HTTP client plus a Session that
// keeps the current user in memory and the token in durable storage.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// User is the public projection the API returns. It never carries a
// password or hash field.
type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName,omitempty"`
	UserName    string      `json:"userName,omitempty"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type Preferences struct {
	Notifications bool `json:"notifications"`
}

// UserUpdate mirrors the server's partial-update contract: nil means
// "leave unchanged".
type UserUpdate struct {
	DisplayName *string      `json:"displayName,omitempty"`
	UserName    *string      `json:"userName,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

// AuthResponse is the signup/login success body.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// APIError is the error envelope the API responds with.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse

	err := c.do(ctx, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    email,
		"password": password,
	}, &out)

	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse

	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &out)

	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Me resolves the token's current user.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User

	err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out)

	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, token string, upd UserUpdate) (*User, error) {
	var out User

	err := c.do(ctx, http.MethodPut, "/api/auth/user", token, upd, &out)

	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var buf bytes.Buffer

	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)

	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)

	if err != nil {
		return err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error APIError `json:"error"`
	}

	apiErr := &APIError{Status: resp.StatusCode, Code: "unknown", Message: resp.Status}

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}

	return apiErr
}
