package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anavel898/project-management-dashboard/internal/keychain"
)

// ErrNotAuthenticated is returned when no access token is available
var ErrNotAuthenticated = errors.New("not authenticated: please run 'pmctl login' first")

// AuthenticatedClient wraps Client with a keychain-backed session
type AuthenticatedClient struct {
	client   *Client
	keychain keychain.Keychain
}

// NewAuthenticatedClient creates a new authenticated API client
func NewAuthenticatedClient(baseURL string, kc keychain.Keychain) *AuthenticatedClient {
	return &AuthenticatedClient{
		client:   NewClient(baseURL),
		keychain: kc,
	}
}

// SignupRequest is the body of POST /auth
type SignupRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the public part of an account
type User struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Signup registers a new account. It does not log in.
func (ac *AuthenticatedClient) Signup(in SignupRequest) (*User, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signup request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, ac.client.baseURL+"/auth", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ac.client.retryableRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var user User
	if err := decodeResponse(resp, &user); err != nil {
		return nil, fmt.Errorf("signup failed: %w", err)
	}
	return &user, nil
}

// Login exchanges username and password for a session token and stores
// both in the keychain.
func (ac *AuthenticatedClient) Login(username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}.Encode()
	req, err := http.NewRequest(http.MethodPost, ac.client.baseURL+"/login", strings.NewReader(form))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ac.client.retryableRequest(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var loginResp LoginResponse
	if err := decodeResponse(resp, &loginResp); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if loginResp.AccessToken == "" {
		return errors.New("login failed: server returned no access token")
	}

	return keychain.StoreSession(ac.keychain, loginResp.AccessToken, keychain.Credentials{
		Username: username,
		Password: password,
	})
}

// AuthenticatedRequest executes an HTTP request with authentication and auto re-login on 401
func (ac *AuthenticatedClient) AuthenticatedRequest(req *http.Request) (*http.Response, error) {
	token, err := ac.keychain.Get(keychain.KeyAccessToken)
	if err != nil {
		if errors.Is(err, keychain.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to retrieve access token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ac.client.retryableRequest(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	_ = resp.Body.Close()

	creds, err := keychain.LoadCredentials(ac.keychain)
	if err != nil {
		return nil, errors.New("session expired: please run 'pmctl login' again")
	}
	if err := ac.Login(creds.Username, creds.Password); err != nil {
		return nil, fmt.Errorf("auto re-login failed: %w", err)
	}

	token, err = ac.keychain.Get(keychain.KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve new access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to reset request body: %w", err)
		}
		req.Body = body
	}
	return ac.client.retryableRequest(req)
}

// Logout removes stored credentials from keychain
func (ac *AuthenticatedClient) Logout() error {
	return keychain.ClearSession(ac.keychain)
}

// do builds and sends an authenticated request. A non-nil body is sent
// as JSON.
func (ac *AuthenticatedClient) do(method, path string, body any) (*http.Response, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequest(method, ac.client.baseURL+path, nil)
	} else {
		data, merr := json.Marshal(body)
		if merr != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", merr)
		}
		req, err = http.NewRequest(method, ac.client.baseURL+path, bytes.NewReader(data))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return ac.AuthenticatedRequest(req)
}

// doJSON sends an authenticated request and decodes a 200 response into dst.
func (ac *AuthenticatedClient) doJSON(method, path string, body, dst any) error {
	resp, err := ac.do(method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, dst)
}

// doNoContent sends an authenticated request that must answer 204.
func (ac *AuthenticatedClient) doNoContent(method, path string) error {
	resp, err := ac.do(method, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNoContent {
		return errorFromResponse(resp)
	}
	return nil
}
