package keychain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned by Get for a key that was never stored.
var ErrNotFound = errors.New("key not found in keychain")

// Keys under which pmctl keeps its session
const (
	KeyAccessToken = "pmctl-token"
	KeyCredentials = "pmctl-credentials"
	ServiceName    = "pmctl"
)

// Keychain stores the session token and the credentials used to renew it.
type Keychain interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// MemoryKeychain keeps entries in process memory. Tests and headless
// environments without a secret service use it.
type MemoryKeychain struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryKeychain() *MemoryKeychain {
	return &MemoryKeychain{entries: map[string]string{}}
}

func (m *MemoryKeychain) Set(key, value string) error {
	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryKeychain) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if value, ok := m.entries[key]; ok {
		return value, nil
	}
	return "", ErrNotFound
}

func (m *MemoryKeychain) Delete(key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// SystemKeychain stores entries in the OS secret store (macOS Keychain,
// Secret Service, Windows Credential Manager) under one service name.
type SystemKeychain struct {
	service string
}

// NewSystemKeychain returns a keychain scoped to service. An empty service
// falls back to ServiceName.
func NewSystemKeychain(service string) *SystemKeychain {
	if service == "" {
		service = ServiceName
	}
	return &SystemKeychain{service: service}
}

func (s *SystemKeychain) Set(key, value string) error {
	return wrapKeyringErr("store", keyring.Set(s.service, key, value))
}

func (s *SystemKeychain) Get(key string) (string, error) {
	value, err := keyring.Get(s.service, key)
	if err != nil {
		return "", wrapKeyringErr("read", err)
	}
	return value, nil
}

// Delete is a no-op for a key that is already gone.
func (s *SystemKeychain) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return wrapKeyringErr("delete", err)
}

func wrapKeyringErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("keychain %s failed: %w", op, err)
	}
}

// Credentials are kept next to the token so an expired session can be
// renewed without prompting.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StoreSession saves the access token and the credentials that produced it.
func StoreSession(kc Keychain, token string, creds Credentials) error {
	if err := kc.Set(KeyAccessToken, token); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := kc.Set(KeyCredentials, string(data)); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// LoadCredentials returns the stored credentials, or ErrNotFound.
func LoadCredentials(kc Keychain) (Credentials, error) {
	var creds Credentials
	raw, err := kc.Get(KeyCredentials)
	if err != nil {
		return creds, err
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return creds, fmt.Errorf("failed to parse stored credentials: %w", err)
	}
	return creds, nil
}

// ClearSession removes both the token and the credentials.
func ClearSession(kc Keychain) error {
	if err := kc.Delete(KeyAccessToken); err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}
	if err := kc.Delete(KeyCredentials); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
