// Package credentials stores the secrets prepbrief needs (the LLM API key
// and database passwords) in the system keyring:
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (libsecret)
//
// Environment variables take precedence over the keyring so CI and
// containers can run without one.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"

	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

// KeyringService is the service name secrets are stored under.
const KeyringService = "prepbrief"

// Secret names one stored secret.
type Secret string

const (
	SecretOpenAIKey     Secret = "openai-api-key"
	SecretDBPassword    Secret = "db-password"
	SecretRedisPassword Secret = "redis-password"
)

// AllSecrets lists every secret in display order.
var AllSecrets = []Secret{SecretOpenAIKey, SecretDBPassword, SecretRedisPassword}

// Source says where a resolved secret came from.
type Source string

const (
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
	SourceNone    Source = "none"
)

var (
	// ErrNoCredentials is returned when a secret is neither in the
	// environment nor in the keyring.
	ErrNoCredentials = errors.New("no credentials stored")
	// ErrKeyringUnavailable indicates the system keyring could not be used.
	ErrKeyringUnavailable = errors.New("system keyring unavailable")
)

// ParseSecret maps a user-supplied name to a Secret.
func ParseSecret(name string) (Secret, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "openai", "llm":
		return SecretOpenAIKey, nil
	case "db", "postgres":
		return SecretDBPassword, nil
	case "redis":
		return SecretRedisPassword, nil
	}
	for _, s := range AllSecrets {
		if string(s) == n {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown secret %q", pberrors.ErrValidation, name)
}

// EnvVars returns the environment variables checked for s, in priority order.
func (s Secret) EnvVars() []string {
	switch s {
	case SecretOpenAIKey:
		return []string{"PREPBRIEF_OPENAI_API_KEY", "OPENAI_API_KEY"}
	case SecretDBPassword:
		return []string{"DB_PASSWORD"}
	case SecretRedisPassword:
		return []string{"PREPBRIEF_REDIS_PASSWORD"}
	default:
		return nil
	}
}

// Store reads and writes secrets in the system keyring.
type Store struct {
	service string
}

// NewStore creates a Store using KeyringService.
func NewStore() *Store {
	return &Store{service: KeyringService}
}

// Get returns the secret stored in the keyring.
func (s *Store) Get(secret Secret) (string, error) {
	v, err := keyring.Get(s.service, string(secret))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNoCredentials, secret)
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

// Set stores value for secret, replacing any previous value.
func (s *Store) Set(secret Secret, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: %s must not be empty", pberrors.ErrValidation, secret)
	}
	if err := keyring.Set(s.service, string(secret), value); err != nil {
		return fmt.Errorf("%w: storing %s: %v", ErrKeyringUnavailable, secret, err)
	}
	return nil
}

// Delete removes secret from the keyring. Deleting a missing secret is not an error.
func (s *Store) Delete(secret Secret) error {
	if err := keyring.Delete(s.service, string(secret)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: deleting %s: %v", ErrKeyringUnavailable, secret, err)
	}
	return nil
}

// Resolve returns secret from the environment, falling back to the keyring.
func (s *Store) Resolve(secret Secret) (string, Source, error) {
	for _, name := range secret.EnvVars() {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, SourceEnv, nil
		}
	}
	v, err := s.Get(secret)
	if err != nil {
		return "", SourceNone, err
	}
	return v, SourceKeyring, nil
}

// Status describes one secret for display. The value itself is masked.
type Status struct {
	Secret Secret `json:"secret" yaml:"secret"`
	Source Source `json:"source" yaml:"source"`
	Masked string `json:"masked,omitempty" yaml:"masked,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Status reports where each secret resolves from.
func (s *Store) Status(secrets ...Secret) []Status {
	if len(secrets) == 0 {
		secrets = AllSecrets
	}
	out := make([]Status, 0, len(secrets))
	for _, secret := range secrets {
		v, src, err := s.Resolve(secret)
		st := Status{Secret: secret, Source: src}
		switch {
		case err == nil:
			st.Masked = MaskCredential(v)
		case !errors.Is(err, ErrNoCredentials):
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// MaskCredential returns a masked version of the credential for display.
func MaskCredential(cred string) string {
	if len(cred) <= 8 {
		return strings.Repeat("*", len(cred))
	}
	return cred[:4] + strings.Repeat("*", len(cred)-8) + cred[len(cred)-4:]
}

// KeyringDescription names the keyring backend for the current platform.
func KeyringDescription() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}
