package cmd

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/prepbrief/credentials"
	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

type fakeSecretStore struct {
	values  map[credentials.Secret]string
	deleted []credentials.Secret
}

func newFakeSecretStore() *fakeSecretStore {
	return &fakeSecretStore{values: make(map[credentials.Secret]string)}
}

func (s *fakeSecretStore) Set(secret credentials.Secret, value string) error {
	if value == "" {
		return pberrors.ErrValidation
	}
	s.values[secret] = value
	return nil
}

func (s *fakeSecretStore) Delete(secret credentials.Secret) error {
	s.deleted = append(s.deleted, secret)
	delete(s.values, secret)
	return nil
}

func (s *fakeSecretStore) Status(secrets ...credentials.Secret) []credentials.Status {
	out := make([]credentials.Status, 0, len(credentials.AllSecrets))
	for _, secret := range credentials.AllSecrets {
		st := credentials.Status{Secret: secret, Source: credentials.SourceNone}
		if v, ok := s.values[secret]; ok {
			st.Source = credentials.SourceKeyring
			st.Masked = credentials.MaskCredential(v)
		}
		out = append(out, st)
	}
	return out
}

func authDeps(store *fakeSecretStore, input string) *AuthCommandDeps {
	return &AuthCommandDeps{
		Store: store,
		ReadSecret: func(prompt string, stderr io.Writer) (string, error) {
			return input, nil
		},
	}
}

func TestAuthSetKey(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		secret credentials.Secret
	}{
		{"default is openai", []string{"set-key"}, credentials.SecretOpenAIKey},
		{"db alias", []string{"set-key", "db"}, credentials.SecretDBPassword},
		{"redis alias", []string{"set-key", "redis"}, credentials.SecretRedisPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeSecretStore()
			out, err := run(t, NewAuthCommand(authDeps(store, "sk-abcdefghijklmnop")), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, "sk-abcdefghijklmnop", store.values[tt.secret])
			assert.Contains(t, out, "Stored "+string(tt.secret))
			assert.NotContains(t, out, "sk-abcdefghijklmnop")
		})
	}
}

func TestAuthSetKey_Errors(t *testing.T) {
	store := newFakeSecretStore()
	_, err := run(t, NewAuthCommand(authDeps(store, "value")), "set-key", "github")
	assert.True(t, pberrors.IsValidation(err))

	_, err = run(t, NewAuthCommand(authDeps(store, "")), "set-key")
	assert.Error(t, err)

	deps := authDeps(store, "")
	deps.ReadSecret = func(string, io.Writer) (string, error) { return "", errors.New("reading secret: EOF") }
	_, err = run(t, NewAuthCommand(deps), "set-key")
	assert.ErrorContains(t, err, "reading secret")
	assert.Empty(t, store.values)
}

func TestAuthStatus(t *testing.T) {
	store := newFakeSecretStore()
	store.values[credentials.SecretOpenAIKey] = "sk-abcdefghijklmnop"

	out, err := run(t, NewAuthCommand(authDeps(store, "")), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "SECRET")
	assert.Contains(t, out, "sk-a***********mnop")
	assert.Contains(t, out, "(not set)")

	out, err = run(t, NewAuthCommand(authDeps(store, "")), "status", "-o", "json")
	require.NoError(t, err)
	var statuses []credentials.Status
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, len(credentials.AllSecrets))
	assert.Equal(t, credentials.SourceKeyring, statuses[0].Source)
}

func TestAuthClear(t *testing.T) {
	store := newFakeSecretStore()
	store.values[credentials.SecretDBPassword] = "hunter2"

	out, err := run(t, NewAuthCommand(authDeps(store, "")), "clear", "postgres")
	require.NoError(t, err)
	assert.Equal(t, "Cleared db-password\n", out)
	assert.Empty(t, store.values)

	store = newFakeSecretStore()
	_, err = run(t, NewAuthCommand(authDeps(store, "")), "clear", "--all")
	require.NoError(t, err)
	assert.Equal(t, credentials.AllSecrets, store.deleted)
}
