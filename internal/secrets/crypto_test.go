package secrets

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s := NewSealer("correct horse")

	sealed, err := s.Seal("sk-mistral-0123456789")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "sk-mistral")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-mistral-0123456789", plain)

	again, err := s.Seal(sealed)
	require.NoError(t, err)
	assert.Equal(t, sealed, again, "sealing a sealed value is a no-op")
}

func TestSealerWithoutPassword(t *testing.T) {
	s := NewSealer("")
	assert.False(t, s.Enabled())

	out, err := s.Seal("plain-key-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-key-value", out)

	out, err = s.Open("plain-key-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-key-value", out)

	sealed, err := EncryptString("secret-value", "pw")
	require.NoError(t, err)
	_, err = s.Open(sealed)
	require.ErrorIs(t, err, ErrPasswordRequired)

	var nilSealer *Sealer
	assert.False(t, nilSealer.Enabled())
}

func TestDecryptStringErrors(t *testing.T) {
	sealed, err := EncryptString("secret-value", "right")
	require.NoError(t, err)

	tests := []struct {
		name    string
		value   string
		want    error
		wasEnc  bool
		wantOut string
	}{
		{name: "empty", value: "", wasEnc: false},
		{name: "plain", value: "abc", wasEnc: false, wantOut: "abc"},
		{name: "wrong password", value: sealed, wasEnc: true, want: ErrInvalidPassword},
		{name: "bad base64", value: SecretPrefix + "!!!", wasEnc: true, want: ErrInvalidPayload},
		{name: "bad json", value: SecretPrefix + base64.StdEncoding.EncodeToString([]byte("{")), wasEnc: true, want: ErrInvalidPayload},
		{name: "bad version", value: SecretPrefix + base64.StdEncoding.EncodeToString([]byte(`{"version":9}`)), wasEnc: true, want: ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, wasEnc, err := DecryptString(tt.value, "wrong")
			assert.Equal(t, tt.wasEnc, wasEnc)
			if tt.want != nil {
				require.ErrorIs(t, err, tt.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, out)
		})
	}
}

func TestEncryptStringIsSalted(t *testing.T) {
	a, err := EncryptString("same", "pw")
	require.NoError(t, err)
	b, err := EncryptString("same", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, SecretPrefix))

	empty, err := EncryptString("", "pw")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
