// Package secrets seals values at rest with a password-derived AES-256-GCM
// key. Sealed values are plain strings carrying SecretPrefix, so they can sit
// next to unsealed values in the same JSON file.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// SecretPrefix marks a sealed value.
	SecretPrefix = "enc:"
	// payloadVersion allows the format to evolve while old values stay readable.
	payloadVersion = 1

	saltSize = 16
	keySize  = 32
)

var (
	// ErrInvalidPassword is returned when the provided password cannot open the payload.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidPayload indicates the payload structure is malformed.
	ErrInvalidPayload = errors.New("invalid encrypted payload")
	// ErrPasswordRequired is returned when a sealed value is opened without a password.
	ErrPasswordRequired = errors.New("value is sealed but no password is set")
)

type payload struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Sealer seals and opens values with one password. The zero-password Sealer
// passes values through unchanged.
type Sealer struct {
	password string
}

// NewSealer returns a Sealer for password.
func NewSealer(password string) *Sealer {
	return &Sealer{password: password}
}

// Enabled reports whether the Sealer has a password.
func (s *Sealer) Enabled() bool {
	return s != nil && s.password != ""
}

// Seal returns value sealed with the password, or value itself when no
// password is set.
func (s *Sealer) Seal(value string) (string, error) {
	if !s.Enabled() || value == "" || IsSealed(value) {
		return value, nil
	}
	return EncryptString(value, s.password)
}

// Open returns the plaintext of value. Unsealed values are returned as-is.
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if !s.Enabled() {
		return "", ErrPasswordRequired
	}
	plain, _, err := DecryptString(value, s.password)
	return plain, err
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SecretPrefix)
}

// EncryptString seals value and returns its storage form with SecretPrefix.
func EncryptString(value, password string) (string, error) {
	if value == "" {
		return "", nil
	}

	p, err := seal([]byte(value), password)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	return SecretPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// DecryptString opens a value produced by EncryptString. The bool reports
// whether value was sealed at all.
func DecryptString(value, password string) (string, bool, error) {
	if value == "" {
		return "", false, nil
	}
	if !IsSealed(value) {
		return value, false, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SecretPrefix))
	if err != nil {
		return "", true, fmt.Errorf("%w: decode payload: %v", ErrInvalidPayload, err)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", true, fmt.Errorf("%w: parse payload: %v", ErrInvalidPayload, err)
	}

	plaintext, err := open(&p, password)
	if err != nil {
		return "", true, err
	}
	return string(plaintext), true, nil
}

func seal(data []byte, password string) (*payload, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return &payload{
		Version:    payloadVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, data, nil)),
	}, nil
}

func open(p *payload, password string) ([]byte, error) {
	if p.Version != payloadVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidPayload, p.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: decode salt: %v", ErrInvalidPayload, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(p.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: decode nonce: %v", ErrInvalidPayload, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decode ciphertext: %v", ErrInvalidPayload, err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: invalid nonce size", ErrInvalidPayload)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return plaintext, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(password), salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}
