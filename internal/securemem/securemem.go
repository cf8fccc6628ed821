// Package securemem keeps secrets in memguard enclaves: encrypted at rest in
// memory and only decrypted into guarded buffers while being read.
package securemem

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// Init installs memguard's interrupt handler, which wipes guarded memory
// before the process exits on SIGINT. Call it once from main.
func Init() {
	memguard.CatchInterrupt()
}

// Cleanup purges every guarded buffer. Call it before exit.
func Cleanup() {
	memguard.Purge()
}

// String is an immutable secret held in an enclave.
type String struct {
	enclave *memguard.Enclave
}

// NewString seals plaintext into an enclave. Empty input yields an empty
// String.
func NewString(plaintext string) *String {
	if plaintext == "" {
		return &String{}
	}
	// NewEnclave wipes its argument, so hand it a private copy.
	return &String{enclave: memguard.NewEnclave([]byte(plaintext))}
}

// Reveal returns the plaintext. The result lives in ordinary memory.
func (s *String) Reveal() string {
	var out string
	s.WithBytes(func(b []byte) { out = string(b) })
	return out
}

// WithBytes calls fn with the decrypted bytes. fn must not retain them.
func (s *String) WithBytes(fn func([]byte)) {
	if s == nil || s.enclave == nil {
		return
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return
	}
	defer buf.Destroy()
	fn(buf.Bytes())
}

// Len returns the plaintext length.
func (s *String) Len() int {
	if s == nil || s.enclave == nil {
		return 0
	}
	return s.enclave.Size()
}

// IsEmpty reports whether the String holds no data.
func (s *String) IsEmpty() bool {
	return s.Len() == 0
}

// Equal compares against plaintext in constant time.
func (s *String) Equal(other string) bool {
	if s.IsEmpty() {
		return other == ""
	}
	equal := false
	s.WithBytes(func(b []byte) {
		equal = subtle.ConstantTimeCompare(b, []byte(other)) == 1
	})
	return equal
}

// Destroy drops the enclave. Later reads return empty values.
func (s *String) Destroy() {
	if s == nil {
		return
	}
	s.enclave = nil
}
