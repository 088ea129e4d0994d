// Package secrets seals repository secret values before they leave the
// machine. Values are encrypted to the repository public key with a NaCl
// anonymous sealed box; only GitHub holds the private key.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/crypto/nacl/box"
)

// ErrInvalidName is returned for names GitHub would reject.
var ErrInvalidName = errors.New("invalid secret name")

const keySize = 32

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Sealer encrypts values for one repository key.
type Sealer struct {
	KeyID string
	key   [keySize]byte
	rand  io.Reader
}

// NewSealer decodes the base64 public key returned by the API.
func NewSealer(keyID, publicKey string) (*Sealer, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(publicKey))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("decode public key: got %d bytes, want %d", len(raw), keySize)
	}
	s := &Sealer{KeyID: keyID, rand: rand.Reader}
	copy(s.key[:], raw)
	return s, nil
}

// Seal encrypts value and returns it base64 encoded. Each call uses a fresh
// ephemeral key, so sealing the same value twice gives different output.
func (s *Sealer) Seal(value []byte) (string, error) {
	sealed, err := box.SealAnonymous(nil, value, &s.key, s.rand)
	if err != nil {
		return "", fmt.Errorf("seal secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal given the key pair. GitHub does this server side; actlog
// only needs it to verify its own output.
func Open(sealed string, publicKey, privateKey *[keySize]byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("decode sealed value: %w", err)
	}
	out, ok := box.OpenAnonymous(nil, raw, publicKey, privateKey)
	if !ok {
		return nil, errors.New("open sealed value: authentication failed")
	}
	return out, nil
}

// ValidateName checks a secret name against GitHub's naming rules.
func ValidateName(name string) error {
	switch {
	case !nameRe.MatchString(name):
		return fmt.Errorf("%w %q: only letters, digits and underscores, not starting with a digit", ErrInvalidName, name)
	case strings.HasPrefix(strings.ToUpper(name), "GITHUB_"):
		return fmt.Errorf("%w %q: GITHUB_ prefix is reserved", ErrInvalidName, name)
	}
	return nil
}
