package services

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/amirphl/Susanoo/utils"
	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/pbkdf2"
)

// fernetKeyLength is the length of a url-safe base64 encoded 32 byte key
const fernetKeyLength = 44

var ErrTokenDecryptFailed = errors.New("failed to decrypt token")

// TokenCipher encrypts and decrypts stored platform access tokens.
// Ciphertexts are the url-safe base64 encoding of a Fernet token.
type TokenCipher struct {
	key *fernet.Key
}

// NewTokenCipher builds a cipher from the configured secret. A 44 character
// secret is decoded as a Fernet key; shorter ones are stretched with PBKDF2.
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption key is required")
	}

	if len(secret) >= fernetKeyLength {
		key, err := fernet.DecodeKey(secret)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		return &TokenCipher{key: key}, nil
	}

	derived := pbkdf2.Key([]byte(secret), []byte(utils.EncryptionKeySalt), utils.EncryptionKeyIterations, 32, sha256.New)
	key := new(fernet.Key)
	copy(key[:], derived)
	return &TokenCipher{key: key}, nil
}

// Encrypt returns the storable form of plain. Empty input yields an empty string.
func (c *TokenCipher) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	tok, err := fernet.EncryptAndSign([]byte(plain), c.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(tok), nil
}

// Decrypt reverses Encrypt. Token age is not checked.
func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	tok, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenDecryptFailed, err)
	}
	msg := fernet.VerifyAndDecrypt(tok, 0, []*fernet.Key{c.key})
	if msg == nil {
		return "", ErrTokenDecryptFailed
	}
	return string(msg), nil
}
