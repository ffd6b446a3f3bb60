package oauth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// encryptedStoreSalt is fixed so the same passphrase derives the same key
// across restarts. The salt does not need to be secret, only stable.
var encryptedStoreSalt = []byte("authkit/oauth/token-store/v1")

// EncryptedTokenStore wraps another TokenStore and encrypts tokens with
// AES-GCM before they reach the backend. The cipher key is derived from a
// caller-supplied passphrase with Argon2id.
type EncryptedTokenStore struct {
	store TokenStore
	gcm   cipher.AEAD
}

// NewEncryptedTokenStore creates an encrypting wrapper around store.
func NewEncryptedTokenStore(store TokenStore, passphrase []byte) (*EncryptedTokenStore, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: encryption passphrase cannot be empty", ErrInvalidConfig)
	}

	key := argon2.IDKey(passphrase, encryptedStoreSalt, 1, 64*1024, 4, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &EncryptedTokenStore{store: store, gcm: gcm}, nil
}

// Store encrypts and stores a token. The ciphertext rides in the wrapped
// token's AccessToken field; expiry metadata stays in the clear so backends
// can apply TTLs.
func (e *EncryptedTokenStore) Store(ctx context.Context, key string, token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := e.gcm.Seal(nonce, nonce, data, nil)

	wrapper := &Token{
		AccessToken: fmt.Sprintf("%x", sealed),
		TokenType:   "encrypted",
		ExpiresAt:   token.ExpiresAt,
	}
	if token.RefreshToken != "" {
		// Signal refreshability so backends keep the entry past expiry.
		wrapper.RefreshToken = "encrypted"
	}
	return e.store.Store(ctx, key, wrapper)
}

// Retrieve gets and decrypts a token by key.
func (e *EncryptedTokenStore) Retrieve(ctx context.Context, key string) (*Token, error) {
	wrapper, err := e.store.Retrieve(ctx, key)
	if err != nil {
		return nil, err
	}

	var sealed []byte
	if _, err := fmt.Sscanf(wrapper.AccessToken, "%x", &sealed); err != nil {
		return nil, fmt.Errorf("malformed encrypted token: %w", err)
	}
	if len(sealed) < e.gcm.NonceSize() {
		return nil, fmt.Errorf("malformed encrypted token: ciphertext too short")
	}

	nonce, ciphertext := sealed[:e.gcm.NonceSize()], sealed[e.gcm.NonceSize():]
	data, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// Delete removes a token by key.
func (e *EncryptedTokenStore) Delete(ctx context.Context, key string) error {
	return e.store.Delete(ctx, key)
}
