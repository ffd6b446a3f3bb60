package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCEChallenge represents PKCE challenge parameters (RFC 7636).
type PKCEChallenge struct {
	Verifier        string `json:"verifier"`
	Challenge       string `json:"challenge"`
	ChallengeMethod string `json:"challenge_method"`
}

// GeneratePKCEChallenge generates a PKCE challenge with verifier and challenge
func GeneratePKCEChallenge(method string) (*PKCEChallenge, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	var challenge string
	switch method {
	case "S256":
		challenge = generateS256Challenge(verifier)
	case "plain":
		challenge = verifier
	default:
		return nil, fmt.Errorf("unsupported PKCE method: %s", method)
	}

	return &PKCEChallenge{
		Verifier:        verifier,
		Challenge:       challenge,
		ChallengeMethod: method,
	}, nil
}

// generateCodeVerifier generates a cryptographically random code verifier
// (43-128 characters per RFC 7636).
func generateCodeVerifier() (string, error) {
	// 32 bytes of entropy is 43 chars base64url encoded
	data := make([]byte, 32)
	if _, err := rand.Read(data); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// generateS256Challenge generates the SHA256 challenge from a verifier
func generateS256Challenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// ValidatePKCEChallenge validates that a verifier matches a challenge
func ValidatePKCEChallenge(verifier, challenge, method string) bool {
	switch method {
	case "S256":
		return challenge == generateS256Challenge(verifier)
	case "plain":
		return verifier == challenge
	default:
		return false
	}
}
