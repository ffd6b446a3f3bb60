package oauth

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// GrantType selects the exchange performed when no refresh token is cached.
type GrantType string

// Supported grant types
const (
	GrantClientCredentials GrantType = "client_credentials"
	GrantPassword          GrantType = "password"
	GrantJWTBearer         GrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	GrantAuthorizationCode GrantType = "authorization_code"
)

// Config defines one OAuth2 client.
type Config struct {
	// ClientID is the OAuth application's client ID
	ClientID string `env:"AUTHKIT_OAUTH_CLIENT_ID"`

	// ClientSecret is the OAuth application's client secret
	ClientSecret string `env:"AUTHKIT_OAUTH_CLIENT_SECRET"`

	// TokenURL is the provider's token endpoint
	TokenURL string `env:"AUTHKIT_OAUTH_TOKEN_URL"`

	// AuthURL is the provider's authorization endpoint (authorization-code
	// flow only)
	AuthURL string `env:"AUTHKIT_OAUTH_AUTH_URL"`

	// RedirectURL is the callback URL (authorization-code flow only)
	RedirectURL string `env:"AUTHKIT_OAUTH_REDIRECT_URL"`

	// Scopes is a comma-separated list of OAuth scopes
	Scopes string `env:"AUTHKIT_OAUTH_SCOPES"`

	// GrantType selects the flow used for initial token acquisition
	GrantType GrantType `env:"AUTHKIT_OAUTH_GRANT_TYPE,default=client_credentials"`

	// Username and Password are used by the password grant
	Username string `env:"AUTHKIT_OAUTH_USERNAME"`
	Password string `env:"AUTHKIT_OAUTH_PASSWORD"`

	// JWT-bearer grant (RFC 7523) assertion signing
	PrivateKeyPEM string        `env:"AUTHKIT_OAUTH_PRIVATE_KEY"`
	KeyID         string        `env:"AUTHKIT_OAUTH_KEY_ID"`
	Issuer        string        `env:"AUTHKIT_OAUTH_ISSUER"`
	Subject       string        `env:"AUTHKIT_OAUTH_SUBJECT"`
	Audience      string        `env:"AUTHKIT_OAUTH_AUDIENCE"`
	AssertionTTL  time.Duration `env:"AUTHKIT_OAUTH_ASSERTION_TTL,default=5m"`

	// HTTPTimeout is the timeout applied to the default HTTP client
	HTTPTimeout time.Duration `env:"AUTHKIT_OAUTH_HTTP_TIMEOUT,default=30s"`

	// HTTPClient overrides the client used for token endpoint requests
	HTTPClient HTTPClient `json:"-"`
}

// ConfigFromEnv loads a Config from AUTHKIT_OAUTH_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load oauth config from environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable for its grant type.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: client ID is required", ErrInvalidConfig)
	}
	if c.TokenURL == "" {
		return fmt.Errorf("%w: token URL is required", ErrInvalidConfig)
	}
	switch c.GrantType {
	case GrantClientCredentials, "":
	case GrantPassword:
		if c.Username == "" {
			return fmt.Errorf("%w: username is required for the password grant", ErrInvalidConfig)
		}
	case GrantJWTBearer:
		if c.PrivateKeyPEM == "" {
			return fmt.Errorf("%w: private key is required for the jwt-bearer grant", ErrInvalidConfig)
		}
	case GrantAuthorizationCode:
		if c.RedirectURL == "" {
			return fmt.Errorf("%w: redirect URL is required for the authorization-code grant", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedGrant, c.GrantType)
	}
	return nil
}

// scopeList splits the comma-separated Scopes field.
func (c *Config) scopeList() []string {
	if c.Scopes == "" {
		return nil
	}
	parts := strings.Split(c.Scopes, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, p)
		}
	}
	return scopes
}
