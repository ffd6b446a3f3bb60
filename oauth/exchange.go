package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthCodeURL returns the provider's authorization URL for the
// authorization-code flow, with optional PKCE parameters. The returned state
// is a fresh random value the caller must verify on the callback.
func (m *TokenManager) AuthCodeURL(pkce *PKCEChallenge) (authURL, state string, err error) {
	if m.cfg.AuthURL == "" {
		return "", "", fmt.Errorf("%w: auth URL is required", ErrInvalidConfig)
	}

	state = uuid.NewString()
	params := url.Values{
		"client_id":     {m.cfg.ClientID},
		"redirect_uri":  {m.cfg.RedirectURL},
		"response_type": {"code"},
		"state":         {state},
	}
	if scopes := m.cfg.scopeList(); len(scopes) > 0 {
		params.Set("scope", strings.Join(scopes, " "))
	}
	if pkce != nil {
		params.Set("code_challenge", pkce.Challenge)
		params.Set("code_challenge_method", pkce.ChallengeMethod)
	}

	return m.cfg.AuthURL + "?" + params.Encode(), state, nil
}

// ExchangeCode exchanges an authorization code for tokens and commits the
// result as the manager's credential state.
func (m *TokenManager) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	return m.ExchangeCodeWithPKCE(ctx, code, nil)
}

// ExchangeCodeWithPKCE exchanges an authorization code obtained through a
// PKCE-protected authorization and commits the result.
func (m *TokenManager) ExchangeCodeWithPKCE(ctx context.Context, code string, pkce *PKCEChallenge) (*Token, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {m.cfg.RedirectURL},
	}
	if pkce != nil {
		data.Set("code_verifier", pkce.Verifier)
	}

	token, err := m.doExchange(ctx, data)
	if err != nil {
		return nil, err
	}
	m.commit(ctx, token)
	return token, nil
}

// grantForm builds the token request for the configured flow. Used when no
// refresh token is cached.
func (m *TokenManager) grantForm() (url.Values, error) {
	switch m.cfg.GrantType {
	case GrantClientCredentials, "":
		data := url.Values{"grant_type": {"client_credentials"}}
		if scopes := m.cfg.scopeList(); len(scopes) > 0 {
			data.Set("scope", strings.Join(scopes, " "))
		}
		return data, nil

	case GrantPassword:
		data := url.Values{
			"grant_type": {"password"},
			"username":   {m.cfg.Username},
			"password":   {m.cfg.Password},
		}
		if scopes := m.cfg.scopeList(); len(scopes) > 0 {
			data.Set("scope", strings.Join(scopes, " "))
		}
		return data, nil

	case GrantJWTBearer:
		assertion, err := m.signAssertion()
		if err != nil {
			return nil, err
		}
		return url.Values{
			"grant_type": {string(GrantJWTBearer)},
			"assertion":  {assertion},
		}, nil

	case GrantAuthorizationCode:
		// The code exchange is interactive; nothing to do lazily.
		return nil, ErrAuthorizationRequired

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGrant, m.cfg.GrantType)
	}
}

// refreshForm builds the refresh-token grant request.
func (m *TokenManager) refreshForm(refreshToken string) url.Values {
	return url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
}

// signAssertion builds and signs the RFC 7523 JWT assertion.
func (m *TokenManager) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(m.cfg.PrivateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	issuer := m.cfg.Issuer
	if issuer == "" {
		issuer = m.cfg.ClientID
	}
	subject := m.cfg.Subject
	if subject == "" {
		subject = m.cfg.ClientID
	}
	audience := m.cfg.Audience
	if audience == "" {
		audience = m.cfg.TokenURL
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AssertionTTL)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if m.cfg.KeyID != "" {
		token.Header["kid"] = m.cfg.KeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

// doExchange POSTs a form-encoded grant to the token endpoint and decodes the
// response. Client credentials ride in the form body.
func (m *TokenManager) doExchange(ctx context.Context, data url.Values) (*Token, error) {
	data.Set("client_id", m.cfg.ClientID)
	if m.cfg.ClientSecret != "" {
		data.Set("client_secret", m.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, &Error{Status: resp.StatusCode}
		}
		return nil, &Error{
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
			Status:      resp.StatusCode,
		}
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	var expiresAt time.Time
	if tokenResp.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &Token{
		AccessToken:  tokenResp.AccessToken,
		TokenType:    tokenResp.TokenType,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
		ExpiresAt:    expiresAt,
		Scope:        tokenResp.Scope,
	}, nil
}
