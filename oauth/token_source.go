package oauth

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts a TokenManager to the golang.org/x/oauth2 TokenSource
// interface, so the manager plugs into clients and SDKs built on that
// package (e.g. oauth2.NewClient).
func TokenSource(ctx context.Context, manager *TokenManager) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, manager: manager}
}

type managerTokenSource struct {
	ctx     context.Context
	manager *TokenManager
}

// Token implements oauth2.TokenSource.
func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.manager.Token(s.ctx, false)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.ExpiresAt,
	}, nil
}
