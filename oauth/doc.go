// Package oauth implements the OAuth 2.0 token lifecycle for HTTP clients:
// token acquisition and refresh, cached credential state, and the two request
// augmentation strategies (query-parameter and Authorization-header token
// injection).
//
// # Token manager
//
// A TokenManager owns the credential state of one OAuth2 client. It returns
// the cached access token while it is valid and performs the configured grant
// exchange when the cache is empty, expired, or a refresh is forced:
//
//	manager, err := oauth.NewTokenManager(oauth.Config{
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	    TokenURL:     "https://provider.example.com/oauth/token",
//	    GrantType:    oauth.GrantClientCredentials,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	token, err := manager.Token(ctx, false)
//
// Concurrent acquisitions coalesce into a single in-flight exchange, so many
// requests sharing one client never stampede the provider's token endpoint.
//
// # Authenticators
//
// HeaderAuthenticator and QueryParamAuthenticator wrap a TokenManager and
// satisfy the auth.Authenticator interface, so they plug directly into an
// auth.ChallengeHandler:
//
//	handler := auth.NewChallengeHandler()
//	handler.Register("Bearer", 10, oauth.NewHeaderAuthenticator(manager))
//
// # Token stores
//
// A TokenStore persists tokens across process restarts. Memory, Redis, GORM,
// and encrypted-wrapper backends are provided; a store attached with
// WithTokenStore seeds the manager's cache on first use and receives every
// newly acquired token.
//
// Provider-specific endpoints and wire formats are out of scope: the package
// speaks the generic RFC 6749 form-encoded token endpoint protocol and leaves
// endpoint URLs to configuration.
package oauth
