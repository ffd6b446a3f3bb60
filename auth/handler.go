package auth

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Registration is one named authenticator held by a ChallengeHandler.
type Registration struct {
	// Scheme is the challenge scheme name the authenticator was registered
	// under, original case preserved.
	Scheme string

	// Priority ranks this authenticator against others that can handle the
	// same challenge; higher wins.
	Priority int

	Authenticator Authenticator

	// seq is the insertion sequence, used for enumeration order and as the
	// tie-break among equal priorities.
	seq uint64
}

// ChallengeHandler is the negotiation engine: a registry of named
// Authenticators that itself implements Authenticator by fanning out to the
// registered mechanisms.
//
// Pre-authentication applies every willing authenticator to the request, in
// registration order, so independent mechanisms can stack onto one request.
// Challenge handling selects the single highest-priority authenticator whose
// scheme appears in the response's challenge header.
//
// A handler is safe for concurrent use. Registration is expected at setup
// time but is legal at any point.
type ChallengeHandler struct {
	header string
	status int
	logger *slog.Logger

	mu   sync.RWMutex
	regs map[string]*Registration
	seq  uint64
}

// HandlerOption configures a ChallengeHandler.
type HandlerOption func(*ChallengeHandler)

// WithLogger sets the logger used for negotiation decisions.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *ChallengeHandler) {
		h.logger = logger
	}
}

// NewChallengeHandler creates a handler that negotiates origin-server
// authentication: 401 responses and the WWW-Authenticate header.
func NewChallengeHandler(opts ...HandlerOption) *ChallengeHandler {
	return newHandler("WWW-Authenticate", http.StatusUnauthorized, opts)
}

// NewProxyChallengeHandler creates a handler that negotiates proxy
// authentication: 407 responses and the Proxy-Authenticate header.
func NewProxyChallengeHandler(opts ...HandlerOption) *ChallengeHandler {
	return newHandler("Proxy-Authenticate", http.StatusProxyAuthRequired, opts)
}

func newHandler(header string, status int, opts []HandlerOption) *ChallengeHandler {
	h := &ChallengeHandler{
		header: header,
		status: status,
		logger: slog.Default(),
		regs:   make(map[string]*Registration),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Header returns the challenge header this handler negotiates.
func (h *ChallengeHandler) Header() string {
	return h.header
}

// Register adds an authenticator under the given scheme name at the given
// priority. Scheme names are case-insensitive; registering a name again
// replaces the prior entry.
func (h *ChallengeHandler) Register(scheme string, priority int, a Authenticator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	h.regs[strings.ToLower(scheme)] = &Registration{
		Scheme:        scheme,
		Priority:      priority,
		Authenticator: a,
		seq:           h.seq,
	}
}

// Unregister removes the authenticator registered under the given scheme
// name, if any.
func (h *ChallengeHandler) Unregister(scheme string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.regs, strings.ToLower(scheme))
}

// Authenticators returns a snapshot of the current registrations in
// registration order.
func (h *ChallengeHandler) Authenticators() []Registration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Registration, 0, len(h.regs))
	for _, reg := range h.regs {
		out = append(out, *reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// CanPreAuthenticate reports whether any registered authenticator has
// something to attach to the request.
func (h *ChallengeHandler) CanPreAuthenticate(req *http.Request) bool {
	for _, reg := range h.Authenticators() {
		if reg.Authenticator.CanPreAuthenticate(req) {
			return true
		}
	}
	return false
}

// PreAuthenticate applies every registered authenticator whose
// CanPreAuthenticate is true, sequentially in registration order. Sequential
// application matters: later authenticators may depend on request state
// written by earlier ones.
func (h *ChallengeHandler) PreAuthenticate(ctx context.Context, req *http.Request) error {
	for _, reg := range h.Authenticators() {
		if !reg.Authenticator.CanPreAuthenticate(req) {
			continue
		}
		if err := reg.Authenticator.PreAuthenticate(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// CanHandleChallenge reports whether the response carries a challenge that at
// least one registered authenticator recognizes and can remediate.
func (h *ChallengeHandler) CanHandleChallenge(req *http.Request, resp *http.Response) bool {
	return len(h.candidates(req, resp)) > 0
}

// HandleChallenge selects the highest-priority authenticator among those
// matching the response's challenge and invokes its HandleChallenge. Equal
// priorities are broken by registration order. Callers must check
// CanHandleChallenge first; a challenge with no match fails with
// ErrNoMatchingAuthenticator.
func (h *ChallengeHandler) HandleChallenge(ctx context.Context, req *http.Request, resp *http.Response) error {
	candidates := h.candidates(req, resp)
	if len(candidates) == 0 {
		return ErrNoMatchingAuthenticator
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].seq < candidates[j].seq
	})

	selected := candidates[0]
	h.logger.Debug("handling authentication challenge",
		"header", h.header,
		"scheme", selected.Scheme,
		"priority", selected.Priority,
		"candidates", len(candidates))

	return selected.Authenticator.HandleChallenge(ctx, req, resp)
}

// candidates returns the registrations whose scheme appears in the
// response's challenge header and whose own CanHandleChallenge agrees.
func (h *ChallengeHandler) candidates(req *http.Request, resp *http.Response) []Registration {
	if resp == nil || resp.StatusCode != h.status {
		return nil
	}

	var out []Registration
	seen := make(map[string]bool)
	for _, challenge := range ChallengesFromResponse(resp, h.header) {
		name := strings.ToLower(challenge.Scheme)
		if seen[name] {
			continue
		}
		seen[name] = true

		h.mu.RLock()
		reg, ok := h.regs[name]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		if reg.Authenticator.CanHandleChallenge(req, resp) {
			out = append(out, *reg)
		}
	}
	return out
}
