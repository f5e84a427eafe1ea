package auth

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"umlreg/internal/slogutil"
)

// Guard authorizes requests that change registry state.
type Guard struct {
	tokenHash string
	limiter   *RateLimiter
	logger    *slog.Logger
}

// NewGuard creates a Guard. An empty tokenHash disables the token check; the
// rate limit still applies.
func NewGuard(tokenHash string, limits RateLimitConfig, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Guard{
		tokenHash: tokenHash,
		limiter:   NewRateLimiter(limits, logger),
		logger:    logger,
	}
}

// Enabled reports whether a token is required.
func (g *Guard) Enabled() bool {
	return g.tokenHash != ""
}

// Start runs the limiter's background cleanup until ctx is done.
func (g *Guard) Start(ctx context.Context) {
	g.limiter.StartCleanup(ctx)
}

// Check authorizes r. retryAfter is set when the error is ErrRateLimited.
func (g *Guard) Check(r *http.Request) (retryAfter int, err error) {
	if g.Enabled() {
		token, ok := bearerToken(r)
		if !ok {
			return 0, ErrTokenMissing
		}
		if !IsValidTokenFormat(token) || !VerifyToken(token, g.tokenHash) {
			g.logger.Warn("Rejected token",
				"token", MaskToken(token),
				"remote", r.RemoteAddr,
			)
			return 0, ErrTokenInvalid
		}
	}
	if ok, retry := g.limiter.Allow(clientOf(r)); !ok {
		return retry, ErrRateLimited
	}
	return 0, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const scheme = "Bearer "
	if len(h) <= len(scheme) || !strings.EqualFold(h[:len(scheme)], scheme) {
		return "", false
	}
	return strings.TrimSpace(h[len(scheme):]), true
}

func clientOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
