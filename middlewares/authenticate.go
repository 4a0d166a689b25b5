package middlewares

import (
	"context"
	"log/slog"

	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/pkg/authgate"
	"github.com/cmsplatform/gateway/pkg/logger"
	"github.com/cmsplatform/gateway/pkg/token"
)

type authenticateConfig struct {
	extractor internal.Extractor
}

// AuthenticateOption configures Authenticate.
type AuthenticateOption func(*authenticateConfig)

// WithTokenExtractor replaces the default bearer token extractor.
func WithTokenExtractor(e internal.Extractor) AuthenticateOption {
	return func(cfg *authenticateConfig) {
		cfg.extractor = e
	}
}

// Authenticate verifies the request's bearer token and, when it is valid,
// puts the claims on the request context as the principal.
//
// It never rejects a request. A missing or invalid token leaves the
// principal absent and the AuthGate stage decides.
func Authenticate(verifier *token.Verifier, opts ...AuthenticateOption) internal.Middleware {
	cfg := &authenticateConfig{
		extractor: internal.NewExtractor(internal.FromBearerToken()),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			if verifier == nil {
				return next(c)
			}
			raw, ok := cfg.extractor.Extract(c)
			if !ok {
				return next(c)
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				c.LogDebug("bearer token rejected", slog.String("error", err.Error()))
				return next(c)
			}

			c.SetContext(authgate.WithPrincipal(c.Context(), claims))
			return next(c)
		}
	}
}

// GetPrincipal returns the verified principal, or nil.
func GetPrincipal(c internal.Context) authgate.Principal {
	return authgate.PrincipalFrom(c.Context())
}

// PrincipalExtractor adds "principal" (the token subject) to log records.
func PrincipalExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if p := authgate.PrincipalFrom(ctx); p != nil {
			return slog.String("principal", p.Subject()), true
		}
		return slog.Attr{}, false
	}
}
