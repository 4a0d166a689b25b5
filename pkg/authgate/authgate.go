// Package authgate decides whether a request may reach a protected route.
//
// The gate does not verify credentials. An upstream stage places a
// [Principal] on the request context after verifying a token; the gate only
// checks that one is present for paths outside the public list.
package authgate

import (
	"context"

	"github.com/cmsplatform/gateway/pkg/publicpath"
)

// Principal is an authenticated identity produced by an upstream verifier.
type Principal interface {
	Subject() string
}

// Outcome is the gate's verdict for one request.
type Outcome int

const (
	Continue Outcome = iota
	Reject
)

func (o Outcome) String() string {
	if o == Reject {
		return "reject"
	}
	return "continue"
}

// Gate authorizes requests by path and principal presence.
type Gate struct {
	public publicpath.List
}

// New creates a gate that lets the given public paths through unauthenticated.
func New(public publicpath.List) *Gate {
	return &Gate{public: public}
}

// Authorize returns Continue for public paths and for requests carrying a
// principal, Reject otherwise.
func (g *Gate) Authorize(path string, p Principal) Outcome {
	if g.public.Match(path) {
		return Continue
	}
	if present(p) {
		return Continue
	}
	return Reject
}

// IsPublic reports whether path bypasses the gate.
func (g *Gate) IsPublic(path string) bool {
	return g.public.Match(path)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, or nil.
func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	if !present(p) {
		return nil
	}
	return p
}

func present(p Principal) bool {
	if p == nil {
		return false
	}
	// A typed nil pointer stored in the interface is not an identity.
	defer func() { _ = recover() }()
	return p.Subject() != ""
}
