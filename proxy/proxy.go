// Package proxy provides the registrars that forward a path prefix to a
// downstream service.
//
// Each service type gets one Registrar. Requests under its prefix are
// dispatched with the prefix stripped; when the service cannot answer, the
// fallback policy of that service writes the response instead.
package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/pkg/dispatch"
	"github.com/cmsplatform/gateway/pkg/services"
)

// Dispatcher forwards a request to a downstream service.
type Dispatcher interface {
	Dispatch(ctx context.Context, svc services.Type, in *http.Request, remainder string) (*http.Response, error)
}

// Fallback writes the degraded response for svc.
type Fallback interface {
	Handle(w http.ResponseWriter, r *http.Request, svc services.Type, cause error) error
}

// Registrar mounts a catch-all route forwarding to one service.
type Registrar struct {
	dispatcher Dispatcher
	fallback   Fallback
	service    services.Type
	prefix     string
}

// New creates a registrar forwarding everything under prefix to svc.
func New(svc services.Type, prefix string, d Dispatcher, fb Fallback) *Registrar {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Registrar{service: svc, prefix: prefix, dispatcher: d, fallback: fb}
}

// Service returns the downstream service type.
func (p *Registrar) Service() services.Type {
	return p.service
}

func (p *Registrar) Prefix() string {
	return p.prefix
}

// Routes registers the catch-all handler for every method.
func (p *Registrar) Routes(r internal.Router) error {
	if p.dispatcher == nil || p.fallback == nil {
		return errors.Join(ErrNotConfigured, errors.New(p.service.String()))
	}
	r.Any("/", p.forward)
	r.Any("/*", p.forward)
	return nil
}

func (p *Registrar) forward(c internal.Context) error {
	req := c.Request()
	remainder := strings.TrimPrefix(req.URL.EscapedPath(), p.prefix)

	resp, err := p.dispatcher.Dispatch(c.Context(), p.service, req, remainder)
	if err != nil {
		if errors.Is(c.Context().Err(), context.Canceled) {
			return c.Context().Err()
		}
		if de, ok := dispatch.AsDownstreamError(err); ok {
			return p.fallback.Handle(c.Response(), req, p.service, de)
		}
		return err
	}
	defer resp.Body.Close()

	dst := c.Response().Header()
	for k, vs := range resp.Header {
		dst[k] = append(dst[k][:0], vs...)
	}
	dispatch.RemoveHopHeaders(dst)

	c.ResponseWriter().WriteHeader(resp.StatusCode)
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		c.LogWarn("copying downstream response failed",
			slog.String("service", p.service.String()),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
