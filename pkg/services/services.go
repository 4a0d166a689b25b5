package services

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Type identifies one of the downstream services behind the gateway.
type Type string

const (
	Auth         Type = "auth"
	User         Type = "user"
	Content      Type = "content"
	Media        Type = "media"
	Analytics    Type = "analytics"
	Notification Type = "notification"
)

// All returns every known service type in a stable order.
func All() []Type {
	return []Type{Auth, User, Content, Media, Analytics, Notification}
}

// Valid reports whether t is a known service type.
func (t Type) Valid() bool {
	switch t {
	case Auth, User, Content, Media, Analytics, Notification:
		return true
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// Parse converts a case-insensitive name into a Type.
func Parse(name string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return t, nil
}

// Directory maps each service type to its base address.
// It is immutable after construction and safe for concurrent use.
type Directory struct {
	addrs map[Type]*url.URL
}

// NewDirectory validates that every service type is bound to exactly one
// absolute http(s) address. A missing or malformed binding is a
// configuration error.
func NewDirectory(addrs map[Type]string) (*Directory, error) {
	var errs []error
	d := &Directory{addrs: make(map[Type]*url.URL, len(addrs))}

	for t := range addrs {
		if !t.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownService, t))
		}
	}

	for _, t := range All() {
		raw, ok := addrs[t]
		if !ok || strings.TrimSpace(raw) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingAddress, t))
			continue
		}
		u, err := url.Parse(strings.TrimRight(raw, "/"))
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidAddress, t, raw))
			continue
		}
		d.addrs[t] = u
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return d, nil
}

// Resolve returns a copy of the base address bound to t.
func (d *Directory) Resolve(t Type) (*url.URL, error) {
	u, ok := d.addrs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, t)
	}
	cp := *u
	return &cp, nil
}
