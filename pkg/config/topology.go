package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cmsplatform/gateway/pkg/publicpath"
	"github.com/cmsplatform/gateway/pkg/ratelimit"
)

const authFamilyPrefix = "/api/auth"

// GroupSpec declares a route group.
type GroupSpec struct {
	Name   string   `yaml:"name"`
	Prefix string   `yaml:"prefix"`
	Parent string   `yaml:"parent,omitempty"`
	Tags   []string `yaml:"tags,omitempty"`
}

// RouteSpec binds a path prefix to a downstream service.
type RouteSpec struct {
	Service string `yaml:"service"`
	Prefix  string `yaml:"prefix"`
}

// Topology is the file-driven part of the configuration.
type Topology struct {
	Services          map[string]string  `yaml:"services,omitempty"`
	Groups            []GroupSpec        `yaml:"groups,omitempty"`
	Routes            []RouteSpec        `yaml:"routes,omitempty"`
	PublicPaths       []publicpath.Rule  `yaml:"public_paths,omitempty"`
	RateLimitFamilies []ratelimit.Family `yaml:"rate_limit_families,omitempty"`
}

// DefaultTopology mounts each service under /api/<service> inside an "api"
// group.
func DefaultTopology() Topology {
	return Topology{
		Groups: []GroupSpec{
			{Name: "api", Prefix: "/api"},
			{Name: "auth", Prefix: "/auth", Parent: "api", Tags: []string{"identity"}},
			{Name: "users", Prefix: "/users", Parent: "api", Tags: []string{"identity"}},
			{Name: "content", Prefix: "/content", Parent: "api", Tags: []string{"cms"}},
			{Name: "media", Prefix: "/media", Parent: "api", Tags: []string{"cms"}},
			{Name: "analytics", Prefix: "/analytics", Parent: "api", Tags: []string{"reporting"}},
			{Name: "notifications", Prefix: "/notifications", Parent: "api", Tags: []string{"messaging"}},
		},
		Routes: []RouteSpec{
			{Service: "auth", Prefix: "/api/auth"},
			{Service: "user", Prefix: "/api/users"},
			{Service: "content", Prefix: "/api/content"},
			{Service: "media", Prefix: "/api/media"},
			{Service: "analytics", Prefix: "/api/analytics"},
			{Service: "notification", Prefix: "/api/notifications"},
		},
		PublicPaths: publicpath.Defaults(),
	}
}

// LoadTopology reads a YAML topology file.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrTopologyFile, err)
	}
	return ParseTopology(data)
}

// ParseTopology decodes a YAML topology document. Unknown fields are rejected.
func ParseTopology(data []byte) (*Topology, error) {
	t := &Topology{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(t); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrTopologyFile, err)
	}
	return t, nil
}
