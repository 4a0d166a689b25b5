package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cmsplatform/gateway/pkg/logger"
)

// maxGroupDepth bounds parent walks.
const maxGroupDepth = 64

// RouteGroup is a named path prefix. Groups form a forest through Parent.
type RouteGroup struct {
	Name   string
	Prefix string
	Parent string
	Tags   []string
}

// HasTag reports whether the group carries tag.
func (g RouteGroup) HasTag(tag string) bool {
	return slices.Contains(g.Tags, tag)
}

type registrarEntry struct {
	registrar Registrar
	id        string
	prefix    string
}

// registryState is an immutable snapshot. Writers replace it wholesale.
type registryState struct {
	groups     map[string]RouteGroup
	groupOrder []string
	registrars []registrarEntry
}

func (s *registryState) clone() *registryState {
	out := &registryState{
		groups:     make(map[string]RouteGroup, len(s.groups)),
		groupOrder: slices.Clone(s.groupOrder),
		registrars: slices.Clone(s.registrars),
	}
	for k, v := range s.groups {
		out.groups[k] = v
	}
	return out
}

// Registry holds route groups and registrars. Reads never block; writes are
// serialized and publish a new snapshot.
type Registry struct {
	state  atomic.Pointer[registryState]
	logger *slog.Logger
	mu     sync.Mutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used to report mount failures.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: logger.NewNope()}
	for _, opt := range opts {
		opt(r)
	}
	r.state.Store(&registryState{groups: map[string]RouteGroup{}})
	return r
}

func (r *Registry) load() *registryState {
	return r.state.Load()
}

// RegisterGroup adds or replaces a group. The parent must already be
// registered; a failed call leaves the registry unchanged. Replacing a group
// keeps its original position.
func (r *Registry) RegisterGroup(g RouteGroup) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidGroup)
	}
	g.Prefix = cleanPrefix(g.Prefix)
	g.Parent = strings.TrimSpace(g.Parent)
	g.Tags = uniqueTags(g.Tags)

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.load()
	if g.Parent != "" {
		if _, ok := cur.groups[g.Parent]; !ok {
			return &InvalidParentError{Group: g.Name, Parent: g.Parent}
		}
		if leadsTo(cur, g.Parent, g.Name) {
			return &CycleDetectedError{Group: g.Name}
		}
	}

	next := cur.clone()
	if _, exists := next.groups[g.Name]; !exists {
		next.groupOrder = append(next.groupOrder, g.Name)
	}
	next.groups[g.Name] = g
	r.state.Store(next)
	return nil
}

// leadsTo reports whether walking parents from start reaches target, or
// fails to terminate within maxGroupDepth.
func leadsTo(s *registryState, start, target string) bool {
	name := start
	for range maxGroupDepth {
		if name == target {
			return true
		}
		g, ok := s.groups[name]
		if !ok || g.Parent == "" {
			return false
		}
		name = g.Parent
	}
	return true
}

// RemoveGroup deletes a group. Removing an unknown group is a no-op; a group
// with children cannot be removed.
func (r *Registry) RemoveGroup(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.load()
	if _, ok := cur.groups[name]; !ok {
		return nil
	}
	for _, g := range cur.groups {
		if g.Parent == name {
			return fmt.Errorf("%w: %q is the parent of %q", ErrGroupInUse, name, g.Name)
		}
	}

	next := cur.clone()
	delete(next.groups, name)
	next.groupOrder = slices.DeleteFunc(next.groupOrder, func(n string) bool { return n == name })
	r.state.Store(next)
	return nil
}

// RegisterRegistrar adds reg under id, or replaces the registrar already
// stored under id in place.
func (r *Registry) RegisterRegistrar(id string, reg Registrar) error {
	if strings.TrimSpace(id) == "" || reg == nil {
		return ErrInvalidRegistrar
	}
	entry := registrarEntry{id: id, registrar: reg, prefix: cleanPrefix(reg.Prefix())}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.load().clone()
	if i := slices.IndexFunc(next.registrars, func(e registrarEntry) bool { return e.id == id }); i >= 0 {
		next.registrars[i] = entry
	} else {
		next.registrars = append(next.registrars, entry)
	}
	r.state.Store(next)
	return nil
}

// RemoveRegistrar deletes the registrar stored under id and reports whether
// it existed.
func (r *Registry) RemoveRegistrar(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.load()
	i := slices.IndexFunc(cur.registrars, func(e registrarEntry) bool { return e.id == id })
	if i < 0 {
		return false
	}
	next := cur.clone()
	next.registrars = slices.Delete(next.registrars, i, i+1)
	r.state.Store(next)
	return true
}

// Groups returns the groups in registration order.
func (r *Registry) Groups() []RouteGroup {
	s := r.load()
	out := make([]RouteGroup, 0, len(s.groupOrder))
	for _, name := range s.groupOrder {
		g := s.groups[name]
		g.Tags = slices.Clone(g.Tags)
		out = append(out, g)
	}
	return out
}

// Group returns the named group.
func (r *Registry) Group(name string) (RouteGroup, bool) {
	g, ok := r.load().groups[name]
	return g, ok
}

// Registrars returns registrar ids in registration order.
func (r *Registry) Registrars() []string {
	s := r.load()
	out := make([]string, len(s.registrars))
	for i, e := range s.registrars {
		out[i] = e.id
	}
	return out
}

// FullPath joins the prefixes from the root group down to name. It returns
// "" for an unknown group.
func (r *Registry) FullPath(name string) (string, error) {
	return fullPath(r.load(), name)
}

func fullPath(s *registryState, name string) (string, error) {
	g, ok := s.groups[name]
	if !ok {
		return "", nil
	}
	parts := []string{g.Prefix}
	for depth := 0; g.Parent != ""; depth++ {
		if depth >= maxGroupDepth {
			return "", &CycleDetectedError{Group: name}
		}
		parent, ok := s.groups[g.Parent]
		if !ok {
			return "", &InvalidParentError{Group: g.Name, Parent: g.Parent}
		}
		g = parent
		parts = append(parts, g.Prefix)
	}
	slices.Reverse(parts)
	return strings.Join(parts, ""), nil
}

// MountFailure describes one registrar or group that could not be mounted.
type MountFailure struct {
	Err    error
	ID     string
	Prefix string
}

// MountReport summarizes a BuildRouteTable run.
type MountReport struct {
	Mounted  []string
	Failures []MountFailure
}

// Err joins all failures, or returns nil.
func (m MountReport) Err() error {
	if len(m.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(m.Failures))
	for i, f := range m.Failures {
		errs[i] = fmt.Errorf("%s at %q: %w", f.ID, f.Prefix, f.Err)
	}
	return errors.Join(errs...)
}

// BuildRouteTable mounts every registrar onto router. Each root group
// becomes a sub-router holding the registrars whose prefix equals its full
// path, followed by its child groups in registration order. Registrars that
// match no group are mounted standalone at their prefix.
//
// A registrar that returns an error or panics is recorded in the report and
// logged; its siblings still mount.
func (r *Registry) BuildRouteTable(router Router) MountReport {
	s := r.load()
	b := &tableBuilder{state: s, logger: r.logger}
	b.index()

	for _, name := range s.groupOrder {
		if s.groups[name].Parent == "" {
			b.mountGroup(router, name)
		}
	}

	prefixes := []string{}
	standalone := map[string][]registrarEntry{}
	for _, e := range s.registrars {
		if b.claimed[e.id] {
			continue
		}
		if _, seen := standalone[e.prefix]; !seen {
			prefixes = append(prefixes, e.prefix)
		}
		standalone[e.prefix] = append(standalone[e.prefix], e)
	}
	for _, prefix := range prefixes {
		entries := standalone[prefix]
		if prefix == "" {
			for _, e := range entries {
				b.mountRegistrar(router, e)
			}
			continue
		}
		b.guard("prefix:"+prefix, prefix, func() error {
			router.Route(prefix, func(sub Router) {
				for _, e := range entries {
					b.mountRegistrar(sub, e)
				}
			})
			return nil
		})
	}

	return b.report
}

type tableBuilder struct {
	state    *registryState
	logger   *slog.Logger
	paths    map[string]string
	byPath   map[string][]registrarEntry
	children map[string][]string
	claimed  map[string]bool
	report   MountReport
}

func (b *tableBuilder) index() {
	s := b.state
	b.paths = make(map[string]string, len(s.groups))
	b.children = map[string][]string{}
	b.byPath = map[string][]registrarEntry{}
	b.claimed = map[string]bool{}

	for _, name := range s.groupOrder {
		p, err := fullPath(s, name)
		if err != nil {
			b.fail("group:"+name, s.groups[name].Prefix, err)
			continue
		}
		b.paths[name] = p
		if parent := s.groups[name].Parent; parent != "" {
			b.children[parent] = append(b.children[parent], name)
		}
	}
	for _, e := range s.registrars {
		b.byPath[e.prefix] = append(b.byPath[e.prefix], e)
	}
}

// occupied reports whether the group or any descendant holds a registrar.
func (b *tableBuilder) occupied(name string) bool {
	p, ok := b.paths[name]
	if !ok {
		return false
	}
	if len(b.byPath[p]) > 0 {
		return true
	}
	return slices.ContainsFunc(b.children[name], b.occupied)
}

func (b *tableBuilder) mountGroup(router Router, name string) {
	if !b.occupied(name) {
		return
	}
	g := b.state.groups[name]
	path := b.paths[name]

	// Claim before mounting so a panicking group does not also mount its
	// registrars standalone.
	b.claimSubtree(name)

	body := func(sub Router) {
		for _, e := range b.byPath[path] {
			b.mountRegistrar(sub, e)
		}
		for _, child := range b.children[name] {
			b.mountGroup(sub, child)
		}
	}

	mounted := len(b.report.Mounted)
	ok := b.guard("group:"+name, path, func() error {
		if g.Prefix == "" {
			router.Group(body)
		} else {
			router.Route(g.Prefix, body)
		}
		return nil
	})
	if !ok {
		// The sub-router never reached the table.
		b.report.Mounted = b.report.Mounted[:mounted]
	}
}

func (b *tableBuilder) claimSubtree(name string) {
	if p, ok := b.paths[name]; ok {
		for _, e := range b.byPath[p] {
			b.claimed[e.id] = true
		}
	}
	for _, child := range b.children[name] {
		b.claimSubtree(child)
	}
}

func (b *tableBuilder) mountRegistrar(router Router, e registrarEntry) {
	if b.guard(e.id, e.prefix, func() error { return e.registrar.Routes(router) }) {
		b.report.Mounted = append(b.report.Mounted, e.id)
	}
}

// guard runs fn, converting errors and router panics into report entries.
func (b *tableBuilder) guard(id, prefix string, fn func() error) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			b.fail(id, prefix, &PanicError{Value: rec})
			ok = false
		}
	}()
	if err := fn(); err != nil {
		b.fail(id, prefix, err)
		return false
	}
	return true
}

func (b *tableBuilder) fail(id, prefix string, err error) {
	err = errors.Join(ErrMountFailed, err)
	b.report.Failures = append(b.report.Failures, MountFailure{ID: id, Prefix: prefix, Err: err})
	b.logger.Error("route mount failed",
		slog.String("registrar", id),
		slog.String("prefix", prefix),
		slog.String("error", err.Error()),
	)
}

// cleanPrefix yields "" or a path with one leading slash and no trailing
// slash.
func cleanPrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func uniqueTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
