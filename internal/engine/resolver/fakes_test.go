package resolver_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"

	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
)

// fakeSource serves versions and dependencies from memory, in listing order.
type fakeSource struct {
	url       string
	versions  map[string][]string
	deps      map[string][]domain.Dependency
	sdists    map[string]bool
	canonical map[string]string
	err       error
	queries   int
}

func newFakeSource(url string) *fakeSource {
	return &fakeSource{
		url:       url,
		versions:  make(map[string][]string),
		deps:      make(map[string][]domain.Dependency),
		sdists:    make(map[string]bool),
		canonical: make(map[string]string),
	}
}

func (s *fakeSource) add(name string, versions ...string) *fakeSource {
	s.versions[domain.CanonicalKey(name).String()] = versions
	return s
}

func (s *fakeSource) requires(name, version string, deps ...domain.Dependency) *fakeSource {
	s.deps[domain.CanonicalKey(name).String()+"@"+version] = deps
	return s
}

func (s *fakeSource) URL() string {
	return s.url
}

func (s *fakeSource) CanonicalName(_ context.Context, spec *domain.PackageSpec) (string, error) {
	s.queries++
	if s.err != nil {
		return "", s.err
	}
	if name, ok := s.canonical[spec.Key.String()]; ok {
		return name, nil
	}
	return spec.Name, nil
}

func (s *fakeSource) AvailableVersions(_ context.Context, spec *domain.PackageSpec) ([]domain.Version, error) {
	s.queries++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Version, 0)
	for _, v := range s.versions[spec.Key.String()] {
		out = append(out, domain.MustParseVersion(v))
	}
	return out, nil
}

func (s *fakeSource) GetDistribution(_ context.Context, spec *domain.PackageSpec) (*domain.Artifact, error) {
	id := spec.Key.String() + "@" + spec.ExactVersion.String()
	kind := domain.KindBuilt
	if s.sdists[id] {
		kind = domain.KindSource
	}
	location := ""
	if domain.IsFileSourceURL(s.url) {
		location = filepath.Join(domain.FileSourcePath(s.url), spec.Name+"-"+spec.ExactVersion.String()+".whl")
	}
	return &domain.Artifact{
		Name:         spec.Name,
		Version:      spec.ExactVersion,
		Kind:         kind,
		Location:     location,
		Dependencies: s.deps[id],
	}, nil
}

// fakeStore is an in-memory ports.LocalStore.
type fakeStore struct {
	mu       sync.Mutex
	cached   map[string]*domain.Artifact
	prepares int
	installs int
}

func newFakeStore() *fakeStore {
	return &fakeStore{cached: make(map[string]*domain.Artifact)}
}

func storeKey(spec *domain.PackageSpec) string {
	return spec.Key.String() + "@" + spec.ExactVersion.String()
}

func (s *fakeStore) Get(_ context.Context, spec *domain.PackageSpec) (*domain.Artifact, error) {
	if !spec.IsExact() {
		return nil, domain.ErrNotExactVersion
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached[storeKey(spec)], nil
}

func (s *fakeStore) Prepare(ctx context.Context, spec *domain.PackageSpec, source ports.Source) (*domain.Artifact, error) {
	a, err := source.GetDistribution(ctx, spec)
	if err != nil {
		return nil, err
	}
	a.Location = "/cache/blobs/" + storeKey(spec)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepares++
	s.cached[storeKey(spec)] = a
	return a, nil
}

func (s *fakeStore) Install(_ context.Context, spec *domain.PackageSpec, a *domain.Artifact) (*domain.Artifact, error) {
	if !a.NeedsInstall() {
		return a, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installs++
	installed := *a
	installed.Installed = true
	installed.Location = "/cache/builds/" + storeKey(spec)
	s.cached[storeKey(spec)] = &installed
	return &installed, nil
}

// fakeFactory hands out pre-registered sources.
type fakeFactory struct {
	remote map[string]*fakeSource
	local  map[string]*fakeSource
}

func newFakeFactory(sources ...*fakeSource) *fakeFactory {
	f := &fakeFactory{
		remote: make(map[string]*fakeSource),
		local:  make(map[string]*fakeSource),
	}
	for _, s := range sources {
		f.remote[s.url] = s
	}
	return f
}

func (f *fakeFactory) withPath(path string, src *fakeSource) *fakeFactory {
	src.url = domain.FileSourceURL(path)
	f.local[filepath.Clean(path)] = src
	return f
}

func (f *fakeFactory) ForURL(url string) (ports.Source, error) {
	src, ok := f.remote[url]
	if !ok {
		return nil, errors.New("unknown source " + url)
	}
	return src, nil
}

func (f *fakeFactory) ForPath(path string) ports.Source {
	src, ok := f.local[filepath.Clean(path)]
	if !ok {
		src = newFakeSource("")
		f.withPath(path, src)
	}
	return src
}

// lineLogger records Info and Warn lines.
type lineLogger struct {
	lines []string
}

func (l *lineLogger) Info(msg string) { l.lines = append(l.lines, msg) }
func (l *lineLogger) Warn(msg string) { l.lines = append(l.lines, msg) }
func (l *lineLogger) Error(error)     {}

func dep(name, constraint string) domain.Dependency {
	return domain.Dependency{Name: name, Constraint: constraint}
}

func req(name, constraint string) domain.Requirement {
	return domain.Requirement{Name: name, Version: constraint}
}

// fakeTelemetry keeps every recorded vertex by name.
type fakeTelemetry struct {
	mu       sync.Mutex
	vertices map[string]*fakeVertex
}

func newFakeTelemetry() *fakeTelemetry {
	return &fakeTelemetry{vertices: make(map[string]*fakeVertex)}
}

func (t *fakeTelemetry) Record(ctx context.Context, name string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
	v := &fakeVertex{}
	t.mu.Lock()
	t.vertices[name] = v
	t.mu.Unlock()
	return ports.ContextWithVertex(ctx, v), v
}

func (t *fakeTelemetry) Close() error { return nil }

type fakeVertex struct {
	logs   []string
	cached bool
	err    error
	done   bool
}

func (v *fakeVertex) Stdout() io.Writer { return io.Discard }
func (v *fakeVertex) Stderr() io.Writer { return io.Discard }

func (v *fakeVertex) Log(level domain.LogLevel, msg string) {
	v.logs = append(v.logs, level.String()+" "+msg)
}

func (v *fakeVertex) Complete(err error) {
	v.err = err
	v.done = true
}

func (v *fakeVertex) Cached() { v.cached = true }
