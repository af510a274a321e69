// Package registry implements a package source backed by a PyPI style
// registry API.
package registry

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/git-pkgs/registries"
	_ "github.com/git-pkgs/registries/all" // registers the pypi ecosystem
	"github.com/git-pkgs/registries/fetch"
	"github.com/package-url/packageurl-go"
	circuit "github.com/rubyist/circuitbreaker"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
	"go.trai.ch/zerr"
)

// Ecosystem is the registries ecosystem served by this source.
const Ecosystem = "pypi"

const (
	defaultMaxRetries      = 3
	defaultRetryInterval   = 500 * time.Millisecond
	defaultTripThreshold   = 5
	defaultBreakerCooldown = 30 * time.Second
)

// release is one published version together with its registry metadata.
type release struct {
	version domain.Version
	meta    registries.Version
}

// Source is a ports.Source over a package registry.
type Source struct {
	url      string
	reg      registries.Registry
	client   *registries.Client
	resolver *fetch.Resolver
	breaker  *circuit.Breaker
	logger   ports.Logger

	maxRetries    uint64
	retryInterval time.Duration

	mu       sync.Mutex
	releases map[domain.InternedString][]release
	names    map[domain.InternedString]string
}

// Option configures a Source.
type Option func(*sourceOptions)

type sourceOptions struct {
	client        *registries.Client
	maxRetries    uint64
	retryInterval time.Duration
	threshold     int64
}

// WithClient sets the HTTP client used for registry queries.
func WithClient(c *registries.Client) Option {
	return func(o *sourceOptions) { o.client = c }
}

// WithRetry sets how often and how soon a failed query is retried.
func WithRetry(maxRetries uint64, interval time.Duration) Option {
	return func(o *sourceOptions) {
		o.maxRetries = maxRetries
		o.retryInterval = interval
	}
}

// WithTripThreshold sets the number of consecutive failures that open the breaker.
func WithTripThreshold(n int64) Option {
	return func(o *sourceOptions) { o.threshold = n }
}

// New creates a source for the registry at url.
func New(url string, logger ports.Logger, opts ...Option) (*Source, error) {
	o := sourceOptions{
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		threshold:     defaultTripThreshold,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = registries.NewClient(registries.WithMaxRetries(0))
	}

	reg, err := registries.New(Ecosystem, url, o.client)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create registry client"), "source", url)
	}

	resolver := fetch.NewResolver()
	resolver.RegisterRegistry(reg)

	cooldown := backoff.NewExponentialBackOff()
	cooldown.InitialInterval = defaultBreakerCooldown
	cooldown.MaxInterval = 5 * time.Minute
	cooldown.Multiplier = 2.0
	cooldown.Reset()

	return &Source{
		url:      url,
		reg:      reg,
		client:   o.client,
		resolver: resolver,
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    cooldown,
			ShouldTrip: circuit.ThresholdTripFunc(o.threshold),
		}),
		logger:        logger,
		maxRetries:    o.maxRetries,
		retryInterval: o.retryInterval,
		releases:      make(map[domain.InternedString][]release),
		names:         make(map[domain.InternedString]string),
	}, nil
}

// URL returns the registry base URL.
func (s *Source) URL() string {
	return s.url
}

// CanonicalName returns the registry's spelling of the package name.
func (s *Source) CanonicalName(ctx context.Context, spec *domain.PackageSpec) (string, error) {
	s.mu.Lock()
	name, ok := s.names[spec.Key]
	s.mu.Unlock()
	if ok {
		return name, nil
	}

	var pkg *registries.Package
	found, err := s.call(ctx, func(ctx context.Context) error {
		var err error
		pkg, err = s.reg.FetchPackage(ctx, spec.Name)
		return err
	})
	if err != nil {
		return "", err
	}

	name = spec.Name
	if found && pkg != nil && pkg.Name != "" {
		name = pkg.Name
	}

	s.mu.Lock()
	s.names[spec.Key] = name
	s.mu.Unlock()
	return name, nil
}

// AvailableVersions lists the non-yanked versions of the package in ascending order.
func (s *Source) AvailableVersions(ctx context.Context, spec *domain.PackageSpec) ([]domain.Version, error) {
	rels, err := s.releasesFor(ctx, spec)
	if err != nil {
		return nil, err
	}

	versions := make([]domain.Version, 0, len(rels))
	for _, r := range rels {
		if r.meta.Status == registries.StatusYanked || downloadURL(r.meta) == "" {
			continue
		}
		versions = append(versions, r.version)
	}
	return versions, nil
}

// GetDistribution describes the downloadable artifact of the spec's exact
// version. Among the release's files a pure wheel is preferred, then the
// source distribution.
func (s *Source) GetDistribution(ctx context.Context, spec *domain.PackageSpec) (*domain.Artifact, error) {
	if spec.ExactVersion.IsZero() {
		return nil, zerr.With(domain.ErrNotExactVersion, "package", spec.Name)
	}

	rels, err := s.releasesFor(ctx, spec)
	if err != nil {
		return nil, err
	}

	var (
		number    = spec.ExactVersion.String()
		url       string
		integrity string
		pkgType   string
	)
	for _, r := range rels {
		if !r.version.Equal(spec.ExactVersion) {
			continue
		}
		number = r.meta.Number
		url = downloadURL(r.meta)
		integrity = r.meta.Integrity
		pkgType, _ = r.meta.Metadata["packagetype"].(string)
		if r.meta.Status == registries.StatusYanked {
			s.logger.Warn("Using yanked release " + s.PURL(spec.Name, number))
		}
		break
	}

	files, err := s.releaseFiles(ctx, spec.Name, number)
	if err != nil {
		return nil, err
	}
	if f, ok := pickFile(files); ok {
		url, integrity, pkgType = f.URL, f.integrity(), f.PackageType
		if f.rank() > 1 {
			s.logger.Warn("No portable distribution of " + s.PURL(spec.Name, number) + ", using " + f.name())
		}
	}

	if url == "" {
		var info *fetch.ArtifactInfo
		found, err := s.call(ctx, func(ctx context.Context) error {
			var err error
			info, err = s.resolver.Resolve(ctx, Ecosystem, spec.Name, number)
			if errors.Is(err, fetch.ErrNoDownloadURL) {
				return registries.ErrNotFound
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		if !found || info == nil {
			return nil, zerr.With(zerr.With(domain.ErrPackageNotFound, "package", s.PURL(spec.Name, number)), "source", s.url)
		}
		url, integrity = info.URL, info.Integrity
	}

	deps, err := s.dependencies(ctx, spec.Name, number)
	if err != nil {
		return nil, err
	}

	filename := fileName(url)

	return &domain.Artifact{
		Name:         spec.Name,
		Version:      spec.ExactVersion,
		Kind:         artifactKind(pkgType, filename),
		Filename:     filename,
		URL:          url,
		Integrity:    integrity,
		Dependencies: deps,
	}, nil
}

// PURL returns the package URL of name at version.
func (s *Source) PURL(name, version string) string {
	return packageurl.NewPackageURL(packageurl.TypePyPi, "", domain.CanonicalKey(name).String(), version, nil, "").ToString()
}

func (s *Source) releasesFor(ctx context.Context, spec *domain.PackageSpec) ([]release, error) {
	s.mu.Lock()
	rels, ok := s.releases[spec.Key]
	s.mu.Unlock()
	if ok {
		return rels, nil
	}

	var published []registries.Version
	_, err := s.call(ctx, func(ctx context.Context) error {
		var err error
		published, err = s.reg.FetchVersions(ctx, spec.Name)
		return err
	})
	if err != nil {
		return nil, err
	}

	rels = make([]release, 0, len(published))
	for _, p := range published {
		v, err := domain.ParseVersion(p.Number)
		if err != nil {
			continue
		}
		rels = append(rels, release{version: v, meta: p})
	}
	slices.SortFunc(rels, func(a, b release) int {
		return a.version.Compare(b.version)
	})

	s.mu.Lock()
	s.releases[spec.Key] = rels
	s.mu.Unlock()
	return rels, nil
}

func (s *Source) dependencies(ctx context.Context, name, number string) ([]domain.Dependency, error) {
	var published []registries.Dependency
	_, err := s.call(ctx, func(ctx context.Context) error {
		var err error
		published, err = s.reg.FetchDependencies(ctx, name, number)
		return err
	})
	if err != nil {
		return nil, err
	}

	deps := make([]domain.Dependency, 0, len(published))
	for _, d := range published {
		if d.Optional {
			continue
		}
		deps = append(deps, domain.Dependency{Name: d.Name, Constraint: d.Requirements})
	}
	return deps, nil
}

// call runs op under the source's breaker with exponential retry. A not
// found answer is reported as found == false and does not count as a failure.
func (s *Source) call(ctx context.Context, op func(context.Context) error) (bool, error) {
	missing := false
	err := s.breaker.Call(func() error {
		retry := backoff.NewExponentialBackOff()
		retry.InitialInterval = s.retryInterval
		retry.Reset()

		return backoff.Retry(func() error {
			err := op(ctx)
			switch {
			case err == nil:
				return nil
			case isNotFound(err):
				missing = true
				return nil
			case ctx.Err() != nil:
				return nil
			}
			return err
		}, backoff.WithMaxRetries(retry, s.maxRetries))
	}, 0)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		return false, errors.Join(
			domain.ErrSourceUnavailable,
			zerr.With(zerr.Wrap(err, "registry query failed"), "source", s.url),
		)
	}
	return !missing, nil
}

func isNotFound(err error) bool {
	if errors.Is(err, registries.ErrNotFound) || errors.Is(err, fetch.ErrNotFound) {
		return true
	}
	var nf *registries.NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var httpErr *registries.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == 404
}

func downloadURL(v registries.Version) string {
	url, _ := v.Metadata["download_url"].(string)
	return url
}

func artifactKind(packageType, filename string) domain.ArtifactKind {
	switch packageType {
	case "sdist":
		return domain.KindSource
	case "bdist_wheel", "bdist_egg":
		return domain.KindBuilt
	}
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".whl") || strings.HasSuffix(lower, ".egg") {
		return domain.KindBuilt
	}
	return domain.KindSource
}
