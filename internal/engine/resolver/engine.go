// Package resolver implements the fixed-point resolution engine.
//
// Each pass binds every unbound requirement to the first declared source that
// offers a satisfying version, then binds a distribution to every source-bound
// requirement and registers the dependencies it declares. Passes repeat until
// one registers nothing new.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultMaxPasses bounds the number of resolution passes.
const DefaultMaxPasses = 1000

// Engine resolves requirement sets against declared sources and the local store.
type Engine struct {
	store     ports.LocalStore
	sources   ports.SourceFactory
	logger    ports.Logger
	telemetry ports.Telemetry
	maxPasses int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxPasses overrides DefaultMaxPasses.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// New creates a new Engine.
func New(
	store ports.LocalStore,
	sources ports.SourceFactory,
	logger ports.Logger,
	telemetry ports.Telemetry,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:     store,
		sources:   sources,
		logger:    logger,
		telemetry: telemetry,
		maxPasses: DefaultMaxPasses,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve computes the resolved set for declared requirements. When lock was
// computed from exactly the declared requirements, its recorded packages are
// used without version search and the returned flag is true unless the
// result departs from the lock.
func (e *Engine) Resolve(
	ctx context.Context,
	sourceURLs []string,
	declared []domain.Requirement,
	lock *domain.Lockfile,
) (*domain.RequirementSet, bool, error) {
	if lock.MatchesRequirementSet(declared) {
		set, err := lock.ToRequirementSet()
		if err != nil {
			return nil, true, zerr.Wrap(err, "failed to load locked packages")
		}
		if err := e.ResolveSet(ctx, sourceURLs, set, false); err != nil {
			return nil, true, err
		}
		return set, !drifted(lock, set), nil
	}

	if lock != nil {
		e.logger.Info("Resolving packages...")
	}

	set, err := domain.NewRequirementSetFrom(declared)
	if err != nil {
		return nil, false, err
	}
	if err := e.ResolveSet(ctx, sourceURLs, set, true); err != nil {
		return nil, false, err
	}
	return set, false, nil
}

// drifted reports whether set resolved to packages the lock does not record,
// as happens when a local artifact is rebuilt at a new version.
func drifted(lock *domain.Lockfile, set *domain.RequirementSet) bool {
	for _, spec := range set.Specs() {
		pkg, _, ok := lock.Package(spec.Name)
		if !ok || pkg.Version != spec.ExactVersion.String() {
			return true
		}
	}
	return false
}

// ResolveSet runs resolution passes over set until a fixed point. With
// allowChanges unset, specs that carry an exact version are served from the
// local store before any source is queried.
func (e *Engine) ResolveSet(ctx context.Context, sourceURLs []string, set *domain.RequirementSet, allowChanges bool) error {
	r, err := e.newRun(sourceURLs, allowChanges)
	if err != nil {
		return err
	}

	for pass := 1; ; pass++ {
		if pass > e.maxPasses {
			err := zerr.With(zerr.Wrap(domain.ErrResolutionDivergence, "too many resolution passes"), "passes", pass-1)
			return zerr.With(err, "packages", set.Len())
		}

		passCtx, vertex := e.telemetry.Record(ctx, fmt.Sprintf("resolve pass %d", pass))
		added, err := r.pass(passCtx, set)
		vertex.Complete(err)
		if err != nil {
			return err
		}
		if added == 0 {
			break
		}
	}

	if allowChanges {
		canonicalizeRequirements(set)
	}
	return nil
}

// Install runs the build step for every source-form artifact and returns the
// resolved artifacts ordered by package key.
func (e *Engine) Install(ctx context.Context, set *domain.RequirementSet) ([]*domain.Artifact, error) {
	specs := set.Specs()
	artifacts := make([]*domain.Artifact, 0, len(specs))
	for _, spec := range specs {
		if spec.Artifact == nil {
			return nil, zerr.With(domain.ErrPackageNotResolved, "package", spec.Name)
		}
		if spec.Artifact.NeedsInstall() {
			e.logger.Info(fmt.Sprintf("Installing %s %s", spec.Name, spec.ExactVersion))
			vctx, vertex := e.telemetry.Record(ctx, "install "+spec.String(),
				ports.WithVertexID("install:"+spec.Key.String()+"@"+spec.ExactVersion.String()))
			installed, err := e.store.Install(vctx, spec, spec.Artifact)
			vertex.Complete(err)
			if err != nil {
				return nil, zerr.With(err, "package", spec.Name)
			}
			spec.UseArtifact(installed)
		}
		artifacts = append(artifacts, spec.Artifact)
	}
	return artifacts, nil
}

// canonicalizeRequirements rewrites recorded dependency names to the spelling
// of the spec they resolved to.
func canonicalizeRequirements(set *domain.RequirementSet) {
	for _, spec := range set.Specs() {
		for i, dep := range spec.Requirements {
			if resolved, ok := set.Get(dep.Name); ok {
				spec.Requirements[i].Name = resolved.Name
			}
		}
	}
}

// run holds the sources of one resolution.
type run struct {
	*Engine
	allowChanges bool
	declared     []ports.Source
	byURL        map[string]ports.Source
}

func (e *Engine) newRun(sourceURLs []string, allowChanges bool) (*run, error) {
	r := &run{
		Engine:       e,
		allowChanges: allowChanges,
		declared:     make([]ports.Source, 0, len(sourceURLs)),
		byURL:        make(map[string]ports.Source, len(sourceURLs)),
	}
	for _, url := range sourceURLs {
		src, err := r.source(url)
		if err != nil {
			return nil, err
		}
		r.declared = append(r.declared, src)
	}
	return r, nil
}

// source returns the source for url, building it on first use.
func (r *run) source(url string) (ports.Source, error) {
	if src, ok := r.byURL[url]; ok {
		return src, nil
	}
	var src ports.Source
	if domain.IsFileSourceURL(url) {
		src = r.sources.ForPath(domain.FileSourcePath(url))
	} else {
		var err error
		if src, err = r.sources.ForURL(url); err != nil {
			return nil, zerr.With(err, "source", url)
		}
	}
	r.byURL[url] = src
	r.byURL[src.URL()] = src
	return src, nil
}

func (r *run) localSource(path string) ports.Source {
	src := r.sources.ForPath(path)
	if existing, ok := r.byURL[src.URL()]; ok {
		return existing
	}
	r.byURL[src.URL()] = src
	return src
}

// pass performs one resolution pass and returns the number of newly
// registered requirements.
func (r *run) pass(ctx context.Context, set *domain.RequirementSet) (int, error) {
	for _, spec := range set.Specs() {
		if spec.IsBound() {
			continue
		}
		if err := r.bindSource(ctx, spec); err != nil {
			return 0, err
		}
	}

	added := 0
	for _, spec := range set.Specs() {
		if spec.Artifact != nil {
			continue
		}
		n, err := r.bindDistribution(ctx, set, spec)
		if err != nil {
			return 0, err
		}
		added += n
	}
	return added, nil
}

// bindSource moves spec from unbound to source-bound, or straight to
// distribution-bound on a short-circuited store hit.
func (r *run) bindSource(ctx context.Context, spec *domain.PackageSpec) error {
	if spec.IsLocal() {
		return r.bindLocal(ctx, spec)
	}

	if !r.allowChanges && spec.IsExact() {
		bound, err := r.shortCircuit(ctx, spec)
		if err != nil || bound {
			return err
		}
	}

	var failures []error
	for _, src := range r.declared {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.logger.Info("Querying " + src.URL() + " for " + spec.Name)

		name, err := src.CanonicalName(ctx, spec)
		if err != nil {
			failures = append(failures, sourceFailure(ctx, src, err))
			continue
		}
		spec.Rename(name)

		versions, err := src.AvailableVersions(ctx, spec)
		if err != nil {
			failures = append(failures, sourceFailure(ctx, src, err))
			continue
		}
		for _, v := range versions {
			if spec.Constraint.Check(v) {
				spec.UseFrom(src.URL(), v)
				return nil
			}
		}
	}

	return unresolvable(spec, failures)
}

// shortCircuit binds an exactly pinned spec without version search: from the
// local store when cached, otherwise from the source the lock recorded.
func (r *run) shortCircuit(ctx context.Context, spec *domain.PackageSpec) (bool, error) {
	cached, err := r.store.Get(ctx, spec)
	if err != nil {
		return false, zerr.With(err, "package", spec.Name)
	}
	if cached != nil {
		spec.UseArtifact(cached)
		spec.Source = spec.LockedSource
		if len(spec.Requirements) == 0 {
			spec.Requirements = slices.Clone(cached.Requires())
		}
		return true, nil
	}

	if spec.LockedSource == "" {
		return false, nil
	}
	src, err := r.source(spec.LockedSource)
	if err != nil {
		return false, err
	}
	spec.UseFrom(src.URL(), spec.ExactVersion)
	return true, nil
}

func (r *run) bindLocal(ctx context.Context, spec *domain.PackageSpec) error {
	src := r.localSource(spec.Path)
	versions, err := src.AvailableVersions(ctx, spec)
	if err != nil {
		return zerr.With(err, "package", spec.Name)
	}

	switch len(versions) {
	case 0:
		err := zerr.Wrap(domain.ErrPackageNotFound, "package "+spec.Name+" is not available in "+spec.Path)
		return zerr.With(zerr.With(err, "package", spec.Name), "path", spec.Path)
	case 1:
	default:
		err := zerr.Wrap(domain.ErrAmbiguousLocalVersion, "package "+spec.Name+" has multiple versions in "+spec.Path)
		err = zerr.With(zerr.With(err, "package", spec.Name), "path", spec.Path)
		return zerr.With(err, "versions", len(versions))
	}

	found := versions[0]
	if !spec.Constraint.IsAny() && !spec.Constraint.Check(found) {
		sentinel := domain.ErrUnresolvableRequirement
		if spec.Constraint.IsMerged() {
			sentinel = domain.ErrResolutionConflict
		}
		err := zerr.Wrap(sentinel, fmt.Sprintf("package %s %s in %s does not satisfy %s",
			spec.Name, found, spec.Path, spec.Constraint))
		err = zerr.With(zerr.With(err, "package", spec.Name), "path", spec.Path)
		return zerr.With(err, "version", found.String())
	}
	if spec.LockedSource != "" && spec.IsExact() && !spec.ExactVersion.Equal(found) {
		r.logger.Warn(fmt.Sprintf("%s changed in %s from %s to %s", spec.Name, spec.Path, spec.ExactVersion, found))
	}
	spec.UseFrom(src.URL(), found)
	return nil
}

// bindDistribution binds an artifact to a source-bound spec and registers the
// dependencies it declares.
func (r *run) bindDistribution(ctx context.Context, set *domain.RequirementSet, spec *domain.PackageSpec) (int, error) {
	src, err := r.source(spec.Source)
	if err != nil {
		return 0, err
	}

	vctx, vertex := r.telemetry.Record(ctx, "fetch "+spec.String(),
		ports.WithVertexID("fetch:"+spec.Key.String()+"@"+spec.ExactVersion.String()))
	artifact, err := r.distribution(vctx, spec, src, vertex)
	vertex.Complete(err)
	if err != nil {
		return 0, zerr.With(err, "package", spec.Name)
	}

	spec.UseArtifact(artifact)
	spec.Requirements = slices.Clone(artifact.Requires())

	added := 0
	for _, dep := range artifact.Requires() {
		candidate, err := domain.NewPackageSpec(dep.Name, dep.Constraint, "")
		if err != nil {
			return 0, zerr.With(zerr.With(err, "package", dep.Name), "required_by", spec.Name)
		}
		isNew, err := set.Add(candidate)
		if err != nil {
			return 0, zerr.With(err, "required_by", spec.Name)
		}
		if isNew {
			added++
		}
	}
	return added, nil
}

func (r *run) distribution(
	ctx context.Context,
	spec *domain.PackageSpec,
	src ports.Source,
	vertex ports.Vertex,
) (*domain.Artifact, error) {
	if domain.IsFileSourceURL(spec.Source) {
		artifact, err := src.GetDistribution(ctx, spec)
		if err != nil {
			return nil, err
		}
		r.logger.Info(fmt.Sprintf("Using %s %s from %s", spec.Name, spec.ExactVersion, spec.Path))
		return artifact, nil
	}

	cached, err := r.store.Get(ctx, spec)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		vertex.Cached()
		r.logger.Info(fmt.Sprintf("Using %s %s", spec.Name, spec.ExactVersion))
		return cached, nil
	}
	vertex.Log(domain.LogLevelInfo, "downloading from "+src.URL())
	return r.store.Prepare(ctx, spec, src)
}

// sourceFailure notes a failed source query on the current pass vertex.
func sourceFailure(ctx context.Context, src ports.Source, err error) error {
	if vertex, ok := ports.VertexFromContext(ctx); ok {
		vertex.Log(domain.LogLevelWarn, src.URL()+": "+err.Error())
	}
	return err
}

// unresolvable reports that no source satisfied spec. Source failures take
// precedence; a merged constraint is reported as a conflict.
func unresolvable(spec *domain.PackageSpec, failures []error) error {
	constraint := spec.Constraint.String()
	switch {
	case len(failures) > 0:
		err := zerr.Wrap(domain.ErrSourceUnavailable, "package "+spec.Name+" "+constraint+" could not be looked up")
		err = zerr.With(err, "package", spec.Name)
		return errors.Join(append([]error{err}, failures...)...)
	case spec.Constraint.IsMerged():
		err := zerr.Wrap(domain.ErrResolutionConflict, "no version of "+spec.Name+" satisfies "+constraint)
		return zerr.With(err, "package", spec.Name)
	default:
		err := zerr.Wrap(domain.ErrUnresolvableRequirement, "package "+spec.Name+" "+constraint+" is not available on any sources")
		return zerr.With(err, "package", spec.Name)
	}
}
