// Package app implements the application layer for pbundle.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
	"go.trai.ch/pbundle/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	locks        ports.LockfileStore
	engine       *resolver.Engine
	activator    ports.Activator
	executor     ports.Executor
	logger       ports.Logger
	cacheRoot    string
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	locks ports.LockfileStore,
	engine *resolver.Engine,
	activator ports.Activator,
	executor ports.Executor,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		locks:        locks,
		engine:       engine,
		activator:    activator,
		executor:     executor,
		logger:       log,
		cacheRoot:    domain.DefaultCachePath(),
	}
}

// WithCacheRoot overrides the cache directory removed by Clean.
func (a *App) WithCacheRoot(root string) *App {
	a.cacheRoot = root
	return a
}

// Options selects the requirement file and the requirements to install.
type Options struct {
	// Dir is where the requirement file lookup starts.
	Dir string
	// ConfigFile is the requirement file name or path.
	ConfigFile string
	// Groups selects requirement groups. Empty means the default group.
	Groups []string
	// Platform filters platform-specific requirements. Empty means the current platform.
	Platform string
}

func (o Options) platform() string {
	if o.Platform != "" {
		return o.Platform
	}
	return domain.DefaultPlatformTag()
}

// Bundle is an installed requirement set.
type Bundle struct {
	File      *domain.Bundlefile
	Set       *domain.RequirementSet
	Artifacts []*domain.Artifact
}

// Install resolves and installs the selected requirements, writing the lock
// file unless it was reused as is.
func (a *App) Install(ctx context.Context, opts Options) (*Bundle, error) {
	file, declared, lock, err := a.load(opts)
	if err != nil {
		return nil, err
	}

	set, shortCircuited, err := a.engine.Resolve(ctx, file.Sources, declared, lock)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve packages")
	}

	artifacts, err := a.engine.Install(ctx, set)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to install packages")
	}

	if !shortCircuited {
		if err := a.locks.Write(file.Root, domain.NewLockfile(set, declared, file.Sources)); err != nil {
			return nil, err
		}
	}

	a.logger.Info("Your bundle is complete.")
	return &Bundle{File: file, Set: set, Artifacts: artifacts}, nil
}

// Exec installs the bundle and runs command with the bundle activated.
func (a *App) Exec(ctx context.Context, opts Options, command []string) error {
	if len(command) == 0 {
		return domain.ErrNoCommand
	}

	bundle, err := a.Install(ctx, opts)
	if err != nil {
		return err
	}

	env := a.activator.Environment(bundle.File, bundle.Artifacts)
	return a.executor.Execute(ctx, command, env)
}

// Show installs the bundle and returns where the named package is activated from.
func (a *App) Show(ctx context.Context, opts Options, name string) (string, error) {
	bundle, err := a.Install(ctx, opts)
	if err != nil {
		return "", err
	}

	spec, ok := bundle.Set.Get(name)
	if !ok || spec.Artifact == nil {
		return "", zerr.With(zerr.Wrap(domain.ErrPackageNotResolved, "package "+name+" is not part of the bundle"), "package", name)
	}
	return spec.Artifact.ActivationPath(), nil
}

// Check reports whether the lock file still matches the declared requirements.
func (a *App) Check(_ context.Context, opts Options) (bool, error) {
	_, declared, lock, err := a.load(opts)
	if err != nil {
		return false, err
	}

	if !lock.MatchesRequirementSet(declared) {
		return false, nil
	}
	a.logger.Info("The bundle's dependencies are satisfied.")
	return true, nil
}

// Clean removes the local artifact cache.
func (a *App) Clean(_ context.Context) error {
	a.logger.Info(fmt.Sprintf("removing %s...", a.cacheRoot))
	if err := os.RemoveAll(a.cacheRoot); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove cache"), "path", a.cacheRoot)
	}
	a.logger.Info("removed artifact cache")
	return nil
}

func (a *App) load(opts Options) (*domain.Bundlefile, []domain.Requirement, *domain.Lockfile, error) {
	file, err := a.configLoader.Load(opts.Dir, opts.ConfigFile)
	if err != nil {
		return nil, nil, nil, zerr.Wrap(err, "failed to load configuration")
	}

	declared := file.Collect(opts.Groups, opts.platform())

	lock, err := a.locks.Read(file.Root)
	if err != nil {
		return nil, nil, nil, err
	}
	return file, declared, lock, nil
}

// IsCommandFailure reports whether err came from the executed command rather
// than from pbundle itself.
func IsCommandFailure(err error) bool {
	return errors.Is(err, domain.ErrCommandFailed)
}
