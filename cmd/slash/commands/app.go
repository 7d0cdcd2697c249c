package commands

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/network-plane/slash"
	slashcmds "github.com/network-plane/slash/commands"
	"github.com/network-plane/slash/internal/config"
	"github.com/network-plane/slash/internal/event"
	"github.com/network-plane/slash/internal/logging"
	"github.com/network-plane/slash/prompts"
)

const retryInterval = 200 * time.Millisecond

// app wires configuration, logging, the engine and its commands.
type app struct {
	cfg       *config.Config
	bus       *event.Bus
	engine    *slash.Engine
	prompts   *prompts.Builder
	loader    *slashcmds.Loader
	workspace *slash.Workspace
}

func newApp() (*app, error) {
	cfg, err := config.Load(configFile, workDir)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(level),
		Output: os.Stderr,
		Pretty: cfg.LogPretty,
	})

	middleware := []slash.Middleware{slash.TimingMiddleware}
	if cfg.Retries > 0 {
		middleware = append(middleware, slash.RetryMiddleware(cfg.Retries, retryInterval))
	}
	if cfg.RunTimeout > 0 {
		middleware = append(middleware, slash.TimeoutMiddleware(cfg.RunTimeout))
	}

	bus := event.NewBus()
	engine := slash.NewEngine(
		slash.WithBus(bus),
		slash.WithMiddleware(middleware...),
	)

	osfs := afero.NewOsFs()
	pb, err := prompts.NewBuilder(osfs, cfg.PromptsDir)
	if err != nil {
		bus.Close()
		return nil, err
	}
	if err := slashcmds.RegisterDefaults(engine.Registry(), pb); err != nil {
		bus.Close()
		return nil, err
	}
	loader := slashcmds.NewLoader(osfs, cfg.CommandsDir, engine.Registry())
	if _, err := loader.Load(); err != nil {
		logging.Warn().Err(err).Str("dir", cfg.CommandsDir).Msg("loading template commands")
	}

	root := cfg.WorkspaceRoot
	workspace := slash.NewWorkspace(filepath.Base(root), root, nil)
	if cfg.Language != "" {
		workspace.Set(slash.AttrLanguage, cfg.Language)
	}
	return &app{
		cfg:       cfg,
		bus:       bus,
		engine:    engine,
		prompts:   pb,
		loader:    loader,
		workspace: workspace,
	}, nil
}

// invocation returns the invocation context shared by CLI commands.
func (a *app) invocation() slash.Invocation {
	return slash.Invocation{Workspace: slash.HandleOf(a.workspace)}
}

func (a *app) Close() {
	if err := a.bus.Close(); err != nil {
		logging.Debug().Err(err).Msg("closing event bus")
	}
}
