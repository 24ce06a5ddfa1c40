package main

import (
	"context"
	"fmt"
	"os"

	"salesagent/internal/agent"
	"salesagent/internal/agent/local"
	"salesagent/internal/agent/vertex"
	"salesagent/internal/config"
	"salesagent/internal/llm"
	"salesagent/internal/llm/gemini"
	"salesagent/internal/llm/openai"
	llmvertex "salesagent/internal/llm/vertex"
	"salesagent/internal/logger"
	"salesagent/internal/tool"
	"salesagent/internal/tool/sales"
)

// app is everything a command needs, built from config
type app struct {
	cfg *config.Config
	log *logger.Logger

	model    llm.Client
	registry *tool.Registry
	executor *tool.Executor
	closers  []func() error
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadWithDefaults()
}

func newLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Log.Level)
	if verbose {
		level = logger.LevelDebug
	}
	log := logger.NewLogger(os.Stderr, level)
	if noColor || cfg.Log.NoColor {
		log.SetColorMode(false)
	}
	return log
}

// newApp loads config and validates the parts the command needs. Tools are
// only built when withTools is set.
func newApp(ctx context.Context, withTools bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	if runtimeName != "" {
		cfg.Agent.Runtime = runtimeName
	}
	if webAddr != "" {
		cfg.Web.Addr = webAddr
	}

	if err := cfg.Agent.Validate(); err != nil {
		return nil, fmt.Errorf("%w: agent: %v", config.ErrConfiguration, err)
	}
	if cfg.Agent.Runtime == config.RuntimeLocal {
		withTools = true
	}

	a := &app{cfg: cfg, log: newLogger(cfg)}
	if !withTools {
		return a, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := a.buildTools(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newToolApp is newApp for commands that never reach the remote runtime
func newToolApp(ctx context.Context) (*app, error) {
	runtimeName = config.RuntimeLocal
	return newApp(ctx, true)
}

func (a *app) buildTools(ctx context.Context) error {
	m := a.cfg.Model
	a.log.Debug("Creating %s model client (model: %s)", m.Backend, m.Name)

	switch m.Backend {
	case config.BackendVertex:
		c, err := llmvertex.NewClient(ctx, a.cfg.Agent.Project, a.cfg.Agent.Location, m.Name)
		if err != nil {
			return err
		}
		a.model = c
		a.closers = append(a.closers, c.Close)
	case config.BackendGemini:
		c, err := gemini.NewClient(ctx, m.APIKey, m.Name)
		if err != nil {
			return err
		}
		a.model = c
		a.closers = append(a.closers, c.Close)
	case config.BackendOpenAI:
		a.model = openai.NewClient(m.APIKey, m.Name, m.BaseURL)
	default:
		return fmt.Errorf("%w: unsupported backend %s", config.ErrConfiguration, m.Backend)
	}

	a.registry = tool.NewRegistry()
	if err := a.registry.Register(sales.New(a.model, m.Temperature)...); err != nil {
		return err
	}
	a.executor = tool.NewExecutor(a.registry, a.log)
	a.executor.SetRateLimit(m.RequestsPerMinute)
	return nil
}

// runtime returns the configured agent runtime
func (a *app) runtime(ctx context.Context) (agent.Runtime, error) {
	if a.cfg.Agent.Runtime == config.RuntimeLocal {
		a.log.Info("Using the local runtime (%s %s)", a.model.Provider(), a.model.Model())
		return local.New(a.model, a.registry, a.executor, local.Config{
			SystemPrompt: sales.RootInstruction,
			Temperature:  a.cfg.Model.Temperature,
			MaxTurns:     a.cfg.Agent.MaxTurns,
		}, a.log), nil
	}

	rt, err := vertex.NewClient(ctx, vertex.Options{
		Project:      a.cfg.Agent.Project,
		Location:     a.cfg.Agent.Location,
		ResourceName: a.cfg.Agent.ResourceName,
		Endpoint:     a.cfg.Agent.Endpoint,
	}, a.log)
	if err != nil {
		return nil, agent.ConnectionFailure("connect", err)
	}
	return rt, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Debug("close: %v", err)
		}
	}
}
