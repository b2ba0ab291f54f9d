package main

import (
	"fmt"

	"arlo/internal/agent"
	"arlo/internal/agent/domain"
	"arlo/internal/agent/ports"
	"arlo/internal/config"
	"arlo/internal/llm"
	"arlo/internal/logging"
	"arlo/internal/observability"
	"arlo/internal/permission"
	"arlo/internal/sandbox"
	"arlo/internal/skills"
	"arlo/internal/storage/filestore"
	"arlo/internal/toolregistry"
)

// runtime holds everything a command needs after wiring.
type runtime struct {
	cfg         *config.Config
	logger      logging.Logger
	metrics     *observability.Metrics
	broker      ports.PermissionBroker
	store       ports.JobStore
	coordinator *agent.Coordinator
}

type runtimeOptions struct {
	// interactive prompts on the terminal for permissions; otherwise
	// requests stay pending until resolved over the API.
	interactive bool
	listeners   []ports.EventListener
}

func buildRuntime(opts runtimeOptions) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	obs := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	logger := logging.FromObservability(obs, "arlo")
	metrics := observability.NewMetrics()

	client, err := llm.NewClient(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.TimeoutSeconds,
		Logger:   logging.FromObservability(obs, "llm"),
	})
	if err != nil {
		return nil, err
	}

	library, err := skills.NewLoader(logger).Load(cfg.Agent.SkillsDir)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}

	var broker ports.PermissionBroker
	if cfg.Agent.AutoApprove {
		broker = permission.NewAutoApprover(logger)
	} else {
		b := permission.NewBroker(
			permission.WithLogger(logger),
			permission.WithMetrics(metrics),
		)
		if opts.interactive {
			approver := permission.NewInteractiveApprover(b, colorEnabled())
			b.SetNotifier(approver.Notifier())
		}
		broker = b
	}

	registry, err := toolregistry.NewRegistry(toolregistry.Config{
		Workspace: cfg.Agent.Workspace,
		Mode:      skills.AgentMode(cfg.Agent.ExecutionMode),
		Direct:    sandbox.NewDirectBackend(logging.FromObservability(obs, "sandbox")),
		Isolated:  sandbox.NewDockerBackend(logging.FromObservability(obs, "sandbox")),
		Skills:    library,
		Broker:    broker,
		Logger:    logger,
		Metrics:   metrics,
		Sandbox: sandbox.Config{
			Image:          cfg.Sandbox.Image,
			MemoryLimit:    cfg.Sandbox.MemoryLimit,
			CPULimit:       cfg.Sandbox.CPULimit,
			TimeoutSeconds: cfg.Sandbox.TimeoutSeconds,
			NetworkEnabled: cfg.Sandbox.NetworkEnabled,
		},
	})
	if err != nil {
		return nil, err
	}

	store, err := filestore.New(cfg.Agent.JobsDir)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	classifier := domain.NewClassifier(client, logger)
	planner := domain.NewPlanner(client, logger, domain.WithPlannerMetrics(metrics))
	engineOpts := []domain.EngineOption{domain.WithEngineMetrics(metrics)}
	if cfg.Agent.StepBudget > 0 {
		engineOpts = append(engineOpts, domain.WithStepBudget(cfg.Agent.StepBudget))
	}
	engine := domain.NewEngine(client, registry, logger, engineOpts...)

	coordOpts := []agent.CoordinatorOption{
		agent.WithJobStore(store),
		agent.WithHistoryBudget(cfg.Agent.HistoryTokens),
	}
	for _, l := range opts.listeners {
		coordOpts = append(coordOpts, agent.WithListener(l))
	}
	coordinator := agent.NewCoordinator(client, classifier, planner, engine, logger, coordOpts...)

	return &runtime{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		broker:      broker,
		store:       store,
		coordinator: coordinator,
	}, nil
}
