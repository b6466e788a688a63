package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/Rorical/RoriTable/internal/agent"
	"github.com/Rorical/RoriTable/internal/config"
	"github.com/Rorical/RoriTable/internal/prompt"
	"github.com/Rorical/RoriTable/internal/tablesvc"
	"github.com/Rorical/RoriTable/internal/tools"
)

var (
	ErrModelNotConfigured = errors.New("model provider API key is not configured")
	ErrTableNotConfigured = errors.New("SmartSuite API key and account id are not configured")
)

// AgentOptions carries the per-caller collaborators for NewAgent.
type AgentOptions struct {
	// Confirmator is consulted before writes when the config enables confirm_writes.
	Confirmator tools.Confirmator
	Observer    func(agent.Event)
	Logger      *slog.Logger
	// Model replaces the OpenAI client; nil builds one from the config.
	Model agent.Model
}

// NewRegistry builds the table-service tool registry from the config.
func NewRegistry(cfg *config.Config, confirmator tools.Confirmator, logger *slog.Logger) (*tools.Registry, error) {
	if !cfg.HasTableCredentials() {
		return nil, ErrTableNotConfigured
	}
	tables, err := tablesvc.New(
		tablesvc.WithBaseURL(cfg.GetSmartSuiteBaseURL()),
		tablesvc.WithCredentials(tablesvc.Credentials{
			APIKey:    cfg.GetTableAPIKey(),
			AccountID: cfg.GetAccountID(),
		}),
		tablesvc.WithTimeout(cfg.GetRequestTimeout()),
		tablesvc.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create table service client: %w", err)
	}

	deps := tools.Deps{
		Tables:     tables,
		AccountID:  cfg.GetAccountID(),
		SolutionID: cfg.GetSolutionID(),
		Logger:     logger,
	}
	if cfg.ConfirmWrites {
		deps.Confirmator = confirmator
	}
	return tools.NewRegistry(tools.Builtin(deps)...)
}

// NewAgent wires the model client, tool registry and system instructions from the config.
func NewAgent(cfg *config.Config, opts AgentOptions) (*agent.Agent, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	model := opts.Model
	if model == nil {
		if !cfg.IsValid() {
			return nil, ErrModelNotConfigured
		}
		clientConfig := openai.DefaultConfig(cfg.GetAPIKey())
		if cfg.GetBaseURL() != "" {
			clientConfig.BaseURL = cfg.GetBaseURL()
		}
		model = openai.NewClientWithConfig(clientConfig)
	}

	registry, err := NewRegistry(cfg, opts.Confirmator, logger)
	if err != nil {
		return nil, err
	}

	return agent.New(model, registry,
		agent.WithModelName(cfg.GetModel()),
		agent.WithInstructions(prompt.CreateRecord(cfg.Tables)),
		agent.WithMaxRounds(cfg.GetMaxRounds()),
		agent.WithMaxParallelTools(cfg.MaxParallelTools),
		agent.WithLogger(logger),
		agent.WithObserver(opts.Observer),
	)
}
