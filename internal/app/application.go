package app

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriTable/internal/config"
	"github.com/Rorical/RoriTable/internal/core"
	"github.com/Rorical/RoriTable/internal/dispatcher"
	"github.com/Rorical/RoriTable/internal/eventbus"
	"github.com/Rorical/RoriTable/internal/models"
)

// Application owns the event bus, the chat service and the terminal UI.
type Application struct {
	config     *config.Config
	eventBus   *eventbus.EventBus
	dispatcher *dispatcher.EventDispatcher
	service    *core.ChatService
	model      *AppModel
}

type AppModel struct {
	appModel   models.AppModel
	dispatcher *dispatcher.EventDispatcher
}

func NewApplication(cfg *config.Config, logger *slog.Logger) *Application {
	if logger == nil {
		logger = slog.Default()
	}
	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		logger.Warn("event bus error", "op", e.Operation, "err", e.Err)
	})

	disp := dispatcher.NewEventDispatcher(eb)
	chatService := core.NewChatService(cfg, eb, logger, nil)

	return &Application{
		config:     cfg,
		eventBus:   eb,
		dispatcher: disp,
		service:    chatService,
		model: &AppModel{
			appModel:   createInitialAppModel(chatService),
			dispatcher: disp,
		},
	}
}

// Start runs the UI until the user quits.
func (app *Application) Start() error {
	app.service.Start()

	p := tea.NewProgram(app.model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (app *Application) Stop() {
	app.service.Stop()
	app.dispatcher.Stop()
	app.eventBus.Close()
}

// Messages arrive from the service's first state push.
func createInitialAppModel(chatService *core.ChatService) models.AppModel {
	return models.AppModel{
		Status:           "Ready",
		ChatServiceReady: chatService.IsReady(),
	}
}
